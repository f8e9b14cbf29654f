package website

import (
	"git.burrowchat.net/burrow/burrow/src/burrowdata"
)

func ListTopics(c *RequestContext) ResponseData {
	topics, err := burrowdata.FetchTopics(c, c.Conn, burrowdata.TopicsQuery{})
	if err != nil {
		return c.ErrorResponse(err)
	}

	apiTopics := make([]apiTopic, len(topics))
	for i, topic := range topics {
		apiTopics[i] = apiTopic{
			ID:              topic.ID,
			Slug:            topic.Slug,
			Name:            topic.Name,
			SubscriberCount: topic.SubscriberCount,
		}
		if c.CurrentUser != nil {
			subscribed, _, err := c.Loaders.Subscribed.Load(c, topic.ID)
			if err != nil {
				return c.ErrorResponse(err)
			}
			apiTopics[i].Subscribed = subscribed
		}
	}

	var res ResponseData
	res.WriteJson(apiTopics)
	return res
}

func SubscribeToTopic(c *RequestContext) ResponseData {
	topicID := c.PathParamInt("topicid")
	err := burrowdata.SubscribeToTopic(c, c.Conn, c.CurrentUser, topicID)
	if err != nil {
		return c.ErrorResponse(err)
	}
	c.Loaders.Subscribed.Invalidate(topicID)

	var res ResponseData
	res.WriteJson(map[string]bool{"success": true})
	return res
}

func UnsubscribeFromTopic(c *RequestContext) ResponseData {
	topicID := c.PathParamInt("topicid")
	err := burrowdata.UnsubscribeFromTopic(c, c.Conn, c.CurrentUser, topicID)
	if err != nil {
		return c.ErrorResponse(err)
	}
	c.Loaders.Subscribed.Invalidate(topicID)

	var res ResponseData
	res.WriteJson(map[string]bool{"success": true})
	return res
}
