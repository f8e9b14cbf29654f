package website

import (
	"git.burrowchat.net/burrow/burrow/src/apperrors"
	"git.burrowchat.net/burrow/burrow/src/bus"
)

func visiblePostOr404(c *RequestContext, postID int) *ResponseData {
	_, ok, err := c.Loaders.Posts.Load(c, postID)
	if err != nil {
		res := c.ErrorResponse(err)
		return &res
	}
	if !ok {
		res := c.ErrorResponse(apperrors.New(apperrors.NotFound, "no post with id %d", postID))
		return &res
	}
	return nil
}

func StartTyping(c *RequestContext) ResponseData {
	postID := c.PathParamInt("postid")
	if errRes := visiblePostOr404(c, postID); errRes != nil {
		return *errRes
	}

	c.Presence.StartTyping(postID, c.CurrentUser.ID, c.CurrentUser.BestName())

	var res ResponseData
	res.WriteJson(map[string]bool{"success": true})
	return res
}

func StopTyping(c *RequestContext) ResponseData {
	postID := c.PathParamInt("postid")

	c.Presence.StopTyping(postID, c.CurrentUser.ID)

	var res ResponseData
	res.WriteJson(map[string]bool{"success": true})
	return res
}

func GetTypingUsers(c *RequestContext) ResponseData {
	postID := c.PathParamInt("postid")
	if errRes := visiblePostOr404(c, postID); errRes != nil {
		return *errRes
	}

	users := c.Presence.TypingUsers(postID)
	if users == nil {
		users = []bus.TypingUser{}
	}

	var res ResponseData
	res.WriteJson(map[string]any{"postId": postID, "users": users})
	return res
}
