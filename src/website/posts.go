package website

import (
	"strconv"
	"time"

	"git.burrowchat.net/burrow/burrow/src/apperrors"
	"git.burrowchat.net/burrow/burrow/src/burrowdata"
	"git.burrowchat.net/burrow/burrow/src/feed"
	"git.burrowchat.net/burrow/burrow/src/models"
)

type apiUser struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Reputation  int    `json:"reputation"`
	Verified    bool   `json:"verified"`
}

type apiPost struct {
	ID           int       `json:"id"`
	Topic        apiTopic  `json:"topic"`
	Author       *apiUser  `json:"author"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Pinned       bool      `json:"pinned"`
	Locked       bool      `json:"locked"`
	ViewCount    int       `json:"viewCount"`
	VoteCount    int       `json:"voteCount"`
	CommentCount int       `json:"commentCount"`
	CreatedAt    time.Time `json:"createdAt"`

	// Current user's relationship to the post. Zero values for anonymous
	// requests.
	UserVote   *string `json:"userVote"`
	Bookmarked bool    `json:"bookmarked"`
}

type apiTopic struct {
	ID              int    `json:"id"`
	Slug            string `json:"slug"`
	Name            string `json:"name"`
	SubscriberCount int    `json:"subscriberCount"`
	Subscribed      bool   `json:"subscribed"`
}

func makeAPIUser(user *models.User) *apiUser {
	if user == nil {
		return nil
	}
	return &apiUser{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.BestName(),
		Reputation:  user.Reputation,
		Verified:    user.Verified,
	}
}

func voteDirectionString(direction models.VoteDirection) *string {
	var s string
	switch direction {
	case models.VoteUp:
		s = "up"
	case models.VoteDown:
		s = "down"
	default:
		return nil
	}
	return &s
}

// makeAPIPost assembles the wire shape of a post. The per-user fields go
// through the request's loaders, so serializing a whole page of posts costs
// one grouped query per relationship, not one per post.
func makeAPIPost(c *RequestContext, p burrowdata.PostAndStuff) (apiPost, error) {
	result := apiPost{
		ID:     p.Post.ID,
		Author: makeAPIUser(p.Author),
		Topic: apiTopic{
			ID:              p.Topic.ID,
			Slug:            p.Topic.Slug,
			Name:            p.Topic.Name,
			SubscriberCount: p.Topic.SubscriberCount,
		},
		Title:        p.Post.Title,
		Body:         p.Post.Body,
		Pinned:       p.Post.Pinned,
		Locked:       p.Post.Locked,
		ViewCount:    p.Post.ViewCount,
		VoteCount:    p.Post.VoteCount,
		CommentCount: p.CommentCount,
		CreatedAt:    p.Post.CreatedAt,
	}

	if c.CurrentUser != nil {
		vote, ok, err := c.Loaders.PostVotes.Load(c, p.Post.ID)
		if err != nil {
			return apiPost{}, err
		}
		if ok && vote != nil {
			result.UserVote = voteDirectionString(vote.Direction)
		}

		bookmarked, _, err := c.Loaders.Bookmarked.Load(c, p.Post.ID)
		if err != nil {
			return apiPost{}, err
		}
		result.Bookmarked = bookmarked

		subscribed, _, err := c.Loaders.Subscribed.Load(c, p.Topic.ID)
		if err != nil {
			return apiPost{}, err
		}
		result.Topic.Subscribed = subscribed
	}

	return result, nil
}

// Each feed has its own default ordering: posts list newest first, comment
// threads read top to bottom in creation order.
func parsePageParams(c *RequestContext, defaultOrder feed.OrderBy) (feed.Page, error) {
	first := feed.MaxPageSize
	if firstStr := c.URL().Query().Get("first"); firstStr != "" {
		parsed, err := strconv.Atoi(firstStr)
		if err != nil {
			return feed.Page{}, apperrors.New(apperrors.Validation, "first must be a number")
		}
		first = parsed
	}
	orderBy := c.URL().Query().Get("orderBy")
	if orderBy == "" {
		orderBy = string(defaultOrder)
	}
	return feed.ParsePage(orderBy, first, c.URL().Query().Get("after"))
}

func PostsFeed(c *RequestContext) ResponseData {
	page, err := parsePageParams(c, feed.OrderNewest)
	if err != nil {
		return c.ErrorResponse(err)
	}

	q := burrowdata.PostsQuery{}
	if topicIDStr := c.URL().Query().Get("topicId"); topicIDStr != "" {
		topicID, err := strconv.Atoi(topicIDStr)
		if err != nil {
			return c.ErrorResponse(apperrors.New(apperrors.Validation, "topicId must be a number"))
		}
		q.TopicIDs = []int{topicID}
	}
	if c.URL().Query().Get("bookmarked") != "" {
		if c.CurrentUser == nil {
			return c.ErrorResponse(apperrors.New(apperrors.Authentication, "you must be signed in to list bookmarks"))
		}
		q.BookmarkedBy = c.CurrentUser.ID
	}

	conn, err := burrowdata.FetchPostFeed(c, c.Conn, q, page)
	if err != nil {
		return c.ErrorResponse(err)
	}

	edges := make([]feed.Edge[apiPost], len(conn.Edges))
	for i, edge := range conn.Edges {
		post, err := makeAPIPost(c, edge.Node)
		if err != nil {
			return c.ErrorResponse(err)
		}
		edges[i] = feed.Edge[apiPost]{Node: post, Cursor: edge.Cursor}
	}

	var res ResponseData
	res.WriteJson(feed.Connection[apiPost]{Edges: edges, PageInfo: conn.PageInfo})
	return res
}

func GetPost(c *RequestContext) ResponseData {
	postID := c.PathParamInt("postid")

	post, err := burrowdata.FetchPost(c, c.Conn, postID)
	if err != nil {
		return c.ErrorResponse(err)
	}

	err = burrowdata.IncrementPostViews(c, c.Conn, postID)
	if err != nil {
		return c.ErrorResponse(err)
	}
	post.Post.ViewCount += 1

	apiP, err := makeAPIPost(c, post)
	if err != nil {
		return c.ErrorResponse(err)
	}

	var res ResponseData
	res.WriteJson(apiP)
	return res
}

func CreatePost(c *RequestContext) ResponseData {
	var input struct {
		TopicID int    `json:"topicId"`
		Title   string `json:"title"`
		Body    string `json:"body"`
	}
	err := c.ParseJSONBody(&input)
	if err != nil {
		return c.ErrorResponse(apperrors.Wrap(err, apperrors.Validation, "malformed request body"))
	}

	post, err := burrowdata.CreatePost(c, c.Conn, c.EventBus, c.CurrentUser, burrowdata.CreatePostInput{
		TopicID: input.TopicID,
		Title:   input.Title,
		Body:    input.Body,
	})
	if err != nil {
		return c.ErrorResponse(err)
	}

	apiP, err := makeAPIPost(c, post)
	if err != nil {
		return c.ErrorResponse(err)
	}

	var res ResponseData
	res.StatusCode = 201
	res.WriteJson(apiP)
	return res
}

func BookmarkPost(c *RequestContext) ResponseData {
	postID := c.PathParamInt("postid")
	err := burrowdata.BookmarkPost(c, c.Conn, c.CurrentUser, postID)
	if err != nil {
		return c.ErrorResponse(err)
	}
	c.Loaders.Bookmarked.Invalidate(postID)

	var res ResponseData
	res.WriteJson(map[string]bool{"success": true})
	return res
}

func UnbookmarkPost(c *RequestContext) ResponseData {
	postID := c.PathParamInt("postid")
	err := burrowdata.UnbookmarkPost(c, c.Conn, c.CurrentUser, postID)
	if err != nil {
		return c.ErrorResponse(err)
	}
	c.Loaders.Bookmarked.Invalidate(postID)

	var res ResponseData
	res.WriteJson(map[string]bool{"success": true})
	return res
}
