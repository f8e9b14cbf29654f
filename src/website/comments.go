package website

import (
	"time"

	"git.burrowchat.net/burrow/burrow/src/apperrors"
	"git.burrowchat.net/burrow/burrow/src/comments"
	"git.burrowchat.net/burrow/burrow/src/feed"
)

type apiComment struct {
	ID        int       `json:"id"`
	PostID    int       `json:"postId"`
	ParentID  *int      `json:"parentId"`
	Author    *apiUser  `json:"author"`
	Depth     int       `json:"depth"`
	Path      string    `json:"path"`
	Body      string    `json:"body"`
	VoteCount int       `json:"voteCount"`
	CreatedAt time.Time `json:"createdAt"`

	UserVote *string `json:"userVote"`
}

func makeAPIComment(c *RequestContext, comment comments.CommentAndStuff) (apiComment, error) {
	result := apiComment{
		ID:        comment.Comment.ID,
		PostID:    comment.Comment.PostID,
		ParentID:  comment.Comment.ParentID,
		Author:    makeAPIUser(comment.Author),
		Depth:     comment.Comment.Depth,
		Path:      comment.Comment.Path,
		Body:      comment.Comment.Body,
		VoteCount: comment.Comment.VoteCount,
		CreatedAt: comment.Comment.CreatedAt,
	}

	if c.CurrentUser != nil {
		vote, ok, err := c.Loaders.CommentVotes.Load(c, comment.Comment.ID)
		if err != nil {
			return apiComment{}, err
		}
		if ok && vote != nil {
			result.UserVote = voteDirectionString(vote.Direction)
		}
	}

	return result, nil
}

func PostComments(c *RequestContext) ResponseData {
	postID := c.PathParamInt("postid")

	// The post must be visible for its comments to be.
	_, postExists, err := c.Loaders.Posts.Load(c, postID)
	if err != nil {
		return c.ErrorResponse(err)
	}
	if !postExists {
		return c.ErrorResponse(apperrors.New(apperrors.NotFound, "no post with id %d", postID))
	}

	page, err := parsePageParams(c, feed.OrderOldest)
	if err != nil {
		return c.ErrorResponse(err)
	}

	conn, err := comments.FetchCommentFeed(c, c.Conn, comments.CommentsQuery{
		PostIDs: []int{postID},
	}, page)
	if err != nil {
		return c.ErrorResponse(err)
	}

	edges := make([]feed.Edge[apiComment], len(conn.Edges))
	for i, edge := range conn.Edges {
		comment, err := makeAPIComment(c, edge.Node)
		if err != nil {
			return c.ErrorResponse(err)
		}
		edges[i] = feed.Edge[apiComment]{Node: comment, Cursor: edge.Cursor}
	}

	var res ResponseData
	res.WriteJson(feed.Connection[apiComment]{Edges: edges, PageInfo: conn.PageInfo})
	return res
}

func CreateComment(c *RequestContext) ResponseData {
	postID := c.PathParamInt("postid")

	var input struct {
		ParentID *int   `json:"parentId"`
		Body     string `json:"body"`
	}
	err := c.ParseJSONBody(&input)
	if err != nil {
		return c.ErrorResponse(apperrors.Wrap(err, apperrors.Validation, "malformed request body"))
	}

	comment, err := comments.Create(c, c.Conn, c.EventBus, c.CurrentUser, comments.CreateCommentInput{
		PostID:   postID,
		ParentID: input.ParentID,
		Body:     input.Body,
	})
	if err != nil {
		return c.ErrorResponse(err)
	}

	// The author just stopped typing, whatever the client does next.
	c.Presence.StopTyping(postID, c.CurrentUser.ID)

	apiC, err := makeAPIComment(c, comments.CommentAndStuff{
		Comment: *comment,
		Author:  c.CurrentUser,
	})
	if err != nil {
		return c.ErrorResponse(err)
	}

	var res ResponseData
	res.StatusCode = 201
	res.WriteJson(apiC)
	return res
}

func DeleteComment(c *RequestContext) ResponseData {
	err := comments.Delete(c, c.Conn, c.EventBus, c.CurrentUser, c.PathParamInt("commentid"))
	if err != nil {
		return c.ErrorResponse(err)
	}

	var res ResponseData
	res.WriteJson(map[string]bool{"success": true})
	return res
}
