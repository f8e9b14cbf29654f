package website

import (
	"git.burrowchat.net/burrow/burrow/src/apperrors"
	"git.burrowchat.net/burrow/burrow/src/burrowdata"
)

func GetUser(c *RequestContext) ResponseData {
	userID := c.PathParamInt("userid")

	user, ok, err := c.Loaders.Users.Load(c, userID)
	if err != nil {
		return c.ErrorResponse(err)
	}
	if !ok {
		return c.ErrorResponse(apperrors.New(apperrors.NotFound, "no user with id %d", userID))
	}

	type userResponse struct {
		apiUser
		Following bool `json:"following"`
	}
	response := userResponse{apiUser: *makeAPIUser(user)}

	if c.CurrentUser != nil {
		following, _, err := c.Loaders.Following.Load(c, userID)
		if err != nil {
			return c.ErrorResponse(err)
		}
		response.Following = following
	}

	var res ResponseData
	res.WriteJson(response)
	return res
}

func FollowUser(c *RequestContext) ResponseData {
	userID := c.PathParamInt("userid")
	err := burrowdata.FollowUser(c, c.Conn, c.EventBus, c.CurrentUser, userID)
	if err != nil {
		return c.ErrorResponse(err)
	}
	c.Loaders.Following.Invalidate(userID)

	var res ResponseData
	res.WriteJson(map[string]bool{"success": true})
	return res
}

func UnfollowUser(c *RequestContext) ResponseData {
	userID := c.PathParamInt("userid")
	err := burrowdata.UnfollowUser(c, c.Conn, c.CurrentUser, userID)
	if err != nil {
		return c.ErrorResponse(err)
	}
	c.Loaders.Following.Invalidate(userID)

	var res ResponseData
	res.WriteJson(map[string]bool{"success": true})
	return res
}
