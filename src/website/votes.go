package website

import (
	"git.burrowchat.net/burrow/burrow/src/apperrors"
	"git.burrowchat.net/burrow/burrow/src/models"
	"git.burrowchat.net/burrow/burrow/src/votes"
)

type voteInput struct {
	TargetID   int    `json:"targetId"`
	TargetKind string `json:"targetKind"`
	Direction  string `json:"direction,omitempty"`
}

type voteResponse struct {
	Success   bool    `json:"success"`
	VoteCount int     `json:"voteCount"`
	UserVote  *string `json:"userVote"`
}

func parseVoteDirection(s string) (models.VoteDirection, error) {
	switch s {
	case "up":
		return models.VoteUp, nil
	case "down":
		return models.VoteDown, nil
	}
	return 0, apperrors.New(apperrors.Validation, "direction must be \"up\" or \"down\", got %q", s)
}

func CastVote(c *RequestContext) ResponseData {
	var input voteInput
	err := c.ParseJSONBody(&input)
	if err != nil {
		return c.ErrorResponse(apperrors.Wrap(err, apperrors.Validation, "malformed request body"))
	}

	direction, err := parseVoteDirection(input.Direction)
	if err != nil {
		return c.ErrorResponse(err)
	}

	voteCount, err := votes.Cast(c, c.Conn, c.EventBus, c.CurrentUser, input.TargetID, models.TargetKind(input.TargetKind), direction)
	if err != nil {
		return c.ErrorResponse(err)
	}
	c.Loaders.InvalidateVote(models.TargetKind(input.TargetKind), input.TargetID)

	var res ResponseData
	res.WriteJson(voteResponse{
		Success:   true,
		VoteCount: voteCount,
		UserVote:  voteDirectionString(direction),
	})
	return res
}

func RemoveVote(c *RequestContext) ResponseData {
	var input voteInput
	err := c.ParseJSONBody(&input)
	if err != nil {
		return c.ErrorResponse(apperrors.Wrap(err, apperrors.Validation, "malformed request body"))
	}

	voteCount, err := votes.Remove(c, c.Conn, c.EventBus, c.CurrentUser, input.TargetID, models.TargetKind(input.TargetKind))
	if err != nil {
		return c.ErrorResponse(err)
	}
	c.Loaders.InvalidateVote(models.TargetKind(input.TargetKind), input.TargetID)

	var res ResponseData
	res.WriteJson(voteResponse{
		Success:   true,
		VoteCount: voteCount,
	})
	return res
}
