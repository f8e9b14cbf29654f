package website

import (
	"encoding/json"
	"time"

	"git.burrowchat.net/burrow/burrow/src/apperrors"
	"git.burrowchat.net/burrow/burrow/src/burrowdata"
	"git.burrowchat.net/burrow/burrow/src/models"
)

type apiNotification struct {
	ID        int                     `json:"id"`
	Kind      models.NotificationKind `json:"kind"`
	Payload   json.RawMessage         `json:"payload"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"createdAt"`
}

func ListNotifications(c *RequestContext) ResponseData {
	q := burrowdata.NotificationsQuery{Limit: 100}
	if c.URL().Query().Get("unread") != "" {
		q.UnreadOnly = true
	}

	notifications, err := burrowdata.FetchNotifications(c, c.Conn, c.CurrentUser.ID, q)
	if err != nil {
		return c.ErrorResponse(err)
	}

	apiNotifications := make([]apiNotification, len(notifications))
	for i, n := range notifications {
		apiNotifications[i] = apiNotification{
			ID:        n.ID,
			Kind:      n.Kind,
			Payload:   json.RawMessage(n.Payload),
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		}
	}

	var res ResponseData
	res.WriteJson(apiNotifications)
	return res
}

func MarkNotificationsRead(c *RequestContext) ResponseData {
	var input struct {
		IDs []int `json:"ids"`
	}
	err := c.ParseJSONBody(&input)
	if err != nil {
		return c.ErrorResponse(apperrors.Wrap(err, apperrors.Validation, "malformed request body"))
	}
	if len(input.IDs) == 0 {
		return c.ErrorResponse(apperrors.New(apperrors.Validation, "ids must not be empty"))
	}

	err = burrowdata.MarkNotificationsRead(c, c.Conn, c.CurrentUser.ID, input.IDs)
	if err != nil {
		return c.ErrorResponse(err)
	}

	var res ResponseData
	res.WriteJson(map[string]bool{"success": true})
	return res
}
