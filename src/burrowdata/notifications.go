package burrowdata

import (
	"context"
	"encoding/json"

	"git.burrowchat.net/burrow/burrow/src/bus"
	"git.burrowchat.net/burrow/burrow/src/db"
	"git.burrowchat.net/burrow/burrow/src/models"
	"git.burrowchat.net/burrow/burrow/src/oops"
	"git.burrowchat.net/burrow/burrow/src/perf"
)

// Notification payloads, stored as JSON. Shapes are per kind and versioned
// only by addition; renaming a field here breaks old rows.

type VoteNotificationPayload struct {
	VoterID    int               `json:"voterId"`
	VoterName  string            `json:"voterName"`
	TargetID   int               `json:"targetId"`
	TargetKind models.TargetKind `json:"targetKind"`
	PostID     int               `json:"postId"`
}

type ReplyNotificationPayload struct {
	CommentID  int    `json:"commentId"`
	PostID     int    `json:"postId"`
	AuthorID   int    `json:"authorId"`
	AuthorName string `json:"authorName"`
}

type FollowNotificationPayload struct {
	FollowerID   int    `json:"followerId"`
	FollowerName string `json:"followerName"`
}

/*
CreateNotification writes a notification row and returns the payload for
the live push. It does not publish; callers that hold an open transaction
must publish after commit so a rollback can never fan out a notification
for a row that was never written.
*/
func CreateNotification(
	ctx context.Context,
	dbConn db.ConnOrTx,
	recipientID int,
	kind models.NotificationKind,
	payload any,
) (*bus.NotificationPayload, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("NOTIFICATIONS", "Create notification")
	defer perf.EndBlock()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, oops.New(err, "failed to marshal notification payload")
	}

	notificationID, err := db.QueryOneScalar[int](ctx, dbConn,
		`
		---- Create notification
		INSERT INTO notification (user_id, kind, payload, read, created_at)
		VALUES ($1, $2, $3, FALSE, NOW())
		RETURNING id
		`,
		recipientID, kind, string(payloadJSON),
	)
	if err != nil {
		return nil, oops.New(err, "failed to create notification")
	}

	return &bus.NotificationPayload{
		NotificationID: notificationID,
		RecipientID:    recipientID,
		Kind:           kind,
		Payload:        string(payloadJSON),
	}, nil
}

// PublishNotification pushes a committed notification to the recipient's
// live connections. Safe to call with nil when nothing was created.
func PublishNotification(ctx context.Context, eventBus *bus.Bus, n *bus.NotificationPayload) {
	if n == nil {
		return
	}
	publishEvent(ctx, eventBus, bus.Event{
		Kind:         bus.EventNotificationReceived,
		Notification: n,
	})
}

type NotificationsQuery struct {
	UnreadOnly bool
	Limit      int
}

func FetchNotifications(
	ctx context.Context,
	dbConn db.ConnOrTx,
	userID int,
	q NotificationsQuery,
) ([]models.Notification, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("SQL", "Fetch notifications")
	defer perf.EndBlock()

	var qb db.QueryBuilder
	qb.Add(
		`
		SELECT $columns
		FROM notification
		WHERE user_id = $?
		`,
		userID,
	)
	if q.UnreadOnly {
		qb.Add(`AND NOT read`)
	}
	qb.Add(`ORDER BY created_at DESC, id DESC`)
	if q.Limit > 0 {
		qb.Add(`LIMIT $?`, q.Limit)
	}

	notifications, err := db.Query[models.Notification](ctx, dbConn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch notifications")
	}

	result := make([]models.Notification, len(notifications))
	for i := range notifications {
		result[i] = *notifications[i]
	}
	return result, nil
}

// MarkNotificationsRead marks the given notifications read, ignoring ids
// that do not belong to the user.
func MarkNotificationsRead(
	ctx context.Context,
	dbConn db.ConnOrTx,
	userID int,
	notificationIDs []int,
) error {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("NOTIFICATIONS", "Mark notifications read")
	defer perf.EndBlock()

	_, err := dbConn.Exec(ctx,
		`
		---- Mark notifications read
		UPDATE notification
		SET read = TRUE
		WHERE user_id = $1 AND id = ANY ($2)
		`,
		userID, notificationIDs,
	)
	if err != nil {
		return oops.New(err, "failed to mark notifications read")
	}
	return nil
}
