package burrowdata

import (
	"context"
	"testing"

	"git.burrowchat.net/burrow/burrow/src/bus"
	"git.burrowchat.net/burrow/burrow/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishNotification(t *testing.T) {
	ctx := context.Background()
	eventBus := bus.New(4)
	sub := eventBus.Subscribe(bus.Filter{RecipientID: 42})

	PublishNotification(ctx, eventBus, &bus.NotificationPayload{
		NotificationID: 7,
		RecipientID:    42,
		Kind:           models.NotificationVote,
		Payload:        `{"voterId":1}`,
	})

	select {
	case e := <-sub.Events:
		require.Equal(t, bus.EventNotificationReceived, e.Kind)
		require.NotNil(t, e.Notification)
		assert.Equal(t, 7, e.Notification.NotificationID)
		assert.Equal(t, 42, e.Notification.RecipientID)
	default:
		t.Fatal("expected a notification event")
	}

	// A rolled back mutation hands over no payload. Nothing is published.
	PublishNotification(ctx, eventBus, nil)
	select {
	case e := <-sub.Events:
		t.Fatalf("unexpected event %v", e.Kind)
	default:
	}
}
