package website

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"git.burrowchat.net/burrow/burrow/src/apperrors"
	"git.burrowchat.net/burrow/burrow/src/bus"
	"git.burrowchat.net/burrow/burrow/src/config"
)

type eventFrame struct {
	Type bus.EventKind `json:"type"`
	Data any           `json:"data"`
}

func marshalEventFrame(e bus.Event) ([]byte, error) {
	return json.Marshal(eventFrame{Type: e.Kind, Data: e.Payload()})
}

/*
PostEvents is the streaming HTTP transport: a long-lived connection that
emits every live event for one post as text frames, in the form

	data: {"type":...,"data":...}\n\n

with a `: heartbeat` comment frame on a fixed interval so proxies do not
reap the idle connection. Signed-in watchers also receive their own
notifications on the same stream.

The handler hijacks the response; once the first frame is out there is no
way to change the status code, so all validation happens up front.
*/
func PostEvents(c *RequestContext) ResponseData {
	postID := c.PathParamInt("postid")
	if errRes := visiblePostOr404(c, postID); errRes != nil {
		return *errRes
	}

	flusher, ok := c.Res.(http.Flusher)
	if !ok {
		return c.ErrorResponse(apperrors.New(apperrors.Validation, "streaming is not supported on this connection"))
	}

	filters := []bus.Filter{{PostID: postID}}
	if c.CurrentUser != nil {
		filters = append(filters, bus.Filter{RecipientID: c.CurrentUser.ID})
	}
	sub := c.EventBus.Subscribe(filters...)
	defer c.EventBus.Unsubscribe(sub.ID)

	header := c.Res.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	c.Res.WriteHeader(http.StatusOK)

	_, err := fmt.Fprintf(c.Res, "data: {\"type\":\"connected\",\"postId\":%d}\n\n", postID)
	if err != nil {
		return ResponseData{hijacked: true}
	}
	flusher.Flush()

	heartbeat := time.NewTicker(config.Config.EventStream.HeartbeatInterval())
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Done():
			return ResponseData{hijacked: true}
		case <-heartbeat.C:
			_, err := fmt.Fprint(c.Res, ": heartbeat\n\n")
			if err != nil {
				return ResponseData{hijacked: true}
			}
			flusher.Flush()
		case e, open := <-sub.Events:
			if !open {
				return ResponseData{hijacked: true}
			}
			frame, err := marshalEventFrame(e)
			if err != nil {
				c.Logger.Error().Err(err).Msg("failed to marshal event frame")
				continue
			}
			_, err = fmt.Fprintf(c.Res, "data: %s\n\n", frame)
			if err != nil {
				// Client hung up. The deferred unsubscribe cleans up.
				return ResponseData{hijacked: true}
			}
			flusher.Flush()
		}
	}
}
