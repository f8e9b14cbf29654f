package website

import (
	"encoding/json"
	"time"

	"git.burrowchat.net/burrow/burrow/src/bus"
	"git.burrowchat.net/burrow/burrow/src/config"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	socketWriteTimeout = 10 * time.Second
	socketPongTimeout  = 60 * time.Second
	maxSocketMessage   = 4 * 1024
)

var socketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// What clients send us. Watching a post covers its comments, votes, and
// typing activity; notifications for the signed-in user are delivered
// without asking.
type socketClientMessage struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	PostID int    `json:"postId"`
}

/*
Socket is the subscription channel transport. It carries the same event
kinds as the streaming endpoint, but the client chooses what to watch at
runtime instead of opening one connection per post.

Upgrade hijacks the TCP connection, so from the router's point of view the
response is already gone when this returns.
*/
func Socket(c *RequestContext) ResponseData {
	wsConn, err := socketUpgrader.Upgrade(c.Res, c.Req, nil)
	if err != nil {
		// Upgrade already wrote an error response.
		c.Logger.Warn().Err(err).Msg("failed to upgrade websocket")
		return ResponseData{hijacked: true}
	}

	var filters []bus.Filter
	if c.CurrentUser != nil {
		filters = append(filters, bus.Filter{RecipientID: c.CurrentUser.ID})
	}
	sub := c.EventBus.Subscribe(filters...)

	client := &socketClient{
		conn:     wsConn,
		eventBus: c.EventBus,
		sub:      sub,
		logger:   c.Logger,
	}
	go client.readPump()
	go client.writePump()

	return ResponseData{hijacked: true}
}

type socketClient struct {
	conn     *websocket.Conn
	eventBus *bus.Bus
	sub      *bus.Subscriber
	logger   *zerolog.Logger
}

// readPump consumes subscribe requests until the client goes away, then
// tears the whole subscription down. Closing the subscriber channel is what
// stops the write pump.
func (client *socketClient) readPump() {
	defer func() {
		client.eventBus.Unsubscribe(client.sub.ID)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxSocketMessage)
	client.conn.SetReadDeadline(time.Now().Add(socketPongTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(socketPongTimeout))
		return nil
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				client.logger.Debug().Err(err).Msg("websocket closed unexpectedly")
			}
			return
		}

		var msg socketClientMessage
		err = json.Unmarshal(raw, &msg)
		if err != nil || msg.PostID <= 0 {
			continue
		}

		switch msg.Action {
		case "subscribe":
			client.eventBus.AddFilter(client.sub.ID, bus.Filter{PostID: msg.PostID})
		case "unsubscribe":
			client.eventBus.RemoveFilter(client.sub.ID, bus.Filter{PostID: msg.PostID})
		}
	}
}

func (client *socketClient) writePump() {
	pingInterval := config.Config.EventStream.HeartbeatInterval()
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case e, open := <-client.sub.Events:
			client.conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
			if !open {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			frame, err := marshalEventFrame(e)
			if err != nil {
				client.logger.Error().Err(err).Msg("failed to marshal event frame")
				continue
			}
			err = client.conn.WriteMessage(websocket.TextMessage, frame)
			if err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
			err := client.conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				return
			}
		}
	}
}
