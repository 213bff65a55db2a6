package websocket

import (
	"context"

	"github.com/gofiber/websocket/v2"
)

// ServeWs runs one connection until it closes.
func ServeWs(ctx context.Context, hub *Hub, c *websocket.Conn, userID string, handle MessageFunc) {
	client := newClient(hub, userID, handle)
	client.Conn = c
	if !hub.join(client) {
		c.Close()
		return
	}

	go client.writePump()
	client.readPump(ctx)
}

func newClient(hub *Hub, userID string, handle MessageFunc) *Client {
	return &Client{Hub: hub, UserID: userID, Send: make(chan []byte, 256), handle: handle}
}
