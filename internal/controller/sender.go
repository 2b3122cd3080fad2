package controller

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// send serializes writes per connection, since handler goroutines of
// different members fan out to the same sockets, and bounds each write
// so a peer with a full buffer cannot stall the caller for long.
func (c *controller) send(conn *websocket.Conn, output *Output) error {
	mu := c.connWriteLock(conn)
	mu.Lock()
	defer mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	return conn.WriteJSON(output)
}

// broadcast fans the message out best-effort: a dead or slow channel is
// skipped and logged, never allowed to block the rest of the room.
func (c *controller) broadcast(ctx context.Context, conns []*websocket.Conn, output *Output) {
	sent := 0
	for _, conn := range conns {
		if err := c.send(conn, output); err != nil {
			c.logger.WarnContext(ctx, "failed to write to conn", "type", output.Type, "error", err)
			continue
		}

		sent++
	}

	c.metrics.Broadcast(sent)
}

func (c *controller) writeToConn(ctx context.Context, conn *websocket.Conn, output *Output) error {
	if err := c.send(conn, output); err != nil {
		c.logger.WarnContext(ctx, "failed to write to conn", "type", output.Type, "error", err)
		return err
	}

	return nil
}

func (c *controller) writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	c.writeToConn(ctx, conn, &Output{
		Type:    "error",
		Payload: map[string]any{"msg": msg},
	})
}
