package controller

import (
	"errors"
	"net/http"

	"github.com/watchsync/server/internal/service/room"
)

// serveWS upgrades the request and reads envelopes until the channel
// closes. Closing is the only cancellation signal: it synchronously
// runs the disconnect sequence, including controller handoff and the
// resulting snapshot broadcast.
func (c *controller) serveWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to upgrade connection", "error", err)
		return
	}

	c.metrics.ConnectionOpened()
	defer func() {
		c.metrics.ConnectionClosed()
		c.dropConnLimiter(conn)
		c.dropConnWriteLock(conn)
		conn.Close()
	}()

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.WarnContext(ctx, "connection closed unexpectedly", "error", err)
	}

	disconnectResp, err := c.roomService.DisconnectByConn(ctx, conn)
	if err != nil {
		// a socket that never joined a room has nothing to clean up
		if !errors.Is(err, room.ErrMemberNotConnected) {
			c.logger.ErrorContext(ctx, "failed to disconnect member", "error", err)
		}

		return
	}

	c.logger.InfoContext(ctx, "member disconnected",
		"room_id", disconnectResp.RoomId,
		"user_id", disconnectResp.UserId,
		"handed_over", disconnectResp.HandedOver,
	)

	if len(disconnectResp.Conns) > 0 {
		c.broadcastRoomUpdate(ctx, disconnectResp.Conns, disconnectResp.Room)
	}
}
