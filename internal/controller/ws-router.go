package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/watchsync/server/internal/service/room"
	"github.com/watchsync/server/pkg/ctxlogger"
	"github.com/watchsync/server/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.wsRequestIdMw)
	mux.Use(c.wsMetricsMw)
	mux.Use(c.wsRateLimitMw)
	mux.Use(c.wsLoggingMw)

	// membership
	mux.Handle("JOIN_ROOM", c.handleJoinRoom)
	mux.Handle("TAKE_CONTROL", c.handleTakeControl)

	// playback
	mux.Handle("MEDIA_CHANGE", c.handleMediaChange)
	mux.Handle("PLAYER_STATE", c.handlePlayerState)
	mux.Handle("VIDEO_PROGRESS", c.handleVideoProgress)
	mux.Handle("PLAYLIST_UPDATE", c.handlePlaylistUpdate)

	// room-scoped extras
	mux.Handle("SET_ROOM_COOKIE", c.handleSetRoomCookie)
	mux.Handle("CHAT_MESSAGE", c.handleChatMessage)

	mux.OnError(c.handleWSError)

	return mux
}

// handleWSError answers expected failures with an error envelope. A
// storage or other internal failure is only logged: the member keeps
// its in-memory view and self-heals on the next broadcast or reconnect.
func (c *controller) handleWSError(ctx context.Context, conn *websocket.Conn, err error) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		c.writeError(ctx, conn, "room not found")
	case errors.Is(err, room.ErrMemberNotFound):
		c.writeError(ctx, conn, "member not found")
	case errors.Is(err, room.ErrPermissionDenied):
		c.writeError(ctx, conn, "permission denied")
	case errors.Is(err, room.ErrMembersLimit):
		c.writeError(ctx, conn, "room is full")
	case errors.Is(err, room.ErrMemberNotConnected):
		c.writeError(ctx, conn, "join a room first")
	case errors.Is(err, room.ErrAlreadyJoined):
		c.writeError(ctx, conn, "already joined a room")
	case errors.Is(err, room.ErrRoomMismatch):
		c.writeError(ctx, conn, "room id does not match the joined room")
	case errors.Is(err, ErrValidationError):
		c.writeError(ctx, conn, err.Error())
	case errors.Is(err, wsrouter.ErrUnknownMessageType):
		c.writeError(ctx, conn, err.Error())
	case errors.Is(err, wsrouter.ErrMalformedMessage):
		c.writeError(ctx, conn, err.Error())
	case errors.Is(err, errRateLimited):
		c.writeError(ctx, conn, "slow down")
	default:
		c.logger.ErrorContext(ctx, "failed to handle websocket message", "error", err)
	}
}

var errRateLimited = errors.New("rate limited")

func (c *controller) wsRequestIdMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", c.generateRequestId()))
		return next(ctx, conn, payload)
	}
}

func (c *controller) wsMetricsMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		c.metrics.MessageReceived(wsrouter.GetMessageTypeFromCtx(ctx))
		return next(ctx, conn, payload)
	}
}

func (c *controller) wsRateLimitMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		if limiter := c.connLimiter(conn); limiter != nil && !limiter.Allow() {
			return errRateLimited
		}

		return next(ctx, conn, payload)
	}
}

func (c *controller) wsLoggingMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))

		start := time.Now()
		err := next(ctx, conn, payload)

		c.logger.InfoContext(ctx, "websocket message handled",
			"processing_time_us", time.Since(start).Microseconds(),
		)

		return err
	}
}

func (c *controller) connLimiter(conn *websocket.Conn) *rate.Limiter {
	if c.cfg.MessageRate <= 0 {
		return nil
	}

	c.limitersMu.Lock()
	defer c.limitersMu.Unlock()

	limiter, ok := c.limiters[conn]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(c.cfg.MessageRate), c.cfg.MessageBurst)
		c.limiters[conn] = limiter
	}

	return limiter
}

func (c *controller) dropConnLimiter(conn *websocket.Conn) {
	c.limitersMu.Lock()
	delete(c.limiters, conn)
	c.limitersMu.Unlock()
}
