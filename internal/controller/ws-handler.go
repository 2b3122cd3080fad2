package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/watchsync/server/internal/domain"
	"github.com/watchsync/server/internal/service/room"
	"github.com/watchsync/server/pkg/wsrouter"
)

var ErrValidationError = errors.New("validation error")

type JoinRoomInput struct {
	RoomId string `json:"room_id" validate:"required,min=1,max=64"`
	UserId string `json:"user_id" validate:"required,min=1,max=64"`
	Name   string `json:"name" validate:"max=32"`
}

// handleJoinRoom is the first message on a fresh socket. The sequence
// is fixed: register channel, ack the joiner, replay current media and
// playlist to the joiner only, send the joiner its room snapshot, then
// broadcast the snapshot to everyone else.
func (c *controller) handleJoinRoom(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	input, err := wsrouter.Decode[JoinRoomInput](payload)
	if err != nil {
		return err
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %v", ErrValidationError, validationErrors)
	}

	joinRoomResp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		RoomId: input.RoomId,
		UserId: input.UserId,
		Name:   input.Name,
		Conn:   conn,
	})
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	if joinRoomResp.Created {
		c.metrics.RoomCreated()
	}

	if err := c.writeToConn(ctx, conn, &Output{
		Type:    "ack",
		Payload: map[string]any{"status": "joined"},
	}); err != nil {
		return fmt.Errorf("failed to ack join: %w", err)
	}

	if joinRoomResp.Room.Media != nil {
		if err := c.writeToConn(ctx, conn, &Output{
			Type:    "MEDIA_CHANGE",
			Payload: joinRoomResp.Room.Media,
		}); err != nil {
			return fmt.Errorf("failed to replay media: %w", err)
		}
	}

	if len(joinRoomResp.Playlist) > 0 {
		if err := c.writeToConn(ctx, conn, &Output{
			Type:    "PLAYLIST_UPDATE",
			Payload: map[string]any{"playlist": joinRoomResp.Playlist},
		}); err != nil {
			return fmt.Errorf("failed to replay playlist: %w", err)
		}
	}

	// the joiner needs the snapshot too: it carries the member list,
	// the controller and the room credential, none of which are in the
	// ack or the replay
	if err := c.writeToConn(ctx, conn, &Output{
		Type:    "ROOM_UPDATE",
		Payload: joinRoomResp.Room,
	}); err != nil {
		return fmt.Errorf("failed to send room snapshot: %w", err)
	}

	c.broadcastRoomUpdate(ctx, joinRoomResp.Conns, joinRoomResp.Room)

	return nil
}

type MediaChangeInput struct {
	FileId        string         `json:"file_id" validate:"required"`
	Url           string         `json:"url"`
	Title         string         `json:"title"`
	Provider      string         `json:"provider"`
	Meta          map[string]any `json:"meta"`
	PlayingItemId *string        `json:"playing_item_id"`
}

func (c *controller) handleMediaChange(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	input, err := wsrouter.Decode[MediaChangeInput](payload)
	if err != nil {
		return err
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %v", ErrValidationError, validationErrors)
	}

	setMediaResp, err := c.roomService.SetMedia(ctx, &room.SetMediaParams{
		Conn: conn,
		Media: &domain.Media{
			FileId:        input.FileId,
			Url:           input.Url,
			Title:         input.Title,
			Provider:      input.Provider,
			Meta:          input.Meta,
			PlayingItemId: input.PlayingItemId,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set media: %w", err)
	}

	c.broadcast(ctx, setMediaResp.Conns, &Output{
		Type:    "MEDIA_CHANGE",
		Payload: setMediaResp.Media,
	})

	return nil
}

type TakeControlInput struct {
	RoomId string `json:"room_id"`
}

func (c *controller) handleTakeControl(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	input, err := wsrouter.Decode[TakeControlInput](payload)
	if err != nil {
		return err
	}

	takeControlResp, err := c.roomService.TakeControl(ctx, &room.TakeControlParams{
		Conn:   conn,
		RoomId: input.RoomId,
	})
	if err != nil {
		return fmt.Errorf("failed to take control: %w", err)
	}

	c.broadcastRoomUpdate(ctx, takeControlResp.Conns, takeControlResp.Room)

	return nil
}

// handlePlayerState relays the leader's playback sample verbatim. The
// server does not check that the sender currently holds control: a
// control change can race an in-flight sample, and one stale relay is
// harmless because followers re-converge on the next sample.
func (c *controller) handlePlayerState(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	relayResp, err := c.roomService.Relay(ctx, conn)
	if err != nil {
		return fmt.Errorf("failed to resolve sender: %w", err)
	}

	c.broadcast(ctx, relayResp.Conns, &Output{
		Type:    "PLAYER_STATE",
		Payload: payload,
	})

	return nil
}

type VideoProgressInput struct {
	Time          float64  `json:"time"`
	PlayingItemId *string  `json:"playing_item_id"`
	Duration      *float64 `json:"duration"`
}

func (c *controller) handleVideoProgress(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	input, err := wsrouter.Decode[VideoProgressInput](payload)
	if err != nil {
		return err
	}

	updateProgressResp, err := c.roomService.UpdateProgress(ctx, &room.UpdateProgressParams{
		Conn:          conn,
		Progress:      input.Time,
		PlayingItemId: input.PlayingItemId,
	})
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}

	c.broadcast(ctx, updateProgressResp.Conns, &Output{
		Type: "MEMBER_PROGRESS",
		Payload: map[string]any{
			"user_id":         updateProgressResp.Update.UserId,
			"time":            updateProgressResp.Update.Progress,
			"playing_item_id": updateProgressResp.Update.PlayingItemId,
		},
	})

	return nil
}

type PlaylistUpdateInput struct {
	Playlist []domain.PlayItem `json:"playlist" validate:"dive"`
}

func (c *controller) handlePlaylistUpdate(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	input, err := wsrouter.Decode[PlaylistUpdateInput](payload)
	if err != nil {
		return err
	}

	updatePlaylistResp, err := c.roomService.UpdatePlaylist(ctx, &room.UpdatePlaylistParams{
		Conn:     conn,
		Playlist: input.Playlist,
	})
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	c.broadcast(ctx, updatePlaylistResp.Conns, &Output{
		Type:    "PLAYLIST_UPDATE",
		Payload: map[string]any{"playlist": updatePlaylistResp.Playlist},
	})

	return nil
}

type SetRoomCookieInput struct {
	Cookie string `json:"cookie" validate:"required"`
}

func (c *controller) handleSetRoomCookie(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	input, err := wsrouter.Decode[SetRoomCookieInput](payload)
	if err != nil {
		return err
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %v", ErrValidationError, validationErrors)
	}

	relayResp, err := c.roomService.Relay(ctx, conn)
	if err != nil {
		return fmt.Errorf("failed to resolve sender: %w", err)
	}

	setCredentialResp, err := c.roomService.SetSharedCredential(ctx, &room.SetSharedCredentialParams{
		RoomId:     relayResp.RoomId,
		SenderId:   relayResp.UserId,
		Credential: &input.Cookie,
	})
	if err != nil {
		return fmt.Errorf("failed to set room cookie: %w", err)
	}

	c.broadcastRoomUpdate(ctx, setCredentialResp.Conns, setCredentialResp.Room)

	return nil
}

type ChatMessageInput struct {
	Id         string  `json:"id" validate:"required"`
	SenderId   string  `json:"sender_id" validate:"required"`
	SenderName *string `json:"sender_name"`
	Content    string  `json:"content" validate:"required,max=2000"`
	Timestamp  int64   `json:"timestamp"`
}

// handleChatMessage relays without storing. Duplicates are the client's
// problem, they dedupe by message id.
func (c *controller) handleChatMessage(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	input, err := wsrouter.Decode[ChatMessageInput](payload)
	if err != nil {
		return err
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %v", ErrValidationError, validationErrors)
	}

	relayResp, err := c.roomService.Relay(ctx, conn)
	if err != nil {
		return fmt.Errorf("failed to resolve sender: %w", err)
	}

	c.broadcast(ctx, relayResp.Conns, &Output{
		Type:    "CHAT_MESSAGE",
		Payload: payload,
	})

	return nil
}

func (c *controller) broadcastRoomUpdate(ctx context.Context, conns []*websocket.Conn, state room.RoomState) {
	c.broadcast(ctx, conns, &Output{
		Type:    "ROOM_UPDATE",
		Payload: state,
	})
}
