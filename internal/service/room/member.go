package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/watchsync/server/internal/domain"
	"github.com/watchsync/server/internal/repository/connection"
	roomRepo "github.com/watchsync/server/internal/repository/room"
)

type JoinRoomParams struct {
	RoomId string
	UserId string
	Name   string
	Conn   *websocket.Conn
}

type JoinRoomResponse struct {
	Room     RoomState
	Playlist []domain.PlayItem
	Created  bool
	Conns    []*websocket.Conn
}

// JoinRoom registers the connection and upserts membership. Joining an
// unknown room creates it with the joiner as owner and controller.
// Rejoining with the same user id is idempotent: the stored join order
// survives, only the channel is replaced.
func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	created := false
	r, err := s.getRoom(ctx, params.RoomId)
	if err != nil {
		if !errors.Is(err, ErrRoomNotFound) {
			return JoinRoomResponse{}, err
		}

		r = domain.NewRoom(params.RoomId, params.UserId, params.Name, time.Now())
		s.cacheMu.Lock()
		s.cache[params.RoomId] = r
		s.cacheMu.Unlock()
		created = true

		s.logger.InfoContext(ctx, "room created on join", "room_id", params.RoomId, "user_id", params.UserId)
	}

	if _, ok := r.Member(params.UserId); !ok && len(r.Members) >= s.cfg.MembersLimit {
		return JoinRoomResponse{}, ErrMembersLimit
	}

	r.AddMember(params.UserId, params.Name, time.Now())

	if err := s.persist(ctx, r); err != nil {
		return JoinRoomResponse{}, err
	}

	if err := s.connRepo.Add(params.RoomId, params.UserId, params.Conn); err != nil {
		if errors.Is(err, connection.ErrAlreadyExists) {
			return JoinRoomResponse{}, ErrAlreadyJoined
		}

		return JoinRoomResponse{}, fmt.Errorf("failed to register connection: %w", err)
	}

	return JoinRoomResponse{
		Room:     s.roomState(r),
		Playlist: r.Playlist,
		Created:  created,
		Conns:    s.connRepo.GetConns(params.RoomId, params.UserId),
	}, nil
}

type DisconnectResponse struct {
	RoomId      string
	UserId      string
	WasLast     bool
	HandedOver  bool
	NewLeaderId *string
	Room        RoomState
	Conns       []*websocket.Conn
}

// DisconnectByConn resolves the departing member from the registry and
// runs the controller handoff: when the controller leaves, control moves
// to the earliest-joined member who is still online, or to nobody. The
// room record itself is kept so the members can come back.
func (s *service) DisconnectByConn(ctx context.Context, conn *websocket.Conn) (DisconnectResponse, error) {
	roomId, userId, err := s.connRepo.RemoveByConn(conn)
	if err != nil {
		if errors.Is(err, connection.ErrNotFound) {
			return DisconnectResponse{}, ErrMemberNotConnected
		}

		return DisconnectResponse{}, fmt.Errorf("failed to remove connection: %w", err)
	}

	unlock := s.lockRoom(roomId)
	defer unlock()

	r, err := s.getRoom(ctx, roomId)
	if err != nil {
		return DisconnectResponse{}, err
	}

	resp := DisconnectResponse{RoomId: roomId, UserId: userId}

	if r.ControllerId != nil && *r.ControllerId == userId {
		r.SetController(s.pickNextLeader(r, userId))
		resp.HandedOver = true
		resp.NewLeaderId = r.ControllerId
	}

	if err := s.persist(ctx, r); err != nil {
		return DisconnectResponse{}, err
	}

	resp.Conns = s.connRepo.GetConns(roomId)
	resp.WasLast = len(resp.Conns) == 0
	resp.Room = s.roomState(r)

	return resp, nil
}

// pickNextLeader returns the earliest-joined member other than the
// departing one who still holds an open channel.
func (s *service) pickNextLeader(r *domain.Room, departingId string) *string {
	for _, member := range r.Members {
		if member.UserId == departingId {
			continue
		}
		if s.connRepo.IsOnline(r.Id, member.UserId) {
			userId := member.UserId
			return &userId
		}
	}

	return nil
}

type UpdateProgressParams struct {
	Conn          *websocket.Conn
	Progress      float64
	PlayingItemId *string
}

type ProgressUpdate struct {
	RoomId        string  `json:"room_id"`
	UserId        string  `json:"user_id"`
	Progress      float64 `json:"progress"`
	PlayingItemId *string `json:"playing_item_id,omitempty"`
}

type UpdateProgressResponse struct {
	Update ProgressUpdate
	Conns  []*websocket.Conn
}

// UpdateProgress records the reporting member's playback position. When
// the reporter currently holds control and media is loaded, the position
// also becomes the resume point for the playing item.
func (s *service) UpdateProgress(ctx context.Context, params *UpdateProgressParams) (UpdateProgressResponse, error) {
	roomId, userId, err := s.connRepo.GetByConn(params.Conn)
	if err != nil {
		return UpdateProgressResponse{}, ErrMemberNotConnected
	}

	unlock := s.lockRoom(roomId)
	defer unlock()

	r, err := s.getRoom(ctx, roomId)
	if err != nil {
		return UpdateProgressResponse{}, err
	}

	if !r.SetMemberProgress(userId, params.Progress) {
		return UpdateProgressResponse{}, ErrMemberNotFound
	}

	member, _ := r.Member(userId)
	if err := s.persistMember(ctx, roomId, member); err != nil {
		return UpdateProgressResponse{}, err
	}

	itemId := params.PlayingItemId
	if itemId == nil && r.Media != nil {
		itemId = r.Media.PlayingItemId
	}

	if r.ControllerId != nil && *r.ControllerId == userId && itemId != nil {
		r.SetItemProgress(*itemId, params.Progress)
		if err := s.roomRepo.SetItemProgress(ctx, &roomRepo.SetItemProgressParams{
			RoomId:   roomId,
			ItemId:   *itemId,
			Progress: params.Progress,
		}); err != nil {
			return UpdateProgressResponse{}, fmt.Errorf("failed to set item progress: %w", err)
		}
	}

	return UpdateProgressResponse{
		Update: ProgressUpdate{RoomId: roomId, UserId: userId, Progress: params.Progress, PlayingItemId: itemId},
		Conns:  s.connRepo.GetConns(roomId, userId),
	}, nil
}
