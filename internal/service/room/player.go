package room

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/watchsync/server/internal/domain"
)

type TakeControlParams struct {
	Conn *websocket.Conn

	// RoomId is optional; when set it must name the room the sender
	// already joined.
	RoomId string
}

type TakeControlResponse struct {
	Room  RoomState
	Conns []*websocket.Conn
}

// TakeControl hands the leader role to the requesting member
// unconditionally. Any member may claim it at any time; the previous
// holder simply becomes a follower.
func (s *service) TakeControl(ctx context.Context, params *TakeControlParams) (TakeControlResponse, error) {
	roomId, userId, err := s.connRepo.GetByConn(params.Conn)
	if err != nil {
		return TakeControlResponse{}, ErrMemberNotConnected
	}

	if params.RoomId != "" && params.RoomId != roomId {
		return TakeControlResponse{}, ErrRoomMismatch
	}

	unlock := s.lockRoom(roomId)
	defer unlock()

	r, err := s.getRoom(ctx, roomId)
	if err != nil {
		return TakeControlResponse{}, err
	}

	r.SetController(&userId)

	if err := s.persist(ctx, r); err != nil {
		return TakeControlResponse{}, err
	}

	return TakeControlResponse{
		Room:  s.roomState(r),
		Conns: s.connRepo.GetConns(roomId),
	}, nil
}

type SetMediaParams struct {
	Conn  *websocket.Conn
	Media *domain.Media
}

type SetMediaResponse struct {
	RoomId string
	UserId string
	Media  *domain.Media
	Conns  []*websocket.Conn
}

// SetMedia replaces the loaded media wholesale and relays it to every
// other member. A known playlist item resumes from its recorded
// position, surfaced to clients through the media meta.
func (s *service) SetMedia(ctx context.Context, params *SetMediaParams) (SetMediaResponse, error) {
	roomId, userId, err := s.connRepo.GetByConn(params.Conn)
	if err != nil {
		return SetMediaResponse{}, ErrMemberNotConnected
	}

	unlock := s.lockRoom(roomId)
	defer unlock()

	r, err := s.getRoom(ctx, roomId)
	if err != nil {
		return SetMediaResponse{}, err
	}

	media := params.Media
	if media != nil && media.PlayingItemId != nil {
		if progress, ok := r.ItemProgress[*media.PlayingItemId]; ok && progress > 0 {
			if media.Meta == nil {
				media.Meta = make(map[string]any)
			}
			media.Meta["resume_from"] = progress
		}
	}

	r.SetMedia(media)

	if err := s.persist(ctx, r); err != nil {
		return SetMediaResponse{}, err
	}

	return SetMediaResponse{
		RoomId: roomId,
		UserId: userId,
		Media:  r.Media,
		Conns:  s.connRepo.GetConns(roomId, userId),
	}, nil
}

type UpdatePlaylistParams struct {
	Conn     *websocket.Conn
	Playlist []domain.PlayItem
}

type UpdatePlaylistResponse struct {
	RoomId   string
	UserId   string
	Playlist []domain.PlayItem
	Conns    []*websocket.Conn
}

func (s *service) UpdatePlaylist(ctx context.Context, params *UpdatePlaylistParams) (UpdatePlaylistResponse, error) {
	roomId, userId, err := s.connRepo.GetByConn(params.Conn)
	if err != nil {
		return UpdatePlaylistResponse{}, ErrMemberNotConnected
	}

	unlock := s.lockRoom(roomId)
	defer unlock()

	r, err := s.getRoom(ctx, roomId)
	if err != nil {
		return UpdatePlaylistResponse{}, err
	}

	r.SetPlaylist(params.Playlist)

	if err := s.persist(ctx, r); err != nil {
		return UpdatePlaylistResponse{}, err
	}

	return UpdatePlaylistResponse{
		RoomId:   roomId,
		UserId:   userId,
		Playlist: r.Playlist,
		Conns:    s.connRepo.GetConns(roomId, userId),
	}, nil
}

type RelayResponse struct {
	RoomId string
	UserId string
	Conns  []*websocket.Conn
}

// Relay resolves the sender and returns every other member's channel.
// Used for messages the room does not store: leader player state and
// chat. The payload passes through untouched.
func (s *service) Relay(ctx context.Context, conn *websocket.Conn) (RelayResponse, error) {
	roomId, userId, err := s.connRepo.GetByConn(conn)
	if err != nil {
		return RelayResponse{}, ErrMemberNotConnected
	}

	return RelayResponse{
		RoomId: roomId,
		UserId: userId,
		Conns:  s.connRepo.GetConns(roomId, userId),
	}, nil
}
