package room

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slices"

	"github.com/watchsync/server/internal/domain"
)

type CreateRoomParams struct {
	OwnerId   string
	OwnerName string
}

type CreateRoomResponse struct {
	Room RoomState
}

// CreateRoom generates a collision-checked short room id. The owner
// becomes the only member and the initial controller.
func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	var roomId string
	for attempt := 0; ; attempt++ {
		if attempt >= s.cfg.CreateRetries {
			return CreateRoomResponse{}, ErrRoomIdsExhausted
		}

		roomId = s.generator.GenerateRandomString(s.cfg.RoomIdLength)
		exists, err := s.roomRepo.RoomExists(ctx, roomId)
		if err != nil {
			return CreateRoomResponse{}, fmt.Errorf("failed to check if room exists: %w", err)
		}
		if !exists {
			break
		}

		s.logger.InfoContext(ctx, "room id collision", "room_id", roomId, "attempt", attempt)
	}

	r := domain.NewRoom(roomId, params.OwnerId, params.OwnerName, time.Now())
	if err := s.persist(ctx, r); err != nil {
		return CreateRoomResponse{}, err
	}

	s.cacheMu.Lock()
	s.cache[roomId] = r
	s.cacheMu.Unlock()

	return CreateRoomResponse{Room: s.roomState(r)}, nil
}

type GetRoomResponse struct {
	Room     RoomState
	Playlist []domain.PlayItem
}

func (s *service) GetRoom(ctx context.Context, roomId string) (GetRoomResponse, error) {
	unlock := s.lockRoom(roomId)
	defer unlock()

	r, err := s.getRoom(ctx, roomId)
	if err != nil {
		return GetRoomResponse{}, err
	}

	return GetRoomResponse{
		Room:     s.roomState(r),
		Playlist: r.Playlist,
	}, nil
}

type ListRoomsResponse struct {
	Rooms []RoomState
}

func (s *service) ListRooms(ctx context.Context, ownerId string) (ListRoomsResponse, error) {
	roomIds, err := s.roomRepo.GetOwnerRoomIds(ctx, ownerId)
	if err != nil {
		return ListRoomsResponse{}, fmt.Errorf("failed to get owner room ids: %w", err)
	}
	slices.Sort(roomIds)

	rooms := make([]RoomState, 0, len(roomIds))
	for _, roomId := range roomIds {
		state, err := s.GetRoom(ctx, roomId)
		if err != nil {
			return ListRoomsResponse{}, err
		}

		rooms = append(rooms, state.Room)
	}

	return ListRoomsResponse{Rooms: rooms}, nil
}

type DeleteRoomParams struct {
	RoomId   string
	SenderId string
}

// DeleteRoom removes the room and all membership records. Only the
// owner may delete.
func (s *service) DeleteRoom(ctx context.Context, params *DeleteRoomParams) error {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	r, err := s.getRoom(ctx, params.RoomId)
	if err != nil {
		return err
	}

	if r.OwnerId != params.SenderId {
		return ErrPermissionDenied
	}

	if err := s.roomRepo.RemoveRoom(ctx, params.RoomId, r.OwnerId); err != nil {
		return fmt.Errorf("failed to remove room: %w", err)
	}

	s.cacheMu.Lock()
	delete(s.cache, params.RoomId)
	s.cacheMu.Unlock()

	return nil
}

type SetSharedCredentialParams struct {
	RoomId     string
	SenderId   string
	Credential *string
}

type SetSharedCredentialResponse struct {
	Room  RoomState
	Conns []*websocket.Conn
}

// SetSharedCredential is owner-only. The updated snapshot goes to every
// member since the credential is room-scoped.
func (s *service) SetSharedCredential(ctx context.Context, params *SetSharedCredentialParams) (SetSharedCredentialResponse, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	r, err := s.getRoom(ctx, params.RoomId)
	if err != nil {
		return SetSharedCredentialResponse{}, err
	}

	if r.OwnerId != params.SenderId {
		return SetSharedCredentialResponse{}, ErrPermissionDenied
	}

	r.SetSharedCredential(params.Credential)

	if err := s.persist(ctx, r); err != nil {
		return SetSharedCredentialResponse{}, err
	}

	return SetSharedCredentialResponse{
		Room:  s.roomState(r),
		Conns: s.connRepo.GetConns(params.RoomId),
	}, nil
}

type GetSharedCredentialResponse struct {
	Credential *string
}

func (s *service) GetSharedCredential(ctx context.Context, roomId, senderId string) (GetSharedCredentialResponse, error) {
	unlock := s.lockRoom(roomId)
	defer unlock()

	r, err := s.getRoom(ctx, roomId)
	if err != nil {
		return GetSharedCredentialResponse{}, err
	}

	if r.OwnerId != senderId {
		return GetSharedCredentialResponse{}, ErrPermissionDenied
	}

	return GetSharedCredentialResponse{Credential: r.SharedCredential}, nil
}
