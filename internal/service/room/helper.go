package room

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/watchsync/server/internal/domain"
	"github.com/watchsync/server/internal/repository/room"
)

// getRoom serves from the in-process cache and falls back to
// rehydrating the full model from storage.
func (s *service) getRoom(ctx context.Context, roomId string) (*domain.Room, error) {
	s.cacheMu.RLock()
	cached, ok := s.cache[roomId]
	s.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	rehydrated, err := s.rehydrateRoom(ctx, roomId)
	if err != nil {
		return nil, err
	}

	s.cacheMu.Lock()
	s.cache[roomId] = rehydrated
	s.cacheMu.Unlock()

	return rehydrated, nil
}

func (s *service) rehydrateRoom(ctx context.Context, roomId string) (*domain.Room, error) {
	model, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		if err == room.ErrRoomNotFound {
			return nil, ErrRoomNotFound
		}

		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	snapshot := domain.Snapshot{
		Id:      roomId,
		OwnerId: model.OwnerId,
	}

	if model.ControllerId != "" {
		controllerId := model.ControllerId
		snapshot.ControllerId = &controllerId
	}
	if model.SharedCredential != "" {
		credential := model.SharedCredential
		snapshot.SharedCredential = &credential
	}
	if model.MediaJSON != "" {
		var media domain.Media
		if err := json.Unmarshal([]byte(model.MediaJSON), &media); err != nil {
			return nil, fmt.Errorf("failed to unmarshal media: %w", err)
		}
		snapshot.Media = &media
	}
	if model.PlaylistJSON != "" {
		if err := json.Unmarshal([]byte(model.PlaylistJSON), &snapshot.Playlist); err != nil {
			return nil, fmt.Errorf("failed to unmarshal playlist: %w", err)
		}
	}

	userIds, err := s.roomRepo.GetMemberIds(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	for _, userId := range userIds {
		member, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{RoomId: roomId, UserId: userId})
		if err != nil {
			return nil, fmt.Errorf("failed to get member: %w", err)
		}

		snapshot.Members = append(snapshot.Members, domain.Member{
			UserId:          userId,
			Name:            member.Name,
			JoinedAt:        unixToTime(member.JoinedAt),
			CurrentProgress: member.CurrentProgress,
		})
	}

	snapshot.ItemProgress, err = s.roomRepo.GetItemProgress(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to get item progress: %w", err)
	}

	return domain.RoomFromSnapshot(snapshot), nil
}

// persist writes the room snapshot and upserts every member row. It is
// always called after the in-memory mutation and before any broadcast,
// so a restart between the steps leaves storage consistent with the
// last persisted state.
func (s *service) persist(ctx context.Context, r *domain.Room) error {
	params := room.SetRoomParams{
		RoomId:  r.Id,
		OwnerId: r.OwnerId,
	}

	if r.ControllerId != nil {
		params.ControllerId = *r.ControllerId
	}
	if r.SharedCredential != nil {
		params.SharedCredential = *r.SharedCredential
	}
	if r.Media != nil {
		mediaJSON, err := json.Marshal(r.Media)
		if err != nil {
			return fmt.Errorf("failed to marshal media: %w", err)
		}
		params.MediaJSON = string(mediaJSON)
	}
	if len(r.Playlist) > 0 {
		playlistJSON, err := json.Marshal(r.Playlist)
		if err != nil {
			return fmt.Errorf("failed to marshal playlist: %w", err)
		}
		params.PlaylistJSON = string(playlistJSON)
	}

	if err := s.roomRepo.SetRoom(ctx, &params); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	for _, member := range r.Members {
		if err := s.persistMember(ctx, r.Id, member); err != nil {
			return err
		}
	}

	return nil
}

func (s *service) persistMember(ctx context.Context, roomId string, member domain.Member) error {
	if err := s.roomRepo.SetMember(ctx, &room.SetMemberParams{
		RoomId:          roomId,
		UserId:          member.UserId,
		Name:            member.Name,
		JoinedAt:        member.JoinedAt.Unix(),
		CurrentProgress: member.CurrentProgress,
	}); err != nil {
		return fmt.Errorf("failed to set member: %w", err)
	}

	return nil
}

func unixToTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// roomState builds the broadcastable snapshot, annotating every member
// with its derived online flag.
func (s *service) roomState(r *domain.Room) RoomState {
	members := make([]Member, 0, len(r.Members))
	for _, member := range r.Members {
		members = append(members, Member{
			UserId:          member.UserId,
			Name:            member.Name,
			JoinedAt:        member.JoinedAt.Unix(),
			CurrentProgress: member.CurrentProgress,
			IsOnline:        s.connRepo.IsOnline(r.Id, member.UserId),
		})
	}

	return RoomState{
		RoomId:           r.Id,
		OwnerId:          r.OwnerId,
		ControllerId:     r.ControllerId,
		SharedCredential: r.SharedCredential,
		Media:            r.Media,
		Members:          members,
	}
}
