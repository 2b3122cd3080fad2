package redis

import (
	"context"
	"fmt"

	"github.com/watchsync/server/internal/repository/room"
)

func (r repo) SetRoom(ctx context.Context, params *room.SetRoomParams) error {
	pipe := r.rc.TxPipeline()

	roomKey := r.getRoomKey(params.RoomId)
	pipe.HSet(ctx, roomKey,
		"owner_id", params.OwnerId,
		"controller_id", params.ControllerId,
		"media_json", params.MediaJSON,
		"playlist_json", params.PlaylistJSON,
		"shared_credential", params.SharedCredential,
	)
	pipe.SAdd(ctx, r.getOwnerRoomsKey(params.OwnerId), params.RoomId)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (r repo) GetRoom(ctx context.Context, roomId string) (room.Room, error) {
	roomKey := r.getRoomKey(roomId)

	exists, err := r.rc.Exists(ctx, roomKey).Result()
	if err != nil {
		return room.Room{}, fmt.Errorf("failed to check if room exists: %w", err)
	}
	if exists == 0 {
		return room.Room{}, room.ErrRoomNotFound
	}

	var model room.Room
	if err := r.rc.HGetAll(ctx, roomKey).Scan(&model); err != nil {
		return room.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	return model, nil
}

func (r repo) RoomExists(ctx context.Context, roomId string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.getRoomKey(roomId)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if room exists: %w", err)
	}

	return res > 0, nil
}

func (r repo) RemoveRoom(ctx context.Context, roomId, ownerId string) error {
	userIds, err := r.GetMemberIds(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to get member ids: %w", err)
	}

	pipe := r.rc.TxPipeline()
	for _, userId := range userIds {
		pipe.Del(ctx, r.getMemberKey(roomId, userId))
	}
	pipe.Del(ctx, r.getMemberListKey(roomId))
	pipe.Del(ctx, r.getProgressKey(roomId))
	pipe.Del(ctx, r.getRoomKey(roomId))
	pipe.SRem(ctx, r.getOwnerRoomsKey(ownerId), roomId)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to remove room: %w", err)
	}

	return nil
}

func (r repo) GetOwnerRoomIds(ctx context.Context, ownerId string) ([]string, error) {
	roomIds, err := r.rc.SMembers(ctx, r.getOwnerRoomsKey(ownerId)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get owner room ids: %w", err)
	}

	return roomIds, nil
}

func (r repo) SetItemProgress(ctx context.Context, params *room.SetItemProgressParams) error {
	if err := r.rc.HSet(ctx, r.getProgressKey(params.RoomId), params.ItemId, params.Progress).Err(); err != nil {
		return fmt.Errorf("failed to set item progress: %w", err)
	}

	return nil
}

func (r repo) GetItemProgress(ctx context.Context, roomId string) (map[string]float64, error) {
	fields, err := r.rc.HGetAll(ctx, r.getProgressKey(roomId)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get item progress: %w", err)
	}

	progress := make(map[string]float64, len(fields))
	for itemId, field := range fields {
		progress[itemId] = r.fieldToFloat64(field)
	}

	return progress, nil
}
