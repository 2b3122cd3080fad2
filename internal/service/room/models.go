package room

import "github.com/watchsync/server/internal/domain"

type Member struct {
	UserId          string  `json:"user_id"`
	Name            string  `json:"name,omitempty"`
	JoinedAt        int64   `json:"joined_at"`
	CurrentProgress float64 `json:"current_progress"`
	IsOnline        bool    `json:"is_online"`
}

// RoomState is the full room snapshot sent as the ROOM_UPDATE payload
// after any membership, control or credential mutation. IsOnline is
// derived from the connection registry at snapshot time, never stored.
type RoomState struct {
	RoomId           string        `json:"room_id"`
	OwnerId          string        `json:"owner_id"`
	ControllerId     *string       `json:"controller_id"`
	SharedCredential *string       `json:"shared_credential,omitempty"`
	Media            *domain.Media `json:"media,omitempty"`
	Members          []Member      `json:"members"`
}
