// Package domain holds the room state model. It is pure data: every
// mutation is synchronous, total and idempotent where natural, and the
// model never touches I/O. Persistence and fan-out live in the service
// and repository layers.
package domain

import "time"

type Member struct {
	UserId          string    `json:"user_id"`
	Name            string    `json:"name,omitempty"`
	JoinedAt        time.Time `json:"joined_at"`
	CurrentProgress float64   `json:"current_progress"`
}

type Media struct {
	FileId        string         `json:"file_id"`
	Url           string         `json:"url,omitempty"`
	Title         string         `json:"title,omitempty"`
	Provider      string         `json:"provider,omitempty"`
	Meta          map[string]any `json:"meta,omitempty"`
	PlayingItemId *string        `json:"playing_item_id,omitempty"`
}

// PlayItem carries its own stable id distinct from the file reference,
// so reordering or removal does not disturb "currently playing" identity.
type PlayItem struct {
	Id       string `json:"id"`
	FileId   string `json:"file_id"`
	Title    string `json:"title,omitempty"`
	Provider string `json:"provider,omitempty"`
}

type Room struct {
	Id               string
	OwnerId          string
	Members          []Member
	ControllerId     *string
	Media            *Media
	Playlist         []PlayItem
	SharedCredential *string
	ItemProgress     map[string]float64
}

// NewRoom creates a room with the owner as its only member and initial
// controller, and an empty playlist.
func NewRoom(id, ownerId, ownerName string, createdAt time.Time) *Room {
	controllerId := ownerId

	return &Room{
		Id:      id,
		OwnerId: ownerId,
		Members: []Member{{
			UserId:   ownerId,
			Name:     ownerName,
			JoinedAt: createdAt,
		}},
		ControllerId: &controllerId,
		ItemProgress: make(map[string]float64),
	}
}

func (r *Room) Member(userId string) (Member, bool) {
	for _, member := range r.Members {
		if member.UserId == userId {
			return member, true
		}
	}

	return Member{}, false
}

func (r *Room) IsMember(userId string) bool {
	_, ok := r.Member(userId)
	return ok
}

// AddMember upserts: re-adding an existing user id updates the name
// instead of duplicating, and keeps the original JoinedAt.
func (r *Room) AddMember(userId, name string, joinedAt time.Time) Member {
	for i, member := range r.Members {
		if member.UserId == userId {
			if name != "" {
				r.Members[i].Name = name
			}

			return r.Members[i]
		}
	}

	member := Member{
		UserId:   userId,
		Name:     name,
		JoinedAt: joinedAt,
	}
	r.Members = append(r.Members, member)

	return member
}

// RemoveMember is a no-op for an absent user id. Removing the member
// that holds control clears the controller.
func (r *Room) RemoveMember(userId string) {
	for i, member := range r.Members {
		if member.UserId == userId {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			if r.ControllerId != nil && *r.ControllerId == userId {
				r.ControllerId = nil
			}

			return
		}
	}
}

func (r *Room) SetMedia(media *Media) {
	r.Media = media
}

// SetController accepts nil or a current member's id; an unknown id is
// ignored so the controller always references someone who has been a
// member.
func (r *Room) SetController(userId *string) {
	if userId == nil {
		r.ControllerId = nil
		return
	}

	if !r.IsMember(*userId) {
		return
	}

	id := *userId
	r.ControllerId = &id
}

func (r *Room) SetPlaylist(playlist []PlayItem) {
	r.Playlist = playlist
}

func (r *Room) SetSharedCredential(credential *string) {
	r.SharedCredential = credential
}

// SetMemberProgress updates the member's advisory playback position.
// It reports whether the user id named a current member.
func (r *Room) SetMemberProgress(userId string, progress float64) bool {
	for i, member := range r.Members {
		if member.UserId == userId {
			r.Members[i].CurrentProgress = progress
			return true
		}
	}

	return false
}

// SetItemProgress records the controller's authoritative position for a
// play item.
func (r *Room) SetItemProgress(itemId string, progress float64) {
	if r.ItemProgress == nil {
		r.ItemProgress = make(map[string]float64)
	}

	r.ItemProgress[itemId] = progress
}
