package domain

// Snapshot is the flat, losslessly serializable form of a room.
type Snapshot struct {
	Id               string             `json:"id"`
	OwnerId          string             `json:"owner_id"`
	Members          []Member           `json:"members"`
	ControllerId     *string            `json:"controller_id"`
	Media            *Media             `json:"media,omitempty"`
	Playlist         []PlayItem         `json:"playlist"`
	SharedCredential *string            `json:"shared_credential,omitempty"`
	ItemProgress     map[string]float64 `json:"item_progress,omitempty"`
}

func (r *Room) Snapshot() Snapshot {
	members := make([]Member, len(r.Members))
	copy(members, r.Members)

	playlist := make([]PlayItem, len(r.Playlist))
	copy(playlist, r.Playlist)

	progress := make(map[string]float64, len(r.ItemProgress))
	for itemId, p := range r.ItemProgress {
		progress[itemId] = p
	}

	return Snapshot{
		Id:               r.Id,
		OwnerId:          r.OwnerId,
		Members:          members,
		ControllerId:     copyString(r.ControllerId),
		Media:            r.Media,
		Playlist:         playlist,
		SharedCredential: copyString(r.SharedCredential),
		ItemProgress:     progress,
	}
}

// RoomFromSnapshot reconstructs a room with its invariants intact: an
// empty member list gets the owner re-added, and a controller id that
// no longer references a member is dropped.
func RoomFromSnapshot(s Snapshot) *Room {
	r := &Room{
		Id:               s.Id,
		OwnerId:          s.OwnerId,
		Members:          s.Members,
		Media:            s.Media,
		Playlist:         s.Playlist,
		SharedCredential: copyString(s.SharedCredential),
		ItemProgress:     s.ItemProgress,
	}

	if r.Members == nil {
		r.Members = []Member{}
	}
	if r.Playlist == nil {
		r.Playlist = []PlayItem{}
	}
	if r.ItemProgress == nil {
		r.ItemProgress = make(map[string]float64)
	}

	if len(r.Members) == 0 {
		r.Members = append(r.Members, Member{UserId: s.OwnerId})
	}

	if s.ControllerId != nil && r.IsMember(*s.ControllerId) {
		r.ControllerId = copyString(s.ControllerId)
	}

	return r
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}

	v := *s
	return &v
}
