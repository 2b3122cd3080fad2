package room

// Room is the flat record a room hash scans into. Media and playlist
// are stored as JSON blobs because they are always read and replaced
// wholesale; members live in their own rows.
type Room struct {
	OwnerId          string `redis:"owner_id"`
	ControllerId     string `redis:"controller_id"`
	MediaJSON        string `redis:"media_json"`
	PlaylistJSON     string `redis:"playlist_json"`
	SharedCredential string `redis:"shared_credential"`
}

type Member struct {
	Name            string  `redis:"name"`
	JoinedAt        int64   `redis:"joined_at"`
	CurrentProgress float64 `redis:"current_progress"`
}
