package room

type SetRoomParams struct {
	RoomId           string `json:"room_id"`
	OwnerId          string `json:"owner_id"`
	ControllerId     string `json:"controller_id"`
	MediaJSON        string `json:"-"`
	PlaylistJSON     string `json:"-"`
	SharedCredential string `json:"-"`
}

type SetMemberParams struct {
	RoomId          string  `json:"room_id"`
	UserId          string  `json:"user_id"`
	Name            string  `json:"name"`
	JoinedAt        int64   `json:"joined_at"`
	CurrentProgress float64 `json:"current_progress"`
}

type GetMemberParams struct {
	RoomId string `json:"room_id"`
	UserId string `json:"user_id"`
}

type RemoveMemberParams struct {
	RoomId string `json:"room_id"`
	UserId string `json:"user_id"`
}

type SetItemProgressParams struct {
	RoomId   string  `json:"room_id"`
	ItemId   string  `json:"item_id"`
	Progress float64 `json:"progress"`
}
