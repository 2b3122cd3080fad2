package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/watchsync/server/internal/domain"
	"github.com/watchsync/server/internal/repository/room"
	"github.com/watchsync/server/pkg/randstr"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrMemberNotFound     = errors.New("member not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrMembersLimit       = errors.New("members limit reached")
	ErrRoomIdsExhausted   = errors.New("room id generation exhausted")
	ErrMemberNotConnected = errors.New("member is not connected to a room")
	ErrAlreadyJoined      = errors.New("connection already joined another room")
	ErrRoomMismatch       = errors.New("room id does not match the joined room")
)

type iRoomRepo interface {
	SetRoom(context.Context, *room.SetRoomParams) error
	GetRoom(context.Context, string) (room.Room, error)
	RoomExists(context.Context, string) (bool, error)
	RemoveRoom(ctx context.Context, roomId, ownerId string) error
	GetOwnerRoomIds(context.Context, string) ([]string, error)
	SetMember(context.Context, *room.SetMemberParams) error
	GetMember(context.Context, *room.GetMemberParams) (room.Member, error)
	GetMemberIds(context.Context, string) ([]string, error)
	RemoveMember(context.Context, *room.RemoveMemberParams) error
	SetItemProgress(context.Context, *room.SetItemProgressParams) error
	GetItemProgress(context.Context, string) (map[string]float64, error)
}

type iConnRepo interface {
	Add(roomId, userId string, conn *websocket.Conn) error
	Remove(roomId, userId string) (*websocket.Conn, error)
	RemoveByConn(conn *websocket.Conn) (string, string, error)
	GetByConn(conn *websocket.Conn) (string, string, error)
	GetConn(roomId, userId string) (*websocket.Conn, error)
	GetConns(roomId string, excludeUserIds ...string) []*websocket.Conn
	IsOnline(roomId, userId string) bool
	OnlineUserIds(roomId string) []string
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	RoomIdLength  int
	CreateRetries int
	MembersLimit  int
}

type service struct {
	roomRepo  iRoomRepo
	connRepo  iConnRepo
	generator iGenerator
	logger    *slog.Logger
	cfg       Config

	// cache holds the rehydrated room models; every mutation goes
	// through the per-room lock so a room's handlers run to completion
	// without interleaving.
	cacheMu sync.RWMutex
	cache   map[string]*domain.Room

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, cfg Config, logger *slog.Logger) *service {
	if cfg.RoomIdLength <= 0 {
		cfg.RoomIdLength = 8
	}
	if cfg.CreateRetries <= 0 {
		cfg.CreateRetries = 5
	}
	if cfg.MembersLimit <= 0 {
		cfg.MembersLimit = 50
	}

	letterBytes := []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

	return &service{
		roomRepo:  roomRepo,
		connRepo:  connRepo,
		generator: randstr.New(letterBytes),
		logger:    logger,
		cfg:       cfg,
		cache:     make(map[string]*domain.Room),
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockRoom serializes every mutation of a single room. Distinct rooms
// proceed independently.
func (s *service) lockRoom(roomId string) func() {
	s.locksMu.Lock()
	lock, ok := s.locks[roomId]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[roomId] = lock
	}
	s.locksMu.Unlock()

	lock.Lock()

	return lock.Unlock
}
