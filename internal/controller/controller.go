package controller

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/watchsync/server/internal/metrics"
	"github.com/watchsync/server/internal/service/room"
	"github.com/watchsync/server/pkg/validator"
	"github.com/watchsync/server/pkg/wsrouter"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	ListRooms(context.Context, string) (room.ListRoomsResponse, error)
	DeleteRoom(context.Context, *room.DeleteRoomParams) error
	SetSharedCredential(context.Context, *room.SetSharedCredentialParams) (room.SetSharedCredentialResponse, error)
	GetSharedCredential(ctx context.Context, roomId, senderId string) (room.GetSharedCredentialResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	DisconnectByConn(context.Context, *websocket.Conn) (room.DisconnectResponse, error)
	TakeControl(context.Context, *room.TakeControlParams) (room.TakeControlResponse, error)
	SetMedia(context.Context, *room.SetMediaParams) (room.SetMediaResponse, error)
	UpdatePlaylist(context.Context, *room.UpdatePlaylistParams) (room.UpdatePlaylistResponse, error)
	UpdateProgress(context.Context, *room.UpdateProgressParams) (room.UpdateProgressResponse, error)
	Relay(context.Context, *websocket.Conn) (room.RelayResponse, error)
}

type Config struct {
	// MessageRate caps how many messages a single connection may send
	// per second; MessageBurst is the bucket size. Zero values disable
	// the limiter.
	MessageRate  float64
	MessageBurst int
}

type controller struct {
	roomService iRoomService
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	logger      *slog.Logger
	metrics     *metrics.Collector
	wsmux       *wsrouter.WSRouter
	cfg         Config

	limitersMu sync.Mutex
	limiters   map[*websocket.Conn]*rate.Limiter

	// one writer at a time per socket; gorilla connections do not
	// tolerate concurrent writes
	writeLocksMu sync.Mutex
	writeLocks   map[*websocket.Conn]*sync.Mutex
}

func NewController(roomService iRoomService, collector *metrics.Collector, cfg Config, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		validate:    validator.New(),
		logger:      logger,
		metrics:     collector,
		cfg:         cfg,
		limiters:    make(map[*websocket.Conn]*rate.Limiter),
		writeLocks:  make(map[*websocket.Conn]*sync.Mutex),
	}
	c.wsmux = c.getWSRouter()

	return c
}

func (c *controller) connWriteLock(conn *websocket.Conn) *sync.Mutex {
	c.writeLocksMu.Lock()
	defer c.writeLocksMu.Unlock()

	mu, ok := c.writeLocks[conn]
	if !ok {
		mu = &sync.Mutex{}
		c.writeLocks[conn] = mu
	}

	return mu
}

func (c *controller) dropConnWriteLock(conn *websocket.Conn) {
	c.writeLocksMu.Lock()
	delete(c.writeLocks, conn)
	c.writeLocksMu.Unlock()
}

func (c *controller) generateRequestId() string {
	return uuid.NewString()
}
