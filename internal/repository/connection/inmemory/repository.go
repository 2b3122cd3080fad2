// Package inmemory holds the connection registry: the per-room map from
// user id to live websocket channel. It is constructor-injected and
// owned by the server process, never shared as package state.
package inmemory

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/watchsync/server/internal/repository/connection"
)

type connKey struct {
	roomId string
	userId string
}

type repo struct {
	rooms    map[string]map[string]*websocket.Conn
	connList map[*websocket.Conn]connKey
	mu       sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		rooms:    make(map[string]map[string]*websocket.Conn),
		connList: make(map[*websocket.Conn]connKey),
	}
}

// Add registers the live channel for a member. A member reconnecting
// over a new socket replaces its previous channel. Re-adding the same
// socket under the same membership is a no-op; a socket already bound
// to a different membership is rejected.
func (r *repo) Add(roomId, userId string, conn *websocket.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key, ok := r.connList[conn]; ok {
		if key.roomId == roomId && key.userId == userId {
			return nil
		}

		return connection.ErrAlreadyExists
	}

	members, ok := r.rooms[roomId]
	if !ok {
		members = make(map[string]*websocket.Conn)
		r.rooms[roomId] = members
	}

	if prev, ok := members[userId]; ok {
		delete(r.connList, prev)
	}

	members[userId] = conn
	r.connList[conn] = connKey{roomId: roomId, userId: userId}

	return nil
}

func (r *repo) Remove(roomId, userId string) (*websocket.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	conn, ok := members[userId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	r.remove(roomId, userId, conn)

	return conn, nil
}

func (r *repo) RemoveByConn(conn *websocket.Conn) (string, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.connList[conn]
	if !ok {
		return "", "", connection.ErrNotFound
	}

	r.remove(key.roomId, key.userId, conn)

	return key.roomId, key.userId, nil
}

func (r *repo) remove(roomId, userId string, conn *websocket.Conn) {
	delete(r.connList, conn)
	delete(r.rooms[roomId], userId)
	if len(r.rooms[roomId]) == 0 {
		delete(r.rooms, roomId)
	}
}

func (r *repo) GetByConn(conn *websocket.Conn) (string, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.connList[conn]
	if !ok {
		return "", "", connection.ErrNotFound
	}

	return key.roomId, key.userId, nil
}

func (r *repo) GetConn(roomId, userId string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.rooms[roomId][userId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

// GetConns returns every live channel in the room except the excluded
// user ids. Missing rooms yield an empty slice, fan-out is best-effort.
func (r *repo) GetConns(roomId string, excludeUserIds ...string) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomId]
	conns := make([]*websocket.Conn, 0, len(members))
	for userId, conn := range members {
		if excluded(userId, excludeUserIds) {
			continue
		}

		conns = append(conns, conn)
	}

	return conns
}

func (r *repo) IsOnline(roomId, userId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomId][userId]

	return ok
}

// OnlineUserIds returns the ids of every member with a live channel.
func (r *repo) OnlineUserIds(roomId string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomId]
	userIds := make([]string, 0, len(members))
	for userId := range members {
		userIds = append(userIds, userId)
	}

	return userIds
}

func excluded(userId string, excludeUserIds []string) bool {
	for _, excludedId := range excludeUserIds {
		if userId == excludedId {
			return true
		}
	}

	return false
}
