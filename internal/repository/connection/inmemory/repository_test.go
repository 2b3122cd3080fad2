package inmemory

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchsync/server/internal/repository/connection"
)

func TestAddAndLookup(t *testing.T) {
	r := NewRepo()
	conn := &websocket.Conn{}

	require.NoError(t, r.Add("room-1", "user-1", conn))
	assert.True(t, r.IsOnline("room-1", "user-1"))
	assert.False(t, r.IsOnline("room-1", "user-2"))

	roomId, userId, err := r.GetByConn(conn)
	require.NoError(t, err)
	assert.Equal(t, "room-1", roomId)
	assert.Equal(t, "user-1", userId)

	got, err := r.GetConn("room-1", "user-1")
	require.NoError(t, err)
	assert.Same(t, conn, got)
}

func TestAddSameConnSameMembershipIsIdempotent(t *testing.T) {
	r := NewRepo()
	conn := &websocket.Conn{}

	require.NoError(t, r.Add("room-1", "user-1", conn))
	require.NoError(t, r.Add("room-1", "user-1", conn), "re-adding the same socket must be a no-op")

	got, err := r.GetConn("room-1", "user-1")
	require.NoError(t, err)
	assert.Same(t, conn, got)
}

func TestAddConnBoundElsewhereIsRejected(t *testing.T) {
	r := NewRepo()
	conn := &websocket.Conn{}

	require.NoError(t, r.Add("room-1", "user-1", conn))
	assert.ErrorIs(t, r.Add("room-2", "user-1", conn), connection.ErrAlreadyExists)
	assert.ErrorIs(t, r.Add("room-1", "user-2", conn), connection.ErrAlreadyExists)
}

func TestReconnectReplacesChannel(t *testing.T) {
	r := NewRepo()
	first := &websocket.Conn{}
	second := &websocket.Conn{}

	require.NoError(t, r.Add("room-1", "user-1", first))
	require.NoError(t, r.Add("room-1", "user-1", second))

	got, err := r.GetConn("room-1", "user-1")
	require.NoError(t, err)
	assert.Same(t, second, got)

	_, _, err = r.GetByConn(first)
	assert.ErrorIs(t, err, connection.ErrNotFound, "stale channel must be dropped")
}

func TestGetConnsExcludes(t *testing.T) {
	r := NewRepo()
	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}
	conn3 := &websocket.Conn{}

	require.NoError(t, r.Add("room-1", "user-1", conn1))
	require.NoError(t, r.Add("room-1", "user-2", conn2))
	require.NoError(t, r.Add("room-2", "user-3", conn3))

	conns := r.GetConns("room-1", "user-1")
	require.Len(t, conns, 1)
	assert.Same(t, conn2, conns[0])

	assert.Len(t, r.GetConns("room-1"), 2, "no exclusion returns the whole room")
	assert.Empty(t, r.GetConns("room-9"), "unknown room fans out to nobody")
}

func TestRemoveByConn(t *testing.T) {
	r := NewRepo()
	conn := &websocket.Conn{}

	require.NoError(t, r.Add("room-1", "user-1", conn))

	roomId, userId, err := r.RemoveByConn(conn)
	require.NoError(t, err)
	assert.Equal(t, "room-1", roomId)
	assert.Equal(t, "user-1", userId)
	assert.False(t, r.IsOnline("room-1", "user-1"))

	_, _, err = r.RemoveByConn(conn)
	assert.ErrorIs(t, err, connection.ErrNotFound)
}

func TestOnlineUserIds(t *testing.T) {
	r := NewRepo()

	require.NoError(t, r.Add("room-1", "user-1", &websocket.Conn{}))
	require.NoError(t, r.Add("room-1", "user-2", &websocket.Conn{}))

	userIds := r.OnlineUserIds("room-1")
	assert.ElementsMatch(t, []string{"user-1", "user-2"}, userIds)
}
