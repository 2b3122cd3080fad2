package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchsync/server/internal/controller"
	"github.com/watchsync/server/internal/metrics"
	"github.com/watchsync/server/internal/repository/connection/inmemory"
	roomRedis "github.com/watchsync/server/internal/repository/room/redis"
	"github.com/watchsync/server/internal/service/room"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type roomSnapshot struct {
	RoomId           string  `json:"room_id"`
	OwnerId          string  `json:"owner_id"`
	ControllerId     *string `json:"controller_id"`
	SharedCredential *string `json:"shared_credential"`
	Members          []struct {
		UserId   string `json:"user_id"`
		IsOnline bool   `json:"is_online"`
	} `json:"members"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	roomService := room.NewService(roomRedis.NewRepo(rc), inmemory.NewRepo(), room.Config{}, logger)
	ctrl := controller.NewController(roomService, collector, controller.Config{}, logger)

	server := httptest.NewServer(ctrl.GetMux(reg))
	t.Cleanup(server.Close)

	return server
}

func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func sendMessage(t *testing.T, conn *websocket.Conn, messageType string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(wsMessage{Type: messageType, Payload: raw}))
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

func TestWatchSession(t *testing.T) {
	server := newTestServer(t)

	// owner joins an unknown room, which creates it
	ownerConn := dialWS(t, server)
	sendMessage(t, ownerConn, "JOIN_ROOM", map[string]any{
		"room_id": "movienight",
		"user_id": "owner",
		"name":    "Alice",
	})

	ack := readMessage(t, ownerConn)
	assert.Equal(t, "ack", ack.Type)
	require.Equal(t, "ROOM_UPDATE", readMessage(t, ownerConn).Type, "joiner gets its own snapshot")

	// second member joins, both sides see the snapshot, control stays
	// with the owner
	guestConn := dialWS(t, server)
	sendMessage(t, guestConn, "JOIN_ROOM", map[string]any{
		"room_id": "movienight",
		"user_id": "guest",
		"name":    "Bob",
	})

	guestAck := readMessage(t, guestConn)
	assert.Equal(t, "ack", guestAck.Type)

	guestUpdate := readMessage(t, guestConn)
	require.Equal(t, "ROOM_UPDATE", guestUpdate.Type)

	var snapshot roomSnapshot
	require.NoError(t, json.Unmarshal(guestUpdate.Payload, &snapshot))
	assert.Len(t, snapshot.Members, 2)
	require.NotNil(t, snapshot.ControllerId)
	assert.Equal(t, "owner", *snapshot.ControllerId)

	update := readMessage(t, ownerConn)
	require.Equal(t, "ROOM_UPDATE", update.Type)

	require.NoError(t, json.Unmarshal(update.Payload, &snapshot))
	assert.Len(t, snapshot.Members, 2)
	require.NotNil(t, snapshot.ControllerId)
	assert.Equal(t, "owner", *snapshot.ControllerId)

	// the leader's playback sample reaches the follower verbatim
	playerState := map[string]any{"status": "playing", "time": 10.0, "rate": 1.0}
	sendMessage(t, ownerConn, "PLAYER_STATE", playerState)

	relayed := readMessage(t, guestConn)
	require.Equal(t, "PLAYER_STATE", relayed.Type)

	var relayedState map[string]any
	require.NoError(t, json.Unmarshal(relayed.Payload, &relayedState))
	assert.Equal(t, playerState, relayedState)

	// no echo back to the sender
	require.NoError(t, ownerConn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var echoed wsMessage
	assert.Error(t, ownerConn.ReadJSON(&echoed))

	// leader disconnects, the follower inherits control
	require.NoError(t, ownerConn.Close())

	handoff := readMessage(t, guestConn)
	require.Equal(t, "ROOM_UPDATE", handoff.Type)

	require.NoError(t, json.Unmarshal(handoff.Payload, &snapshot))
	require.NotNil(t, snapshot.ControllerId)
	assert.Equal(t, "guest", *snapshot.ControllerId)
	assert.Len(t, snapshot.Members, 2)
	for _, member := range snapshot.Members {
		if member.UserId == "owner" {
			assert.False(t, member.IsOnline)
		}
		if member.UserId == "guest" {
			assert.True(t, member.IsOnline)
		}
	}
}

func TestMediaAndPlaylistReplayOnJoin(t *testing.T) {
	server := newTestServer(t)

	ownerConn := dialWS(t, server)
	sendMessage(t, ownerConn, "JOIN_ROOM", map[string]any{
		"room_id": "room1",
		"user_id": "owner",
	})
	require.Equal(t, "ack", readMessage(t, ownerConn).Type)
	require.Equal(t, "ROOM_UPDATE", readMessage(t, ownerConn).Type)

	sendMessage(t, ownerConn, "PLAYLIST_UPDATE", map[string]any{
		"playlist": []map[string]any{{"id": "item-1", "file_id": "f1", "title": "First"}},
	})
	sendMessage(t, ownerConn, "MEDIA_CHANGE", map[string]any{
		"file_id":         "f1",
		"url":             "https://example.com/f1",
		"provider":        "drive",
		"playing_item_id": "item-1",
	})

	// waiting for a broadcast that includes the sender guarantees the
	// preceding messages were handled before the guest joins
	sendMessage(t, ownerConn, "TAKE_CONTROL", map[string]any{})
	require.Equal(t, "ROOM_UPDATE", readMessage(t, ownerConn).Type)

	// the join replay carries the current media and playlist before any
	// live broadcast reaches the fresh socket
	guestConn := dialWS(t, server)
	sendMessage(t, guestConn, "JOIN_ROOM", map[string]any{
		"room_id": "room1",
		"user_id": "guest",
	})

	require.Equal(t, "ack", readMessage(t, guestConn).Type)

	media := readMessage(t, guestConn)
	require.Equal(t, "MEDIA_CHANGE", media.Type)

	var mediaPayload struct {
		FileId string `json:"file_id"`
	}
	require.NoError(t, json.Unmarshal(media.Payload, &mediaPayload))
	assert.Equal(t, "f1", mediaPayload.FileId)

	playlist := readMessage(t, guestConn)
	require.Equal(t, "PLAYLIST_UPDATE", playlist.Type)

	// the snapshot comes last so the replayed state is already applied
	require.Equal(t, "ROOM_UPDATE", readMessage(t, guestConn).Type)
}

func TestUnknownMessageTypeDoesNotKillConn(t *testing.T) {
	server := newTestServer(t)

	conn := dialWS(t, server)
	sendMessage(t, conn, "JOIN_ROOM", map[string]any{
		"room_id": "room1",
		"user_id": "u1",
	})
	require.Equal(t, "ack", readMessage(t, conn).Type)
	require.Equal(t, "ROOM_UPDATE", readMessage(t, conn).Type)

	sendMessage(t, conn, "BOGUS_TYPE", map[string]any{})

	errMsg := readMessage(t, conn)
	assert.Equal(t, "error", errMsg.Type)

	// the channel is still usable afterwards
	sendMessage(t, conn, "TAKE_CONTROL", map[string]any{})
	update := readMessage(t, conn)
	assert.Equal(t, "ROOM_UPDATE", update.Type)
}

func TestJoinerSnapshotCarriesRoomState(t *testing.T) {
	server := newTestServer(t)

	ownerConn := dialWS(t, server)
	sendMessage(t, ownerConn, "JOIN_ROOM", map[string]any{
		"room_id": "club",
		"user_id": "owner",
	})
	require.Equal(t, "ack", readMessage(t, ownerConn).Type)
	require.Equal(t, "ROOM_UPDATE", readMessage(t, ownerConn).Type)

	sendMessage(t, ownerConn, "SET_ROOM_COOKIE", map[string]any{"cookie": "session=abc"})
	require.Equal(t, "ROOM_UPDATE", readMessage(t, ownerConn).Type)

	// a fresh member learns who controls playback and the room
	// credential from its own snapshot, before any live broadcast
	guestConn := dialWS(t, server)
	sendMessage(t, guestConn, "JOIN_ROOM", map[string]any{
		"room_id": "club",
		"user_id": "guest",
	})
	require.Equal(t, "ack", readMessage(t, guestConn).Type)

	update := readMessage(t, guestConn)
	require.Equal(t, "ROOM_UPDATE", update.Type)

	var snapshot roomSnapshot
	require.NoError(t, json.Unmarshal(update.Payload, &snapshot))
	assert.Len(t, snapshot.Members, 2)
	require.NotNil(t, snapshot.ControllerId)
	assert.Equal(t, "owner", *snapshot.ControllerId)
	require.NotNil(t, snapshot.SharedCredential)
	assert.Equal(t, "session=abc", *snapshot.SharedCredential)
}

func TestRejoinOnSameSocket(t *testing.T) {
	server := newTestServer(t)

	conn := dialWS(t, server)
	join := map[string]any{"room_id": "room1", "user_id": "u1"}

	sendMessage(t, conn, "JOIN_ROOM", join)
	require.Equal(t, "ack", readMessage(t, conn).Type)
	require.Equal(t, "ROOM_UPDATE", readMessage(t, conn).Type)

	// a repeated join for the same room is acked again, not dropped
	sendMessage(t, conn, "JOIN_ROOM", join)
	require.Equal(t, "ack", readMessage(t, conn).Type)
	require.Equal(t, "ROOM_UPDATE", readMessage(t, conn).Type)

	// switching rooms needs a fresh socket
	sendMessage(t, conn, "JOIN_ROOM", map[string]any{"room_id": "room2", "user_id": "u1"})
	errMsg := readMessage(t, conn)
	assert.Equal(t, "error", errMsg.Type)
}

func TestConcurrentBroadcastsToSharedMember(t *testing.T) {
	server := newTestServer(t)

	conns := make(map[string]*websocket.Conn)
	for _, userId := range []string{"a", "b", "viewer"} {
		conn := dialWS(t, server)
		sendMessage(t, conn, "JOIN_ROOM", map[string]any{
			"room_id": "room1",
			"user_id": userId,
		})
		require.Equal(t, "ack", readMessage(t, conn).Type)
		require.Equal(t, "ROOM_UPDATE", readMessage(t, conn).Type)
		conns[userId] = conn
	}

	// drain the join broadcasts the earlier members received
	require.Equal(t, "ROOM_UPDATE", readMessage(t, conns["a"]).Type)
	require.Equal(t, "ROOM_UPDATE", readMessage(t, conns["a"]).Type)
	require.Equal(t, "ROOM_UPDATE", readMessage(t, conns["b"]).Type)

	// two members relay at the same time, so their fan-outs race on the
	// viewer's socket
	const perSender = 20
	var wg sync.WaitGroup
	for _, sender := range []*websocket.Conn{conns["a"], conns["b"]} {
		wg.Add(1)
		go func(conn *websocket.Conn) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				raw, err := json.Marshal(map[string]any{"status": "playing", "time": float64(i), "rate": 1.0})
				assert.NoError(t, err)
				assert.NoError(t, conn.WriteJSON(wsMessage{Type: "PLAYER_STATE", Payload: raw}))
			}
		}(sender)
	}

	for i := 0; i < 2*perSender; i++ {
		msg := readMessage(t, conns["viewer"])
		require.Equal(t, "PLAYER_STATE", msg.Type)
	}

	wg.Wait()
}
