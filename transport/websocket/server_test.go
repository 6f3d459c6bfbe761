package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/broadcast"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/lock"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository/memory"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/session"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
)

const readTimeout = 2 * time.Second

type frame struct {
	Event   string          `json:"event"`
	AckID   string          `json:"ackId"`
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorBody      `json:"error"`
}

func (that frame) isAck() bool {
	return that.Success != nil
}

type testEnv struct {
	url      string
	manager  *usecase.RoomManager
	sessions *session.Registry
	roomID   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	users := memory.NewUserRepository()
	require.NoError(t, users.Create(ctx, &entity.User{ID: "alice", Username: "Alice"}))
	require.NoError(t, users.Create(ctx, &entity.User{ID: "bob", Username: "Bob"}))

	coordinator := broadcast.NewCoordinator(logger)
	sessions := session.NewRegistry()
	manager := usecase.NewRoomManager(logger, memory.NewRoomRepository(), users,
		usecase.NewStatsFinalizer(logger, users), lock.NewLocal(), coordinator, nil, time.Second)

	room, err := manager.CreateRoom(ctx, "R", "alice")
	require.NoError(t, err)

	server := New(logger, manager, coordinator, sessions, Options{
		SendBuffer:    16,
		PingInterval:  time.Second,
		PongWait:      5 * time.Second,
		AllowedOrigin: "*",
	})

	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	return &testEnv{
		url:      "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws",
		manager:  manager,
		sessions: sessions,
		roomID:   room.ID,
	}
}

func (that *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(that.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, event, ackID string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(Message{Event: event, AckID: ackID, Payload: raw}))
}

// waitFor reads frames until match accepts one.
func waitFor(t *testing.T, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))

	for {
		var got frame
		require.NoError(t, conn.ReadJSON(&got))

		if match(got) {
			return got
		}
	}
}

func ack(t *testing.T, conn *websocket.Conn, ackID string) frame {
	t.Helper()

	return waitFor(t, conn, func(f frame) bool { return f.isAck() && f.AckID == ackID })
}

func push(t *testing.T, conn *websocket.Conn, event string) frame {
	t.Helper()

	return waitFor(t, conn, func(f frame) bool { return !f.isAck() && f.Event == event })
}

func decodeRoom(t *testing.T, raw json.RawMessage) entity.Room {
	t.Helper()

	var room entity.Room
	require.NoError(t, json.Unmarshal(raw, &room))

	return room
}

func TestServer_GameFlow(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dial(t)
	bob := env.dial(t)

	// Given: alice sits in seat 1
	send(t, alice, "room:join", "1", map[string]string{"roomId": env.roomID, "userId": "alice", "seat": "player1"})
	got := ack(t, alice, "1")
	require.True(t, *got.Success, "join failed: %+v", got.Error)

	// When: bob takes seat 2
	send(t, bob, "room:join", "2", map[string]string{"roomId": env.roomID, "userId": "bob", "seat": "player2"})
	require.True(t, *ack(t, bob, "2").Success)

	// Then: alice is told
	joined := push(t, alice, entity.EventPlayerJoined)
	var change entity.RoomChange
	require.NoError(t, json.Unmarshal(joined.Data, &change))
	assert.Equal(t, "bob", change.UserID)
	assert.Equal(t, entity.Seat2, change.Seat)

	// When: alice plays the center
	send(t, alice, "room:move", "3", map[string]any{"roomId": env.roomID, "userId": "alice", "cellIndex": 4})
	got = ack(t, alice, "3")
	require.True(t, *got.Success)
	assert.Equal(t, entity.Mark1, decodeRoom(t, got.Data).Board[4])

	// Then: bob sees the move
	moved := push(t, bob, entity.EventMoveUpdated)
	require.NoError(t, json.Unmarshal(moved.Data, &change))
	require.NotNil(t, change.CellIndex)
	assert.Equal(t, 4, *change.CellIndex)

	// And: alice cannot play again
	send(t, alice, "room:move", "4", map[string]any{"roomId": env.roomID, "userId": "alice", "cellIndex": 0})
	got = ack(t, alice, "4")
	assert.False(t, *got.Success)
	assert.Equal(t, "wrong_turn", got.Error.ErrorType)

	// And: state is readable
	send(t, bob, "room:state", "5", map[string]string{"roomId": env.roomID})
	got = ack(t, bob, "5")
	require.True(t, *got.Success)
	assert.Equal(t, entity.Seat2, decodeRoom(t, got.Data).Turn)
}

func TestServer_Errors(t *testing.T) {
	env := newTestEnv(t)
	alice := env.dial(t)

	t.Run("Unknown seat", func(t *testing.T) {
		send(t, alice, "room:join", "1", map[string]string{"roomId": env.roomID, "userId": "alice", "seat": "player3"})

		got := ack(t, alice, "1")
		assert.False(t, *got.Success)
		assert.Equal(t, "invalid_slot", got.Error.ErrorType)
	})

	t.Run("Cell out of range", func(t *testing.T) {
		send(t, alice, "room:move", "2", map[string]any{"roomId": env.roomID, "userId": "alice", "cellIndex": 9})

		got := ack(t, alice, "2")
		assert.Equal(t, "invalid_cell", got.Error.ErrorType)
	})

	t.Run("Missing room", func(t *testing.T) {
		send(t, alice, "room:state", "3", map[string]string{"roomId": "missing"})

		got := ack(t, alice, "3")
		assert.Equal(t, "room_not_exist", got.Error.ErrorType)
	})

	t.Run("Unsubscribe without room", func(t *testing.T) {
		send(t, alice, "room:unsubscribe", "5", map[string]string{"roomId": ""})

		got := ack(t, alice, "5")
		assert.False(t, *got.Success)
		assert.Equal(t, "invalid_input", got.Error.ErrorType)
	})

	t.Run("Unknown event", func(t *testing.T) {
		send(t, alice, "room:dance", "4", map[string]string{})

		got := ack(t, alice, "4")
		assert.Equal(t, "invalid_input", got.Error.ErrorType)
	})
}

func TestServer_Disconnect(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dial(t)
	bob := env.dial(t)

	send(t, alice, "room:join", "1", map[string]string{"roomId": env.roomID, "userId": "alice", "seat": "player1"})
	require.True(t, *ack(t, alice, "1").Success)

	send(t, bob, "room:join", "2", map[string]string{"roomId": env.roomID, "userId": "bob", "seat": "player2"})
	require.True(t, *ack(t, bob, "2").Success)

	// When: bob's connection drops
	require.NoError(t, bob.Close())

	// Then: alice hears about it and the seat is free
	got := push(t, alice, entity.EventPlayerDisconnected)
	var change entity.RoomChange
	require.NoError(t, json.Unmarshal(got.Data, &change))
	assert.Equal(t, "bob", change.UserID)

	room, err := env.manager.GetRoom(context.Background(), env.roomID)
	require.NoError(t, err)
	assert.Empty(t, room.Player2ID)
	assert.Equal(t, "alice", room.Player1ID)
	assert.Equal(t, 1, env.sessions.Len())
}

func TestServer_RejoinOnAnotherConnection(t *testing.T) {
	env := newTestEnv(t)

	first := env.dial(t)
	second := env.dial(t)

	// Given: bob sits on the first connection
	send(t, first, "room:join", "1", map[string]string{"roomId": env.roomID, "userId": "bob", "seat": "player2"})
	require.True(t, *ack(t, first, "1").Success)

	// When: bob leaves and rejoins over the second one, then the first drops
	send(t, second, "room:leave", "2", map[string]string{"roomId": env.roomID, "userId": "bob"})
	require.True(t, *ack(t, second, "2").Success)

	send(t, second, "room:join", "3", map[string]string{"roomId": env.roomID, "userId": "bob", "seat": "player2"})
	require.True(t, *ack(t, second, "3").Success)

	require.NoError(t, first.Close())

	// Then: the seat held through the second connection survives
	assert.Never(t, func() bool {
		room, err := env.manager.GetRoom(context.Background(), env.roomID)
		return err != nil || room.Player2ID != "bob"
	}, 300*time.Millisecond, 20*time.Millisecond)

	assert.Equal(t, 1, env.sessions.Len())
}

func TestServer_Chat(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dial(t)
	bob := env.dial(t)

	send(t, bob, "room:subscribe", "1", map[string]string{"roomId": env.roomID})
	require.True(t, *ack(t, bob, "1").Success)

	// When: alice sends a blank line and then a message
	send(t, alice, "room:chat:send", "2", map[string]string{"roomId": env.roomID, "userId": "alice", "username": "Alice", "text": "  "})
	require.True(t, *ack(t, alice, "2").Success)

	send(t, alice, "room:chat:send", "3", map[string]string{"roomId": env.roomID, "userId": "alice", "username": "Alice", "text": "gl hf"})
	require.True(t, *ack(t, alice, "3").Success)

	// Then: bob only gets the stamped message
	got := push(t, bob, entity.EventChatMessage)

	var message entity.ChatMessage
	require.NoError(t, json.Unmarshal(got.Data, &message))
	assert.Equal(t, "gl hf", message.Text)
	assert.Equal(t, "Alice", message.Username)
	assert.NotZero(t, message.Timestamp)
	assert.Len(t, message.Time, len("15:04"))
}
