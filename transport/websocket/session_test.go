package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c6online/connect6-backend/internal/apperror"
	"github.com/c6online/connect6-backend/internal/entity"
	"github.com/c6online/connect6-backend/internal/manager"
	"github.com/c6online/connect6-backend/internal/protocol"
)

const readTimeout = 2 * time.Second

type memoryGameRepository struct {
	mu    sync.Mutex
	blobs map[protocol.GameID][]byte
}

func (that *memoryGameRepository) CreateOrUpdate(_ context.Context, id protocol.GameID, state *entity.GameState) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return err
	}

	that.mu.Lock()
	defer that.mu.Unlock()
	that.blobs[id] = blob
	return nil
}

func (that *memoryGameRepository) GetByID(_ context.Context, id protocol.GameID) (*entity.GameState, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	blob, ok := that.blobs[id]
	if !ok {
		return nil, apperror.ErrGameNotFound
	}

	var state entity.GameState
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (that *memoryGameRepository) DeleteByID(_ context.Context, id protocol.GameID) error {
	that.mu.Lock()
	defer that.mu.Unlock()
	delete(that.blobs, id)
	return nil
}

// newTestServer - a websocket endpoint over a fresh registry.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	repo := &memoryGameRepository{blobs: make(map[protocol.GameID][]byte)}
	registry := manager.NewRegistry(context.Background(), logger, repo)
	server := New(logger, registry)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server.handleUpgrade(r.Context(), w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame []byte) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, frame))
}

func recv(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, msgType)
	return data
}

func recvClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, code), "unexpected error: %v", err)
			return
		}
	}
}

// startGame - opens a connection, starts a game and returns the
// connection, the assigned stone and the new game ID.
func startGame(t *testing.T, ts *httptest.Server, passcode string) (*websocket.Conn, entity.Stone, protocol.GameID) {
	t.Helper()

	conn := dial(t, ts)
	send(t, conn, append([]byte{0}, passcode...))

	started := recv(t, conn)
	require.Equal(t, byte(2), started[0])
	stone, err := entity.StoneFromByte(started[1])
	require.NoError(t, err)
	id, err := protocol.ParseGameID(started[2:])
	require.NoError(t, err)

	// The record snapshot follows.
	snapshot := recv(t, conn)
	require.Equal(t, protocol.RecordFrame(entity.NewRecord()), snapshot)

	return conn, stone, id
}

func TestSession_StartAndJoin(t *testing.T) {
	ts := newTestServer(t)

	// Given: a game started with passcode p1
	host, stone, id := startGame(t, ts, "p1")
	require.Equal(t, entity.StoneBlack, stone)

	// When: a second connection joins and authenticates with p2
	guest := dial(t, ts)
	send(t, guest, append([]byte{1}, id...))

	snapshot := recv(t, guest)
	assert.Equal(t, protocol.RecordFrame(entity.NewRecord()), snapshot)

	send(t, guest, append([]byte{0}, "p2"...))

	// Then: the guest is the second player and no new ID is sent
	started := recv(t, guest)
	assert.Equal(t, []byte{2, byte(entity.StoneWhite)}, started)

	// When: the host opens at the origin
	send(t, host, entity.AppendPoint([]byte{8}, entity.NewPoint(0, 0)))

	// Then: both connections see the move
	want := protocol.MoveFrame(entity.NewPlace(entity.NewPoint(0, 0)))
	assert.Equal(t, want, recv(t, host))
	assert.Equal(t, want, recv(t, guest))
}

func TestSession_JoinUnknownGame(t *testing.T) {
	ts := newTestServer(t)

	conn := dial(t, ts)
	send(t, conn, append([]byte{1}, "AbCdEfGhIj"...))

	recvClose(t, conn, websocket.CloseNormalClosure)
}

func TestSession_WrongPasscode(t *testing.T) {
	ts := newTestServer(t)

	// Given: a game with both seats taken
	_, _, id := startGame(t, ts, "p1")
	guest := dial(t, ts)
	send(t, guest, append([]byte{1}, id...))
	recv(t, guest)
	send(t, guest, append([]byte{0}, "p2"...))
	recv(t, guest)

	// When: a third passcode tries to authenticate
	third := dial(t, ts)
	send(t, third, append([]byte{1}, id...))
	recv(t, third)
	send(t, third, append([]byte{0}, "p3"...))

	// Then: the connection is closed normally
	recvClose(t, third, websocket.CloseNormalClosure)
}

func TestSession_ProtocolViolations(t *testing.T) {
	t.Run("Malformed first frame", func(t *testing.T) {
		ts := newTestServer(t)

		conn := dial(t, ts)
		send(t, conn, []byte{200})

		recvClose(t, conn, websocket.ClosePolicyViolation)
	})

	t.Run("Play before authentication", func(t *testing.T) {
		ts := newTestServer(t)
		_, _, id := startGame(t, ts, "p1")

		conn := dial(t, ts)
		send(t, conn, append([]byte{1}, id...))
		recv(t, conn)

		send(t, conn, entity.AppendPoint([]byte{8}, entity.NewPoint(0, 0)))

		recvClose(t, conn, websocket.ClosePolicyViolation)
	})

	t.Run("Start after authentication", func(t *testing.T) {
		ts := newTestServer(t)
		conn, _, _ := startGame(t, ts, "p1")

		send(t, conn, append([]byte{0}, "p1"...))

		recvClose(t, conn, websocket.ClosePolicyViolation)
	})

	t.Run("Join after joining", func(t *testing.T) {
		ts := newTestServer(t)
		conn, _, id := startGame(t, ts, "p1")

		send(t, conn, append([]byte{1}, id...))

		recvClose(t, conn, websocket.ClosePolicyViolation)
	})

	t.Run("Text frames are rejected", func(t *testing.T) {
		ts := newTestServer(t)
		conn := dial(t, ts)

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))

		recvClose(t, conn, websocket.ClosePolicyViolation)
	})
}

func TestSession_RequestNegotiation(t *testing.T) {
	ts := newTestServer(t)

	// Given: two authenticated players with one move played
	host, _, id := startGame(t, ts, "p1")
	guest := dial(t, ts)
	send(t, guest, append([]byte{1}, id...))
	recv(t, guest)
	send(t, guest, append([]byte{0}, "p2"...))
	recv(t, guest)

	send(t, host, entity.AppendPoint([]byte{8}, entity.NewPoint(0, 0)))
	recv(t, host)
	recv(t, guest)

	// When: the guest requests a retraction and the host agrees
	send(t, guest, []byte{6, 2})

	want := protocol.RequestFrame(entity.RequestRetract, entity.StoneWhite)
	assert.Equal(t, want, recv(t, host))
	assert.Equal(t, want, recv(t, guest))

	send(t, host, []byte{6, 2})

	// Then: the retraction is broadcast
	assert.Equal(t, protocol.RetractFrame(), recv(t, host))
	assert.Equal(t, protocol.RetractFrame(), recv(t, guest))
}

func TestSession_LateJoinerSeesHistory(t *testing.T) {
	ts := newTestServer(t)

	// Given: a game with one move played
	host, _, id := startGame(t, ts, "p1")
	send(t, host, entity.AppendPoint([]byte{8}, entity.NewPoint(3, -4)))
	recv(t, host)

	// When: an observer joins late
	observer := dial(t, ts)
	send(t, observer, append([]byte{1}, id...))

	// Then: the snapshot carries the full record
	rec := entity.NewRecord()
	require.NoError(t, rec.MakeMove(entity.NewPlace(entity.NewPoint(3, -4))))
	assert.Equal(t, protocol.RecordFrame(rec), recv(t, observer))
}
