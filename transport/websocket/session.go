package websocket

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c6online/connect6-backend/internal/apperror"
	"github.com/c6online/connect6-backend/internal/entity"
	"github.com/c6online/connect6-backend/internal/manager"
	"github.com/c6online/connect6-backend/internal/protocol"
)

const closeWriteTimeout = time.Second

var errNonBinaryFrame = errors.New("non-binary frame")

// session - the per-connection protocol state machine.
//
// A connection must open with Start (create a game) or Join (find one).
// A joined connection is read-only until it authenticates with one more
// Start. Authenticated connections forward play frames to the actor and
// relay its update stream.
type session struct {
	logger   *slog.Logger
	registry *manager.Registry
	conn     *websocket.Conn
	done     chan struct{}

	handle        *manager.GameHandle
	sub           *manager.Subscription
	stone         entity.Stone
	authenticated bool
}

func newSession(logger *slog.Logger, registry *manager.Registry, conn *websocket.Conn) *session {
	return &session{
		logger:   logger.With("remote", conn.RemoteAddr().String()),
		registry: registry,
		conn:     conn,
		done:     make(chan struct{}),
	}
}

func (that *session) run(ctx context.Context) {
	defer that.conn.Close()
	defer that.release()
	defer close(that.done)

	inbound := make(chan []byte)
	readErr := make(chan error, 1)
	go that.readLoop(inbound, readErr)

	for {
		select {
		case frame := <-inbound:
			if !that.handleFrame(ctx, frame) {
				return
			}
		case err := <-readErr:
			that.handleReadError(err)
			return
		case frame, ok := <-that.updates():
			if !ok {
				that.close(websocket.CloseTryAgainLater, "lagged behind, reconnect")
				return
			}
			if !that.write(frame) {
				return
			}
		case <-ctx.Done():
			that.close(websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

func (that *session) readLoop(inbound chan<- []byte, readErr chan<- error) {
	for {
		msgType, data, err := that.conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		if msgType != websocket.BinaryMessage {
			readErr <- errNonBinaryFrame
			return
		}

		select {
		case inbound <- data:
		case <-that.done:
			return
		}
	}
}

// updates - the live update stream, or nil before subscribing.
func (that *session) updates() <-chan []byte {
	if that.sub == nil {
		return nil
	}
	return that.sub.Updates
}

// handleFrame - advances the state machine by one inbound frame.
// Returns false when the session must end.
func (that *session) handleFrame(ctx context.Context, frame []byte) bool {
	msg, err := protocol.DecodeClientMessage(frame)
	if err != nil {
		that.close(websocket.ClosePolicyViolation, "malformed frame")
		return false
	}

	switch msg.Kind {
	case protocol.ClientStart:
		return that.handleStart(ctx, msg)
	case protocol.ClientJoin:
		return that.handleJoin(ctx, msg)
	default:
		return that.handlePlay(ctx, msg)
	}
}

func (that *session) handleStart(ctx context.Context, msg protocol.ClientMessage) bool {
	if that.authenticated {
		that.close(websocket.ClosePolicyViolation, "already authenticated")
		return false
	}

	created := that.handle == nil
	if created {
		handle, err := that.registry.Create(ctx)
		if err != nil {
			that.logger.Error("failed to create game", "error", err)
			that.close(websocket.CloseInternalServerErr, "failed to create game")
			return false
		}
		that.handle = handle
	}

	stone, err := that.handle.Authenticate(ctx, msg.Passcode)
	if err != nil {
		that.close(websocket.CloseNormalClosure, "game is gone")
		return false
	}
	if stone == entity.StoneNone {
		that.close(websocket.CloseNormalClosure, "wrong passcode")
		return false
	}

	that.stone = stone
	that.authenticated = true

	var newID protocol.GameID
	if created {
		newID = that.handle.ID
	}
	if !that.write(protocol.StartedFrame(stone, newID)) {
		return false
	}

	if created {
		return that.subscribe(ctx)
	}
	return true
}

func (that *session) handleJoin(ctx context.Context, msg protocol.ClientMessage) bool {
	if that.handle != nil {
		that.close(websocket.ClosePolicyViolation, "already in a game")
		return false
	}

	handle, err := that.registry.Find(ctx, msg.GameID)
	if errors.Is(err, apperror.ErrGameNotFound) {
		that.close(websocket.CloseNormalClosure, "no such game")
		return false
	}
	if err != nil {
		that.logger.Error("failed to find game", "error", err)
		that.close(websocket.CloseInternalServerErr, "failed to find game")
		return false
	}

	that.handle = handle
	return that.subscribe(ctx)
}

func (that *session) handlePlay(ctx context.Context, msg protocol.ClientMessage) bool {
	if !that.authenticated {
		that.close(websocket.ClosePolicyViolation, "not authenticated")
		return false
	}

	if err := that.handle.Play(ctx, that.stone, msg); err != nil {
		that.close(websocket.CloseNormalClosure, "game is gone")
		return false
	}
	return true
}

// subscribe - registers on the update stream and delivers the snapshot.
func (that *session) subscribe(ctx context.Context) bool {
	sub, err := that.handle.Subscribe(ctx)
	if err != nil {
		that.close(websocket.CloseNormalClosure, "game is gone")
		return false
	}
	that.sub = sub

	for _, frame := range sub.Snapshot {
		if !that.write(frame) {
			return false
		}
	}
	return true
}

func (that *session) handleReadError(err error) {
	switch {
	case errors.Is(err, errNonBinaryFrame):
		that.close(websocket.ClosePolicyViolation, "binary frames only")
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		// Peer closed, nothing to do.
	default:
		that.logger.Debug("connection lost", "error", err)
		that.close(websocket.CloseInternalServerErr, "transport error")
	}
}

func (that *session) write(frame []byte) bool {
	if err := that.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		that.logger.Debug("failed to write frame", "error", err)
		return false
	}
	return true
}

func (that *session) close(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	deadline := time.Now().Add(closeWriteTimeout)
	if err := that.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		that.logger.Debug("failed to write close message", "error", err)
	}
}

func (that *session) release() {
	if that.sub != nil {
		that.handle.Unsubscribe(that.sub.ID)
	}
	if that.handle != nil {
		that.handle.Release()
	}
}
