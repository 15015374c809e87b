package manager

import (
	"context"
	"log/slog"
	"time"

	"github.com/c6online/connect6-backend/internal/apperror"
	"github.com/c6online/connect6-backend/internal/entity"
	"github.com/c6online/connect6-backend/internal/pkg"
	"github.com/c6online/connect6-backend/internal/protocol"
	"github.com/c6online/connect6-backend/internal/repository"
)

const (
	// commandBuffer - capacity of an actor's command mailbox.
	commandBuffer = 100
	// updateBuffer - capacity of one subscriber's update stream. A
	// subscriber that falls this far behind is closed out.
	updateBuffer = 100

	saveTimeout = 5 * time.Second
)

type gameCommand interface {
	isGameCommand()
}

type subscribeCmd struct {
	reply chan *Subscription
}

type authenticateCmd struct {
	passcode []byte
	reply    chan entity.Stone
}

type playCmd struct {
	stone entity.Stone
	msg   protocol.ClientMessage
}

type unsubscribeCmd struct {
	id int
}

type acquireCmd struct {
	reply chan struct{}
}

type releaseCmd struct{}

func (subscribeCmd) isGameCommand()    {}
func (authenticateCmd) isGameCommand() {}
func (playCmd) isGameCommand()         {}
func (unsubscribeCmd) isGameCommand()  {}
func (acquireCmd) isGameCommand()      {}
func (releaseCmd) isGameCommand()      {}

// Subscription - one subscriber's view of a game: the snapshot frames to
// deliver first, then the live update stream. Updates is closed when the
// subscriber lags behind or the game winds down.
type Subscription struct {
	ID       int
	Snapshot [][]byte
	Updates  <-chan []byte
}

// gameActor - the single owner of one game's state. All access goes
// through the command mailbox; there is no lock.
type gameActor struct {
	id     protocol.GameID
	state  *entity.GameState
	games  repository.GameRepository
	logger *slog.Logger

	cmds chan gameCommand
	// done - closed when the actor has exited; sends and reply waits
	// select on it so an exiting actor reads as gone.
	done chan struct{}
	// cleanup - the registry's completion stream.
	cleanup chan<- *gameActor

	subs    map[int]chan []byte
	nextSub int
	refs    int
}

func newGameActor(id protocol.GameID, state *entity.GameState, games repository.GameRepository, cleanup chan<- *gameActor, logger *slog.Logger) *gameActor {
	return &gameActor{
		id:      id,
		state:   state,
		games:   games,
		logger:  logger.With("component", "game", "game_id", string(id)),
		cmds:    make(chan gameCommand, commandBuffer),
		done:    make(chan struct{}),
		cleanup: cleanup,
		subs:    make(map[int]chan []byte),
		refs:    1,
	}
}

// run - processes commands until the last handle is released.
func (that *gameActor) run() {
	that.logger.Debug("game started")

	for that.refs > 0 {
		switch cmd := (<-that.cmds).(type) {
		case subscribeCmd:
			cmd.reply <- that.subscribe()
		case authenticateCmd:
			cmd.reply <- that.authenticate(cmd.passcode)
		case playCmd:
			that.play(cmd.stone, cmd.msg)
		case unsubscribeCmd:
			if ch, ok := that.subs[cmd.id]; ok {
				close(ch)
				delete(that.subs, cmd.id)
			}
		case acquireCmd:
			that.refs++
			cmd.reply <- struct{}{}
		case releaseCmd:
			that.refs--
		}
	}

	if that.state.Record.IsEnded() {
		that.discard()
	} else {
		that.save()
	}
	for _, ch := range that.subs {
		close(ch)
	}
	close(that.done)
	that.cleanup <- that

	that.logger.Debug("game ended")
}

func (that *gameActor) subscribe() *Subscription {
	snapshot := [][]byte{protocol.RecordFrame(that.state.Record)}
	for _, req := range that.state.PendingRequests() {
		snapshot = append(snapshot, protocol.RequestFrame(req.Kind, req.Stone))
	}

	ch := make(chan []byte, updateBuffer)
	that.nextSub++
	that.subs[that.nextSub] = ch

	return &Subscription{ID: that.nextSub, Snapshot: snapshot, Updates: ch}
}

func (that *gameActor) authenticate(passcode []byte) entity.Stone {
	digest := pkg.HashPasscode(passcode, []byte(that.id))

	bound := len(that.state.PassBlack) + len(that.state.PassWhite)
	stone := that.state.Authenticate(digest)
	if len(that.state.PassBlack)+len(that.state.PassWhite) != bound {
		that.save()
	}

	return stone
}

func (that *gameActor) play(stone entity.Stone, msg protocol.ClientMessage) {
	res := that.state.Play(stone, msg.Action(stone))

	switch res.Effect {
	case entity.EffectNone:
		return
	case entity.EffectMove:
		that.broadcast(protocol.MoveFrame(res.Move))
	case entity.EffectRetract:
		that.broadcast(protocol.RetractFrame())
	case entity.EffectReset:
		that.broadcast(protocol.RecordFrame(that.state.Record))
	case entity.EffectRequest:
		that.broadcast(protocol.RequestFrame(res.Request, stone))
	}

	that.save()
}

// broadcast - fans a frame out to every subscriber without blocking. A
// subscriber with a full buffer has lagged and is closed out.
func (that *gameActor) broadcast(frame []byte) {
	for id, ch := range that.subs {
		select {
		case ch <- frame:
		default:
			that.logger.Warn("subscriber lagged", "subscriber", id)
			close(ch)
			delete(that.subs, id)
		}
	}
}

func (that *gameActor) save() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := that.games.CreateOrUpdate(ctx, that.id, that.state); err != nil {
		that.logger.Error("failed to save game", "error", err)
	}
}

// discard - drops a finished game from the store. The record already
// reached its end, so there is nothing left to revive.
func (that *gameActor) discard() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := that.games.DeleteByID(ctx, that.id); err != nil {
		that.logger.Error("failed to delete game", "error", err)
	}
}

// acquire - takes one more reference, failing if the actor has exited.
func (that *gameActor) acquire(ctx context.Context) bool {
	cmd := acquireCmd{reply: make(chan struct{}, 1)}
	select {
	case that.cmds <- cmd:
	case <-that.done:
		return false
	case <-ctx.Done():
		return false
	}

	select {
	case <-cmd.reply:
		return true
	case <-that.done:
		return false
	}
}

// GameHandle - a counted reference to a live game actor. A handle must
// be released exactly once; the actor winds down when the last handle
// is released.
type GameHandle struct {
	ID    protocol.GameID
	actor *gameActor
}

func (that *GameHandle) send(ctx context.Context, cmd gameCommand) error {
	select {
	case that.actor.cmds <- cmd:
		return nil
	case <-that.actor.done:
		return apperror.ErrGameNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe - registers on the game's update stream and returns the
// snapshot to deliver first.
func (that *GameHandle) Subscribe(ctx context.Context) (*Subscription, error) {
	cmd := subscribeCmd{reply: make(chan *Subscription, 1)}
	if err := that.send(ctx, cmd); err != nil {
		return nil, err
	}

	select {
	case sub := <-cmd.reply:
		return sub, nil
	case <-that.actor.done:
		return nil, apperror.ErrGameNotFound
	}
}

// Authenticate - binds or matches a raw passcode, returning the assigned
// stone or StoneNone.
func (that *GameHandle) Authenticate(ctx context.Context, passcode []byte) (entity.Stone, error) {
	cmd := authenticateCmd{passcode: passcode, reply: make(chan entity.Stone, 1)}
	if err := that.send(ctx, cmd); err != nil {
		return entity.StoneNone, err
	}

	select {
	case stone := <-cmd.reply:
		return stone, nil
	case <-that.actor.done:
		return entity.StoneNone, apperror.ErrGameNotFound
	}
}

// Play - forwards a play message on behalf of the given stone. The
// outcome, if any, arrives on the update stream.
func (that *GameHandle) Play(ctx context.Context, stone entity.Stone, msg protocol.ClientMessage) error {
	return that.send(ctx, playCmd{stone: stone, msg: msg})
}

// Unsubscribe - removes a subscriber. Best effort: an exited actor has
// already closed every stream.
func (that *GameHandle) Unsubscribe(id int) {
	select {
	case that.actor.cmds <- unsubscribeCmd{id: id}:
	case <-that.actor.done:
	}
}

// Release - drops this reference.
func (that *GameHandle) Release() {
	select {
	case that.actor.cmds <- releaseCmd{}:
	case <-that.actor.done:
	}
}
