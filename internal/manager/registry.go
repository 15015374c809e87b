package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/c6online/connect6-backend/internal/apperror"
	"github.com/c6online/connect6-backend/internal/entity"
	"github.com/c6online/connect6-backend/internal/pkg"
	"github.com/c6online/connect6-backend/internal/protocol"
	"github.com/c6online/connect6-backend/internal/repository"
)

// cleanupBuffer - capacity of the actor completion stream.
const cleanupBuffer = 16

type registryCommand interface {
	isRegistryCommand()
}

type createCmd struct {
	ctx   context.Context
	reply chan createResult
}

type createResult struct {
	handle *GameHandle
	err    error
}

type findCmd struct {
	ctx   context.Context
	id    protocol.GameID
	reply chan createResult
}

func (createCmd) isRegistryCommand() {}
func (findCmd) isRegistryCommand()   {}

// Registry - tracks live game actors by ID, creating, finding and
// reviving games. One goroutine owns the entry map.
type Registry struct {
	logger     *slog.Logger
	gameLogger *slog.Logger
	games      repository.GameRepository

	cmds    chan registryCommand
	cleanup chan *gameActor
	done    chan struct{}

	entries map[protocol.GameID]*gameActor
}

// NewRegistry - creates a registry and starts its goroutine. Cancelling
// ctx stops the registry: new commands are refused and the goroutine
// exits once every live actor has wound down.
func NewRegistry(ctx context.Context, logger *slog.Logger, games repository.GameRepository) *Registry {
	that := &Registry{
		logger:     logger.With("component", "registry"),
		gameLogger: logger,
		games:      games,
		cmds:       make(chan registryCommand, commandBuffer),
		cleanup:    make(chan *gameActor, cleanupBuffer),
		done:       make(chan struct{}),
		entries:    make(map[protocol.GameID]*gameActor),
	}
	go that.run(ctx)
	return that
}

func (that *Registry) run(ctx context.Context) {
	for {
		select {
		case cmd := <-that.cmds:
			switch c := cmd.(type) {
			case createCmd:
				c.reply <- that.create(c.ctx)
			case findCmd:
				c.reply <- that.find(c.ctx, c.id)
			}
		case actor := <-that.cleanup:
			// A newer actor may have revived the ID already.
			if that.entries[actor.id] == actor {
				delete(that.entries, actor.id)
			}
		case <-ctx.Done():
			that.logger.Info("registry stopping", "live_games", len(that.entries))
			that.drain()
			close(that.done)
			return
		}
	}
}

// drain - waits for every live actor to wind down. Actors exit on their
// own once the transport releases their last handle.
func (that *Registry) drain() {
	for len(that.entries) > 0 {
		actor := <-that.cleanup
		if that.entries[actor.id] == actor {
			delete(that.entries, actor.id)
		}
	}
}

// Done - closed once the registry has stopped and every actor is gone.
func (that *Registry) Done() <-chan struct{} {
	return that.done
}

// create - allocates an unused ID, spawns a fresh actor and reserves the
// ID in the store.
func (that *Registry) create(ctx context.Context) createResult {
	for {
		id, err := pkg.GenerateGameID()
		if err != nil {
			return createResult{err: fmt.Errorf("failed to generate game id: %w", err)}
		}

		if _, live := that.entries[id]; live {
			continue
		}
		if _, err = that.games.GetByID(ctx, id); err == nil {
			continue
		} else if !errors.Is(err, apperror.ErrGameNotFound) {
			return createResult{err: fmt.Errorf("failed to check game id: %w", err)}
		}

		state := entity.NewGameState()
		if err = that.games.CreateOrUpdate(ctx, id, state); err != nil {
			return createResult{err: fmt.Errorf("failed to create game: %w", err)}
		}

		return createResult{handle: that.spawn(id, state)}
	}
}

// find - resolves an ID to a live actor, reviving it from the store if
// no actor is running.
func (that *Registry) find(ctx context.Context, id protocol.GameID) createResult {
	if actor, live := that.entries[id]; live {
		if !actor.acquire(ctx) {
			// The actor is exiting; treat as gone.
			return createResult{err: apperror.ErrGameNotFound}
		}
		return createResult{handle: &GameHandle{ID: id, actor: actor}}
	}

	state, err := that.games.GetByID(ctx, id)
	if errors.Is(err, apperror.ErrGameNotFound) {
		return createResult{err: apperror.ErrGameNotFound}
	}
	if err != nil {
		return createResult{err: fmt.Errorf("failed to load game: %w", err)}
	}

	that.logger.Debug("game revived", "game_id", string(id))
	return createResult{handle: that.spawn(id, state)}
}

func (that *Registry) spawn(id protocol.GameID, state *entity.GameState) *GameHandle {
	actor := newGameActor(id, state, that.games, that.cleanup, that.gameLogger)
	that.entries[id] = actor
	go actor.run()
	return &GameHandle{ID: id, actor: actor}
}

func (that *Registry) exec(ctx context.Context, cmd registryCommand, reply chan createResult) (*GameHandle, error) {
	select {
	case that.cmds <- cmd:
	case <-that.done:
		return nil, apperror.ErrShuttingDown
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.handle, res.err
	case <-that.done:
		return nil, apperror.ErrShuttingDown
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Create - creates a new game and returns a handle to its actor.
func (that *Registry) Create(ctx context.Context) (*GameHandle, error) {
	cmd := createCmd{ctx: ctx, reply: make(chan createResult, 1)}
	return that.exec(ctx, cmd, cmd.reply)
}

// Find - returns a handle to the game with the given ID, or
// apperror.ErrGameNotFound.
func (that *Registry) Find(ctx context.Context, id protocol.GameID) (*GameHandle, error) {
	cmd := findCmd{ctx: ctx, id: id, reply: make(chan createResult, 1)}
	return that.exec(ctx, cmd, cmd.reply)
}
