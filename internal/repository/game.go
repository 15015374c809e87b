package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/c6online/connect6-backend/internal/apperror"
	"github.com/c6online/connect6-backend/internal/entity"
	"github.com/c6online/connect6-backend/internal/protocol"
)

// GameRepository - persists game states between actor runs.
type GameRepository interface {
	CreateOrUpdate(ctx context.Context, id protocol.GameID, state *entity.GameState) error
	GetByID(ctx context.Context, id protocol.GameID) (*entity.GameState, error)
	DeleteByID(ctx context.Context, id protocol.GameID) error
}

type dbGame struct {
	client *redis.Client
}

func NewGameRepository(client *redis.Client) GameRepository {
	return &dbGame{
		client: client,
	}
}

func (that *dbGame) CreateOrUpdate(ctx context.Context, id protocol.GameID, state *entity.GameState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("could not marshal game state: %w", err)
	}

	gameKey := "game:" + string(id)
	if err = that.client.Set(ctx, gameKey, stateJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set game: %w", err)
	}

	return nil
}

func (that *dbGame) GetByID(ctx context.Context, id protocol.GameID) (*entity.GameState, error) {
	gameKey := "game:" + string(id)

	response, err := that.client.Get(ctx, gameKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	var state entity.GameState
	if err = json.Unmarshal([]byte(response), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game state: %w", err)
	}

	return &state, nil
}

func (that *dbGame) DeleteByID(ctx context.Context, id protocol.GameID) error {
	gameKey := "game:" + string(id)

	if err := that.client.Del(ctx, gameKey).Err(); err != nil {
		return fmt.Errorf("failed to delete game by id: %w", err)
	}

	return nil
}
