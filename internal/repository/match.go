package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/damas-backend/internal/apperror"
	"github.com/rocketscienceinc/damas-backend/internal/entity"
)

var ErrCodeTaken = fmt.Errorf("%w: join code is taken", apperror.ErrConflict)

const waitingKey = "match:waiting"

func matchKey(id string) string {
	return "match:" + id
}

func codeKey(code string) string {
	return "match:code:" + code
}

func playerKey(playerID string) string {
	return "match:player:" + playerID
}

type MatchRepository interface {
	Create(ctx context.Context, match entity.Match) error
	Save(ctx context.Context, match entity.Match) error
	GetByID(ctx context.Context, id string) (entity.Match, error)
	GetByCode(ctx context.Context, code string) (entity.Match, error)
	ListWaiting(ctx context.Context) ([]entity.Match, error)
	ListByPlayer(ctx context.Context, playerID string) ([]entity.Match, error)
}

type dbMatch struct {
	client *redis.Client
}

func NewMatchRepository(client *redis.Client) MatchRepository {
	return &dbMatch{
		client: client,
	}
}

// Create stores a new match and reserves its join code. It fails with ErrCodeTaken
// when another match already owns the code.
func (that *dbMatch) Create(ctx context.Context, match entity.Match) error {
	matchJSON, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("could not marshal match: %w", err)
	}

	reserved, err := that.client.SetNX(ctx, codeKey(match.Code), match.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve join code: %w", err)
	}

	if !reserved {
		return fmt.Errorf("%w: %s", ErrCodeTaken, match.Code)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, matchKey(match.ID), matchJSON, 0)
		indexMatch(ctx, pipe, match)
		return nil
	})
	if err != nil {
		that.client.Del(ctx, codeKey(match.Code))
		return fmt.Errorf("failed to set match: %w", err)
	}

	return nil
}

// Save replaces a stored match. The stored version must be exactly match.Version-1,
// otherwise the write is rejected with apperror.ErrConflict.
func (that *dbMatch) Save(ctx context.Context, match entity.Match) error {
	key := matchKey(match.ID)

	matchJSON, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("could not marshal match: %w", err)
	}

	err = that.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := getMatch(ctx, tx, key)
		if err != nil {
			return err
		}

		if stored.Version != match.Version-1 {
			return fmt.Errorf("%w: match %s has version %d, expected %d",
				apperror.ErrConflict, match.ID, stored.Version, match.Version-1)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, matchJSON, 0)
			indexMatch(ctx, pipe, match)
			return nil
		})

		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: match %s changed during save", apperror.ErrConflict, match.ID)
	}

	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}

	return nil
}

func (that *dbMatch) GetByID(ctx context.Context, id string) (entity.Match, error) {
	return getMatch(ctx, that.client, matchKey(id))
}

func (that *dbMatch) GetByCode(ctx context.Context, code string) (entity.Match, error) {
	id, err := that.client.Get(ctx, codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return entity.Match{}, fmt.Errorf("%w: match with code %s", apperror.ErrNotFound, code)
	}

	if err != nil {
		return entity.Match{}, fmt.Errorf("failed to get match id by code: %w", err)
	}

	return that.GetByID(ctx, id)
}

// ListWaiting returns the matches waiting for an opponent, oldest first.
func (that *dbMatch) ListWaiting(ctx context.Context) ([]entity.Match, error) {
	matches, err := that.listFromSet(ctx, waitingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list waiting matches: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].StartedAt.Before(matches[j].StartedAt)
	})

	return matches, nil
}

// ListByPlayer returns every match the player took part in, newest first.
func (that *dbMatch) ListByPlayer(ctx context.Context, playerID string) ([]entity.Match, error) {
	matches, err := that.listFromSet(ctx, playerKey(playerID))
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of player %s: %w", playerID, err)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].StartedAt.After(matches[j].StartedAt)
	})

	return matches, nil
}

func (that *dbMatch) listFromSet(ctx context.Context, setKey string) ([]entity.Match, error) {
	ids, err := that.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", setKey, err)
	}

	if len(ids) == 0 {
		return []entity.Match{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, matchKey(id))
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read matches: %w", err)
	}

	matches := make([]entity.Match, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// index points to a match that no longer exists
			continue
		}

		var match entity.Match
		if err = json.Unmarshal([]byte(raw), &match); err != nil {
			return nil, fmt.Errorf("failed to unmarshal match %s: %w", ids[i], err)
		}

		matches = append(matches, match)
	}

	return matches, nil
}

func getMatch(ctx context.Context, client redis.Cmdable, key string) (entity.Match, error) {
	response, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.Match{}, fmt.Errorf("%w: %s", apperror.ErrNotFound, key)
	}

	if err != nil {
		return entity.Match{}, fmt.Errorf("failed to get match: %w", err)
	}

	var match entity.Match
	if err = json.Unmarshal(response, &match); err != nil {
		return entity.Match{}, fmt.Errorf("failed to unmarshal match: %w", err)
	}

	return match, nil
}

func indexMatch(ctx context.Context, pipe redis.Pipeliner, match entity.Match) {
	if match.IsWaiting() {
		pipe.SAdd(ctx, waitingKey, match.ID)
	} else {
		pipe.SRem(ctx, waitingKey, match.ID)
	}

	for _, id := range match.PlayerIDs() {
		pipe.SAdd(ctx, playerKey(id), match.ID)
	}
}
