package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sbstnppl/branch-engine/pkg/branch"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

// World record operations (Redis-backed)

func (r *RedisStorage) GetEntity(ctx context.Context, id uuid.UUID, key string) (*world.Entity, error) {
	var e world.Entity
	found, err := r.getRecord(ctx, recordKey("entity", id, key), &e)
	if err != nil || !found {
		return nil, err
	}
	return &e, nil
}

func (r *RedisStorage) SaveEntity(ctx context.Context, id uuid.UUID, e *world.Entity) error {
	if err := r.saveRecord(ctx, recordKey("entity", id, e.Key), e); err != nil {
		return err
	}
	return r.client.SAdd(ctx, indexKey("entities", id), e.Key).Err()
}

func (r *RedisStorage) EntitiesAt(ctx context.Context, id uuid.UUID, locationKey string) ([]world.Entity, error) {
	keys, err := r.client.SMembers(ctx, indexKey("entities", id)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	var out []world.Entity
	for _, key := range keys {
		var e world.Entity
		found, err := r.getRecord(ctx, recordKey("entity", id, key), &e)
		if err != nil {
			return nil, err
		}
		if found && e.LocationKey == locationKey {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *RedisStorage) GetItem(ctx context.Context, id uuid.UUID, key string) (*world.Item, error) {
	var it world.Item
	found, err := r.getRecord(ctx, recordKey("item", id, key), &it)
	if err != nil || !found {
		return nil, err
	}
	return &it, nil
}

func (r *RedisStorage) SaveItem(ctx context.Context, id uuid.UUID, it *world.Item) error {
	if err := r.saveRecord(ctx, recordKey("item", id, it.Key), it); err != nil {
		return err
	}
	return r.client.SAdd(ctx, indexKey("items", id), it.Key).Err()
}

func (r *RedisStorage) ItemsHeldBy(ctx context.Context, id uuid.UUID, holderKey string) ([]world.Item, error) {
	keys, err := r.client.SMembers(ctx, indexKey("items", id)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	var out []world.Item
	for _, key := range keys {
		var it world.Item
		found, err := r.getRecord(ctx, recordKey("item", id, key), &it)
		if err != nil {
			return nil, err
		}
		if found && it.HolderKey == holderKey {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *RedisStorage) GetLocation(ctx context.Context, id uuid.UUID, key string) (*world.Location, error) {
	var loc world.Location
	found, err := r.getRecord(ctx, recordKey("location", id, key), &loc)
	if err != nil || !found {
		return nil, err
	}
	return &loc, nil
}

func (r *RedisStorage) SaveLocation(ctx context.Context, id uuid.UUID, loc *world.Location) error {
	if err := r.saveRecord(ctx, recordKey("location", id, loc.Key), loc); err != nil {
		return err
	}
	return r.client.SAdd(ctx, indexKey("locations", id), loc.Key).Err()
}

func (r *RedisStorage) ListLocations(ctx context.Context, id uuid.UUID) ([]world.Location, error) {
	keys, err := r.client.SMembers(ctx, indexKey("locations", id)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	var out []world.Location
	for _, key := range keys {
		var loc world.Location
		found, err := r.getRecord(ctx, recordKey("location", id, key), &loc)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, loc)
		}
	}
	return out, nil
}

func (r *RedisStorage) FactsAbout(ctx context.Context, id uuid.UUID, subjectKey string) ([]world.Fact, error) {
	vals, err := r.client.LRange(ctx, recordKey("facts", id, subjectKey), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to load facts: %w", err)
	}

	facts := make([]world.Fact, 0, len(vals))
	for _, v := range vals {
		var f world.Fact
		if err := json.Unmarshal([]byte(v), &f); err != nil {
			r.logger.Warn("Skipping unreadable fact record", "uuid", id, "subject", subjectKey, "error", err)
			continue
		}
		facts = append(facts, f)
	}
	return facts, nil
}

func (r *RedisStorage) Needs(ctx context.Context, id uuid.UUID, entityKey string) (map[string]int, error) {
	vals, err := r.client.HGetAll(ctx, recordKey("needs", id, entityKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load needs: %w", err)
	}

	needs := make(map[string]int, len(vals))
	for need, raw := range vals {
		var v int
		if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
			r.logger.Warn("Skipping unreadable need value", "uuid", id, "need", need, "value", raw)
			continue
		}
		needs[need] = v
	}
	return needs, nil
}

// Turn log operations

func (r *RedisStorage) AppendTurn(ctx context.Context, id uuid.UUID, t *branch.Turn) error {
	data, err := json.Marshal(t)
	if err != nil {
		r.logger.Error("Failed to marshal turn", "uuid", id, "turn", t.TurnNumber, "error", err)
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	if err := r.client.RPush(ctx, indexKey("turns", id), string(data)).Err(); err != nil {
		r.logger.Error("Failed to append turn", "uuid", id, "turn", t.TurnNumber, "error", err)
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

func (r *RedisStorage) RecentTurns(ctx context.Context, id uuid.UUID, n int) ([]branch.Turn, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	vals, err := r.client.LRange(ctx, indexKey("turns", id), start, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}

	turns := make([]branch.Turn, 0, len(vals))
	for _, v := range vals {
		var t branch.Turn
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			r.logger.Warn("Skipping unreadable turn record", "uuid", id, "error", err)
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// getRecord loads one JSON record; found is false when the key is absent.
func (r *RedisStorage) getRecord(ctx context.Context, key string, dst any) (bool, error) {
	cmd := r.client.Get(ctx, key)
	if err := cmd.Err(); err != nil {
		if err == redis.Nil {
			return false, nil
		}
		r.logger.Error("Failed to load record", "key", key, "error", err)
		return false, fmt.Errorf("failed to load record %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(cmd.Val()), dst); err != nil {
		r.logger.Error("Failed to unmarshal record", "key", key, "error", err)
		return false, fmt.Errorf("failed to unmarshal record %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisStorage) saveRecord(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("Failed to marshal record", "key", key, "error", err)
		return fmt.Errorf("failed to marshal record %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, string(data), 0).Err(); err != nil {
		r.logger.Error("Failed to save record", "key", key, "error", err)
		return fmt.Errorf("failed to save record %s: %w", key, err)
	}
	return nil
}
