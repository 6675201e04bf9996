package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	store "github.com/sbstnppl/branch-engine/pkg/storage"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

// RedisStorage implements the Storage interface using Redis for
// session world records and the filesystem for scenario definitions.
type RedisStorage struct {
	client  *redis.Client
	logger  *slog.Logger
	dataDir string
}

// Ensure RedisStorage implements the Storage interface
var _ store.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, dataDir string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	if dataDir == "" {
		dataDir = "./data"
	}

	return &RedisStorage{
		client:  rdb,
		logger:  logger,
		dataDir: dataDir,
	}
}

// Key layout, all scoped by session ID:
//
//	session:{id}        JSON session header
//	entity:{id}:{key}   JSON entity record
//	item:{id}:{key}     JSON item record
//	location:{id}:{key} JSON location record
//	entities:{id}       set of entity keys
//	items:{id}          set of item keys
//	locations:{id}      set of location keys
//	facts:{id}:{key}    list of JSON facts about a subject
//	needs:{id}:{key}    hash of need name to value
//	turns:{id}          list of JSON turn records
func sessionKey(id uuid.UUID) string { return "session:" + id.String() }

func recordKey(kind string, id uuid.UUID, key string) string {
	return kind + ":" + id.String() + ":" + key
}

func indexKey(kind string, id uuid.UUID) string { return kind + ":" + id.String() }

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	cmd := r.client.Ping(ctx)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Session operations

// CreateSession seeds a new session from a scenario: the session header
// plus a copy of every scenario location, entity, and item, written in
// one transaction.
func (r *RedisStorage) CreateSession(ctx context.Context, sc *world.Scenario) (*world.Session, error) {
	now := time.Now()
	sess := &world.Session{
		ID:            uuid.New(),
		ScenarioName:  sc.Name,
		LocationKey:   sc.StartLocation,
		Clock:         sc.Clock,
		ContentRating: sc.ContentRating,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	sessData, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(sess.ID), string(sessData), 0)
		for i := range sc.Locations {
			loc := sc.Locations[i]
			data, err := json.Marshal(&loc)
			if err != nil {
				return fmt.Errorf("failed to marshal location %q: %w", loc.Key, err)
			}
			pipe.Set(ctx, recordKey("location", sess.ID, loc.Key), string(data), 0)
			pipe.SAdd(ctx, indexKey("locations", sess.ID), loc.Key)
		}
		for i := range sc.Entities {
			e := sc.Entities[i]
			if e.Type == "" {
				e.Type = world.EntityNPC
			}
			data, err := json.Marshal(&e)
			if err != nil {
				return fmt.Errorf("failed to marshal entity %q: %w", e.Key, err)
			}
			pipe.Set(ctx, recordKey("entity", sess.ID, e.Key), string(data), 0)
			pipe.SAdd(ctx, indexKey("entities", sess.ID), e.Key)
		}
		for i := range sc.Items {
			it := sc.Items[i]
			data, err := json.Marshal(&it)
			if err != nil {
				return fmt.Errorf("failed to marshal item %q: %w", it.Key, err)
			}
			pipe.Set(ctx, recordKey("item", sess.ID, it.Key), string(data), 0)
			pipe.SAdd(ctx, indexKey("items", sess.ID), it.Key)
		}
		for need, value := range sc.PlayerNeeds {
			pipe.HSet(ctx, recordKey("needs", sess.ID, world.PlayerKey), need, world.ClampNeed(value))
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to seed session", "uuid", sess.ID, "error", err)
		return nil, fmt.Errorf("failed to seed session: %w", err)
	}

	return sess, nil
}

func (r *RedisStorage) SaveSession(ctx context.Context, sess *world.Session) error {
	sess.UpdatedAt = time.Now()

	data, err := json.Marshal(sess)
	if err != nil {
		r.logger.Error("Failed to marshal session", "uuid", sess.ID, "error", err)
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	cmd := r.client.Set(ctx, sessionKey(sess.ID), string(data), 0)
	if err := cmd.Err(); err != nil {
		r.logger.Error("Failed to save session", "uuid", sess.ID, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

func (r *RedisStorage) LoadSession(ctx context.Context, id uuid.UUID) (*world.Session, error) {
	cmd := r.client.Get(ctx, sessionKey(id))
	if err := cmd.Err(); err != nil {
		if err == redis.Nil {
			r.logger.Warn("Session not found", "uuid", id)
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load session", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess world.Session
	if err := json.Unmarshal([]byte(cmd.Val()), &sess); err != nil {
		r.logger.Error("Failed to unmarshal session", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &sess, nil
}

// DeleteSession removes the session header and every record scoped to it.
func (r *RedisStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	keys := []string{sessionKey(id), indexKey("turns", id)}

	for _, kind := range []string{"entities", "items", "locations"} {
		members, err := r.client.SMembers(ctx, indexKey(kind, id)).Result()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to list %s for delete: %w", kind, err)
		}
		record := kind[:len(kind)-1] // entities -> entity
		if kind == "entities" {
			record = "entity"
		}
		for _, member := range members {
			keys = append(keys, recordKey(record, id, member))
			keys = append(keys, recordKey("facts", id, member), recordKey("needs", id, member))
		}
		keys = append(keys, indexKey(kind, id))
	}
	keys = append(keys, recordKey("facts", id, world.PlayerKey), recordKey("needs", id, world.PlayerKey))

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Error("Failed to delete session", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
