package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sbstnppl/branch-engine/pkg/branch"
	store "github.com/sbstnppl/branch-engine/pkg/storage"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

// ApplyDeltas commits a collapsed variant. Every record the delta
// sequence can touch is loaded first, the deltas are staged against that
// snapshot with all constraints enforced, and only a fully valid result
// is written back, in one MULTI/EXEC transaction. A constraint failure
// writes nothing.
func (r *RedisStorage) ApplyDeltas(ctx context.Context, sess *world.Session, deltas []branch.StateDelta, timePassed int) error {
	staged := *sess
	snap := store.NewSnapshot(&staged)
	if err := r.loadSnapshot(ctx, sess.ID, snap, deltas); err != nil {
		return err
	}

	if err := store.Stage(snap, deltas, timePassed); err != nil {
		return err
	}

	sessData, err := json.Marshal(&staged)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	id := sess.ID
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, e := range snap.Entities {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal entity %q: %w", key, err)
			}
			pipe.Set(ctx, recordKey("entity", id, key), string(data), 0)
			pipe.SAdd(ctx, indexKey("entities", id), key)
		}
		for key, it := range snap.Items {
			data, err := json.Marshal(it)
			if err != nil {
				return fmt.Errorf("failed to marshal item %q: %w", key, err)
			}
			pipe.Set(ctx, recordKey("item", id, key), string(data), 0)
			pipe.SAdd(ctx, indexKey("items", id), key)
		}
		for key, loc := range snap.Locations {
			data, err := json.Marshal(loc)
			if err != nil {
				return fmt.Errorf("failed to marshal location %q: %w", key, err)
			}
			pipe.Set(ctx, recordKey("location", id, key), string(data), 0)
			pipe.SAdd(ctx, indexKey("locations", id), key)
		}
		for _, key := range snap.Deleted {
			pipe.Del(ctx, recordKey("entity", id, key), recordKey("item", id, key), recordKey("needs", id, key))
			pipe.SRem(ctx, indexKey("entities", id), key)
			pipe.SRem(ctx, indexKey("items", id), key)
		}
		for target, needs := range snap.Needs {
			for need, value := range needs {
				pipe.HSet(ctx, recordKey("needs", id, target), need, value)
			}
		}
		for _, f := range snap.NewFacts {
			data, err := json.Marshal(&f)
			if err != nil {
				return fmt.Errorf("failed to marshal fact: %w", err)
			}
			pipe.RPush(ctx, recordKey("facts", id, f.SubjectKey), string(data))
		}
		pipe.Set(ctx, sessionKey(id), string(sessData), 0)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to commit deltas", "uuid", id, "deltas", len(deltas), "error", err)
		return fmt.Errorf("failed to commit deltas: %w", err)
	}

	*sess = staged
	return nil
}

// loadSnapshot preloads every record the deltas reference, so existence
// checks during staging are exact. Keys never referenced stay out of the
// snapshot and out of the write set.
func (r *RedisStorage) loadSnapshot(ctx context.Context, id uuid.UUID, snap *store.Snapshot, deltas []branch.StateDelta) error {
	keys := make(map[string]struct{})
	needTargets := make(map[string]struct{})
	for _, d := range deltas {
		if d.TargetKey != "" {
			keys[d.TargetKey] = struct{}{}
		}
		switch p := d.Payload.(type) {
		case branch.TransferItem:
			if p.FromKey != "" {
				keys[p.FromKey] = struct{}{}
			}
			if p.ToKey != "" {
				keys[p.ToKey] = struct{}{}
			}
		case branch.UpdateNeed:
			needTargets[d.TargetKey] = struct{}{}
		}
	}

	for key := range keys {
		if key == world.PlayerKey {
			continue
		}
		var e world.Entity
		found, err := r.getRecord(ctx, recordKey("entity", id, key), &e)
		if err != nil {
			return err
		}
		if found {
			snap.Entities[key] = &e
			continue
		}
		var it world.Item
		if found, err = r.getRecord(ctx, recordKey("item", id, key), &it); err != nil {
			return err
		}
		if found {
			snap.Items[key] = &it
			continue
		}
		var loc world.Location
		if found, err = r.getRecord(ctx, recordKey("location", id, key), &loc); err != nil {
			return err
		}
		if found {
			snap.Locations[key] = &loc
		}
	}

	for target := range needTargets {
		needs, err := r.Needs(ctx, id, target)
		if err != nil {
			return err
		}
		snap.Needs[target] = needs
	}

	return nil
}
