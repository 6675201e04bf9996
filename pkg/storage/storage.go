package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sbstnppl/branch-engine/pkg/branch"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

// Storage defines a unified interface for all persistence operations.
// Session world records live in Redis; scenario definitions are loaded
// from the filesystem.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Session records
	CreateSession(ctx context.Context, sc *world.Scenario) (*world.Session, error)
	SaveSession(ctx context.Context, sess *world.Session) error
	LoadSession(ctx context.Context, id uuid.UUID) (*world.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// Scenario definitions (filesystem-backed)
	ListScenarios(ctx context.Context) (map[string]string, error)
	GetScenario(ctx context.Context, filename string) (*world.Scenario, error)

	// World records, scoped to a session. Get methods return nil for
	// not found.
	GetEntity(ctx context.Context, id uuid.UUID, key string) (*world.Entity, error)
	SaveEntity(ctx context.Context, id uuid.UUID, e *world.Entity) error
	EntitiesAt(ctx context.Context, id uuid.UUID, locationKey string) ([]world.Entity, error)
	GetItem(ctx context.Context, id uuid.UUID, key string) (*world.Item, error)
	SaveItem(ctx context.Context, id uuid.UUID, it *world.Item) error
	ItemsHeldBy(ctx context.Context, id uuid.UUID, holderKey string) ([]world.Item, error)
	GetLocation(ctx context.Context, id uuid.UUID, key string) (*world.Location, error)
	SaveLocation(ctx context.Context, id uuid.UUID, loc *world.Location) error
	ListLocations(ctx context.Context, id uuid.UUID) ([]world.Location, error)
	FactsAbout(ctx context.Context, id uuid.UUID, subjectKey string) ([]world.Fact, error)
	Needs(ctx context.Context, id uuid.UUID, entityKey string) (map[string]int, error)

	// Turn log (append-only)
	AppendTurn(ctx context.Context, id uuid.UUID, t *branch.Turn) error
	RecentTurns(ctx context.Context, id uuid.UUID, n int) ([]branch.Turn, error)

	// ApplyDeltas commits a collapsed variant's deltas plus its elapsed
	// time as a single atomic write. On any constraint violation nothing
	// is written and a *ConstraintError is returned. On success the
	// passed session reflects the committed clock, location, and turn
	// count.
	ApplyDeltas(ctx context.Context, sess *world.Session, deltas []branch.StateDelta, timePassed int) error
}

// ConstraintError is returned when a delta fails a storage-level
// constraint at commit time. The whole commit rolls back; partial
// application never happens.
type ConstraintError struct {
	Delta  string
	Reason string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("delta %s rejected: %s", e.Delta, e.Reason)
}

func constraintErr(d branch.StateDelta, format string, args ...any) error {
	return &ConstraintError{Delta: d.String(), Reason: fmt.Sprintf(format, args...)}
}
