package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sbstnppl/branch-engine/pkg/branch"
	"github.com/sbstnppl/branch-engine/pkg/storage"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

// Collapser commits one variant of a branch and discards the rest. The
// ordering is strict: commit the deltas, refresh the session from
// storage, then record the turn from the refreshed state. The turn log
// can never describe a world that was not actually written.
type Collapser struct {
	store  storage.Storage
	logger *slog.Logger
}

func NewCollapser(store storage.Storage, logger *slog.Logger) *Collapser {
	return &Collapser{store: store, logger: logger}
}

// Collapse applies the resolved variant's deltas atomically and appends
// the turn record. A commit failure leaves the world and the turn log
// untouched; the caller decides how to answer the player.
func (c *Collapser) Collapse(ctx context.Context, sess *world.Session, b *branch.Branch, outcome branch.VariantName, input string) (*branch.Turn, *branch.Variant, error) {
	variant, err := b.Pick(outcome)
	if err != nil {
		return nil, nil, err
	}

	locationBefore := sess.LocationKey

	if err := c.store.ApplyDeltas(ctx, sess, variant.Deltas, variant.TimePassedMinutes); err != nil {
		c.logger.Error("Collapse commit failed",
			"session", sess.ID, "outcome", outcome, "error", err)
		return nil, nil, fmt.Errorf("collapse commit: %w", err)
	}

	// Refresh from storage before recording: the turn must reflect what
	// was committed, not the in-memory copy.
	refreshed, err := c.store.LoadSession(ctx, sess.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("refresh after commit: %w", err)
	}
	if refreshed == nil {
		return nil, nil, fmt.Errorf("session %s vanished after commit", sess.ID)
	}
	*sess = *refreshed

	turn := &branch.Turn{
		TurnNumber:      sess.TurnCount,
		PlayerInput:     input,
		NarrativeOutput: variant.Narrative,
		AppliedDeltas:   variant.Deltas,
		LocationBefore:  locationBefore,
		LocationAfter:   sess.LocationKey,
		GameTime:        sess.Clock,
	}
	if err := c.store.AppendTurn(ctx, sess.ID, turn); err != nil {
		return nil, nil, fmt.Errorf("record turn: %w", err)
	}

	c.logger.Debug("Collapsed branch",
		"session", sess.ID,
		"outcome", outcome,
		"turn", turn.TurnNumber,
		"deltas", len(variant.Deltas))
	return turn, variant, nil
}
