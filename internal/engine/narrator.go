package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sbstnppl/branch-engine/internal/services"
	"github.com/sbstnppl/branch-engine/pkg/branch"
	"github.com/sbstnppl/branch-engine/pkg/prompts"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

// narratorTemperature cools the narrative model below the branch
// generator's default: format compliance matters more than variety in a
// refinement pass.
const narratorTemperature = 0.3

// Narrator is the optional second voice pass: it rewrites the committed
// variant's narrative for tone without changing facts. The draft has
// already shaped the world, so a refinement that fails validation is
// discarded and the draft ships as-is.
type Narrator struct {
	oracle      services.Oracle
	logger      *slog.Logger
	maxAttempts int
}

func NewNarrator(oracle services.Oracle, maxAttempts int, logger *slog.Logger) *Narrator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Narrator{oracle: oracle, logger: logger, maxAttempts: maxAttempts}
}

// Refine returns a polished narrative, or the draft unchanged when every
// attempt produced something worse than the input.
func (n *Narrator) Refine(ctx context.Context, draft string, sc *scene, clock world.Clock) string {
	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		refined, err := n.oracle.GenerateWithTemperature(ctx, prompts.NarratorMessages(draft, sc.manifest, clock), narratorTemperature)
		if err != nil {
			n.logger.Warn("Narrator pass failed", "attempt", attempt, "error", err)
			continue
		}
		refined = strings.TrimSpace(refined)
		if refined == "" {
			n.logger.Warn("Narrator returned empty text", "attempt", attempt)
			continue
		}

		candidate := &branch.Variant{Name: branch.VariantSuccess, Narrative: refined}
		if violations := branch.ValidateNarrative(candidate, sc.manifest, sc.recentTurns, sc.playerItems); len(violations) > 0 {
			n.logger.Warn("Narrator output rejected",
				"attempt", attempt,
				"violations", branch.FormatViolations(violations))
			continue
		}
		return refined
	}

	n.logger.Warn("Narrator exhausted attempts, keeping draft")
	return draft
}
