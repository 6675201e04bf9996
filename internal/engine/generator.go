package engine

import (
	"context"
	"log/slog"

	"github.com/sbstnppl/branch-engine/internal/services"
	"github.com/sbstnppl/branch-engine/pkg/action"
	"github.com/sbstnppl/branch-engine/pkg/branch"
	"github.com/sbstnppl/branch-engine/pkg/prompts"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

// Generator produces a validated branch for one action, regenerating with
// feedback when an attempt fails parsing, repair, or validation. The
// creative call runs on the narrative model at its default temperature;
// only classification and repair clarification use the cold backend
// model. When the retry budget is spent it accepts a minimal
// deterministic fallback rather than failing the turn.
type Generator struct {
	oracle      services.Oracle
	post        *branch.PostProcessor
	logger      *slog.Logger
	maxAttempts int
}

func NewGenerator(oracle services.Oracle, post *branch.PostProcessor, maxAttempts int, logger *slog.Logger) *Generator {
	return &Generator{
		oracle:      oracle,
		post:        post,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// Generate runs the request-generate-repair-validate loop. The returned
// lifecycle records how the branch was obtained; callers can tell a
// validated branch (PhaseValid) from the fallback (PhaseFallbackAccepted).
func (g *Generator) Generate(ctx context.Context, sc *scene, act action.Action, input string, clock world.Clock) (*branch.Branch, *branch.Lifecycle) {
	lc := branch.NewLifecycle(g.maxAttempts)
	feedback := ""

	for lc.BeginAttempt() {
		b, reason := g.attempt(ctx, lc, sc, act, input, clock, feedback)
		if b != nil {
			lc.Valid()
			return b, lc
		}

		g.logger.Warn("Branch attempt rejected",
			"attempt", lc.Attempt,
			"max_attempts", lc.MaxAttempts,
			"reason", truncate(reason, 400))
		if !lc.Invalid(reason) {
			break
		}
		feedback = reason
	}

	g.logger.Error("Branch generation exhausted retries, using fallback",
		"attempts", lc.Attempt, "last_error", truncate(lc.LastError, 400))
	return branch.Fallback(sc.manifest.CurrentLocationDisplay), lc
}

// attempt runs one full generation pass. It returns the validated branch,
// or nil and the reason to feed into the next attempt.
func (g *Generator) attempt(ctx context.Context, lc *branch.Lifecycle, sc *scene, act action.Action, input string, clock world.Clock, feedback string) (*branch.Branch, string) {
	builder := prompts.NewBuilder().
		WithManifest(sc.manifest).
		WithAction(&act).
		WithPlayerInput(input).
		WithRecentTurns(sc.recentTurns).
		WithClock(clock)
	if act.Kind == action.KindMove && act.TargetKey != "" {
		builder = builder.WithMove(sc.manifest.CurrentLocation, act.TargetKey)
	}
	if feedback != "" {
		builder = builder.WithFeedback(feedback)
	}
	messages, err := builder.Build()
	if err != nil {
		return nil, "prompt build failed: " + err.Error()
	}

	raw, err := g.oracle.Generate(ctx, messages)
	if err != nil {
		return nil, "oracle call failed: " + err.Error()
	}

	b, err := branch.ParseResponse(raw)
	if err != nil {
		g.logger.Debug("Branch response unparseable")
		return nil, err.Error()
	}
	lc.Generated()

	if err := g.post.Process(ctx, b, sc.manifest); err != nil {
		return nil, err.Error()
	}
	lc.Repaired()

	if violations := branch.ValidateBranch(b, sc.manifest, sc.recentTurns, sc.playerItems); len(violations) > 0 {
		return nil, branch.FormatViolations(violations)
	}

	return b, ""
}
