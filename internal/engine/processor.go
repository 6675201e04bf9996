package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/sbstnppl/branch-engine/internal/config"
	"github.com/sbstnppl/branch-engine/internal/services"
	"github.com/sbstnppl/branch-engine/pkg/action"
	"github.com/sbstnppl/branch-engine/pkg/branch"
	"github.com/sbstnppl/branch-engine/pkg/chat"
	"github.com/sbstnppl/branch-engine/pkg/storage"
	"github.com/sbstnppl/branch-engine/pkg/textfilter"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

// Engine runs the full turn pipeline: classify the input, generate and
// repair a branch of speculative outcomes, resolve which one happens,
// commit it atomically, then shape the narrative for the player.
type Engine struct {
	cfg        *config.Config
	store      storage.Storage
	oracle     services.Oracle
	classifier *Classifier
	generator  *Generator
	collapser  *Collapser
	narrator   *Narrator
	ooc        *OOCHandler
	anticipate *Anticipator
	filter     *textfilter.NarrativeFilter
	logger     *slog.Logger

	resolver *Resolver
}

// NewEngine wires the pipeline for one scenario's player. rng may be
// seeded deterministically in tests.
func NewEngine(cfg *config.Config, store storage.Storage, oracle services.Oracle, playerStats map[string]int, rng *rand.Rand, logger *slog.Logger) (*Engine, error) {
	resolver, err := NewResolver(playerStats, rng)
	if err != nil {
		return nil, err
	}

	post := branch.NewPostProcessor(logger).
		WithKeyResolver(oracleKeyResolver(oracle, logger))
	return &Engine{
		cfg:        cfg,
		store:      store,
		oracle:     oracle,
		classifier: NewClassifier(oracle, logger),
		generator:  NewGenerator(oracle, post, cfg.MaxGenerationAttempts, logger),
		collapser:  NewCollapser(store, logger),
		narrator:   NewNarrator(oracle, cfg.MaxNarratorAttempts, logger),
		ooc:        NewOOCHandler(store, oracle, logger),
		anticipate: NewAnticipator(cfg.Anticipation),
		filter:     textfilter.New(),
		logger:     logger,
		resolver:   resolver,
	}, nil
}

// NewSession seeds a session from a scenario and returns it with the
// opening narrative.
func (e *Engine) NewSession(ctx context.Context, sc *world.Scenario) (*world.Session, string, error) {
	if problems := sc.Validate(); len(problems) > 0 {
		return nil, "", fmt.Errorf("scenario %q is invalid: %s", sc.Name, strings.Join(problems, "; "))
	}

	sess, err := e.store.CreateSession(ctx, sc)
	if err != nil {
		return nil, "", err
	}

	opening := sc.OpeningNarrative
	if opening == "" {
		if loc := sc.Location(sc.StartLocation); loc != nil {
			opening = loc.Description
		}
	}
	opening = e.filter.Apply(opening, e.rating(sess))

	e.logger.Info("Session created",
		"session", sess.ID, "scenario", sc.Name, "location", sess.LocationKey)
	return sess, opening, nil
}

// ProcessTurn resolves one player input against the session. Out-of-
// character questions are answered without touching world state; anything
// else runs the full pipeline and commits exactly one outcome.
func (e *Engine) ProcessTurn(ctx context.Context, req *chat.TurnRequest) (*chat.TurnReply, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sess, err := e.store.LoadSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s not found", req.SessionID)
	}

	log := e.logger.With("session", sess.ID, "turn", sess.TurnCount+1)

	if question, ok := IsOOC(req.Input); ok {
		answer, err := e.ooc.Handle(ctx, sess, question)
		if err != nil {
			return nil, err
		}
		return &chat.TurnReply{
			SessionID: sess.ID,
			Narrative: answer,
			Location:  sess.LocationKey,
			GameTime:  sess.Clock.String(),
			OOC:       true,
		}, nil
	}

	sc, err := buildScene(ctx, e.store, sess)
	if err != nil {
		return nil, err
	}

	act := e.classifier.Classify(ctx, req.Input, sc.manifest, sc.recentTurns)

	// Meta questions get an informational answer from world state, the
	// same path OOC queries take. They never reach generation, so they
	// cannot hallucinate facts.
	if act.Kind == action.KindQuestion {
		answer, err := e.ooc.Handle(ctx, sess, req.Input)
		if err != nil {
			return nil, err
		}
		log.Info("Meta question answered without generation")
		return &chat.TurnReply{
			SessionID: sess.ID,
			Narrative: answer,
			Location:  sess.LocationKey,
			GameTime:  sess.Clock.String(),
			OOC:       true,
		}, nil
	}

	fellBack := false
	b, cached := e.anticipate.Get(sess.LocationKey, act)
	if cached {
		log.Debug("Using anticipated branch", "kind", act.Kind, "target", act.TargetKey)
	} else {
		var lc *branch.Lifecycle
		b, lc = e.generator.Generate(ctx, sc, act, req.Input, sess.Clock)
		switch lc.Phase {
		case branch.PhaseValid:
			e.anticipate.Put(sess.LocationKey, act, b)
		case branch.PhaseFallbackAccepted:
			fellBack = true
		}
	}

	outcome := e.resolver.Resolve(act)
	if fellBack && outcome != branch.VariantSuccess {
		// The fallback branch carries only a success variant; any other
		// roll must still answer the player.
		log.Debug("Forcing success outcome for fallback branch", "rolled", outcome)
		outcome = branch.VariantSuccess
	}
	locationBefore := sess.LocationKey

	turn, variant, err := e.collapser.Collapse(ctx, sess, b, outcome, req.Input)
	if err != nil {
		return nil, err
	}
	// A delta-less variant left the scene unchanged, so anticipated
	// branches for this location are still grounded.
	if len(variant.Deltas) > 0 {
		e.anticipate.InvalidateLocation(locationBefore)
		if sess.LocationKey != locationBefore {
			e.anticipate.InvalidateLocation(sess.LocationKey)
		}
	}

	narrative := variant.Narrative
	if e.cfg.NarratorPass {
		narrative = e.narrator.Refine(ctx, narrative, sc, sess.Clock)
	}
	narrative = e.filter.Apply(world.StripRefs(narrative), e.rating(sess))

	log.Info("Turn resolved",
		"kind", act.Kind,
		"outcome", outcome,
		"deltas", len(variant.Deltas),
		"location", sess.LocationKey)

	return &chat.TurnReply{
		SessionID:  sess.ID,
		TurnNumber: turn.TurnNumber,
		Narrative:  narrative,
		Location:   sess.LocationKey,
		GameTime:   sess.Clock.String(),
	}, nil
}

func (e *Engine) rating(sess *world.Session) string {
	if sess.ContentRating != "" {
		return sess.ContentRating
	}
	return e.cfg.ContentRating
}
