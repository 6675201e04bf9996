package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/sbstnppl/branch-engine/internal/services"
	"github.com/sbstnppl/branch-engine/pkg/action"
	"github.com/sbstnppl/branch-engine/pkg/prompts"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

// confidenceThreshold is the floor below which an oracle classification
// is discarded in favor of the deterministic matcher.
const confidenceThreshold = 0.6

// Classifier turns free-text player input into a typed action. The oracle
// gets first crack; anything malformed, off-enum, ungrounded, or
// low-confidence falls through to the deterministic matcher, so
// classification can never fail a turn.
type Classifier struct {
	oracle services.Oracle
	logger *slog.Logger
}

func NewClassifier(oracle services.Oracle, logger *slog.Logger) *Classifier {
	return &Classifier{oracle: oracle, logger: logger}
}

func (c *Classifier) Classify(ctx context.Context, input string, m *world.Manifest, recentTurns []string) action.Action {
	raw, model, err := c.oracle.GenerateStructured(ctx, prompts.ClassifierMessages(input, m, recentTurns))
	if err != nil {
		c.logger.Warn("Classifier oracle call failed, using matcher", "error", err)
		return action.Match(input, m)
	}

	a, ok := parseClassification(raw, m)
	if !ok {
		c.logger.Warn("Classifier output unusable, using matcher", "model", model, "raw", truncate(raw, 200))
		return action.Match(input, m)
	}
	if a.Confidence < confidenceThreshold {
		c.logger.Debug("Classifier confidence below threshold, using matcher",
			"kind", a.Kind, "confidence", a.Confidence)
		return action.Match(input, m)
	}

	c.logger.Debug("Classified input", "kind", a.Kind, "target", a.TargetKey, "confidence", a.Confidence)
	return a
}

var validKinds = map[action.Kind]struct{}{
	action.KindMove:           {},
	action.KindObserve:        {},
	action.KindWait:           {},
	action.KindSkillUse:       {},
	action.KindInteractNPC:    {},
	action.KindManipulateItem: {},
	action.KindQuestion:       {},
	action.KindUnknown:        {},
}

// parseClassification accepts an oracle classification only when the kind
// is on-enum and any target key is grounded in the manifest. A move to an
// illegal destination is rejected here rather than repaired later.
func parseClassification(raw string, m *world.Manifest) (action.Action, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return action.Action{}, false
	}

	var a action.Action
	if err := json.Unmarshal([]byte(raw[start:end+1]), &a); err != nil {
		return action.Action{}, false
	}

	a.Kind = action.Kind(strings.ToLower(strings.TrimSpace(string(a.Kind))))
	if _, ok := validKinds[a.Kind]; !ok {
		return action.Action{}, false
	}
	a.TargetKey = strings.TrimSpace(a.TargetKey)

	if a.TargetKey != "" && !m.IsValid(a.TargetKey) {
		return action.Action{}, false
	}
	if a.Kind == action.KindMove {
		if a.TargetKey == "" || !m.LegalDestination(a.TargetKey) {
			return action.Action{}, false
		}
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return action.Action{}, false
	}
	return a, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
