package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sbstnppl/branch-engine/internal/services"
	"github.com/sbstnppl/branch-engine/pkg/prompts"
	"github.com/sbstnppl/branch-engine/pkg/storage"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

// OOCPrefix marks an input as out-of-character. OOC turns never touch
// world state and never appear in the turn log.
const OOCPrefix = "/ooc"

// IsOOC reports whether the input is an out-of-character question and
// returns it with the prefix stripped. Both "/ooc ..." and "ooc: ..."
// are recognized.
func IsOOC(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)
	for _, prefix := range []string{OOCPrefix, "ooc:"} {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(trimmed[len(prefix):]), true
		}
	}
	return input, false
}

// OOCHandler answers out-of-character questions. Mechanical questions
// (exits, time, inventory, who is present, needs) are answered straight
// from storage; anything else goes to the oracle with a world summary,
// and only that summary, to ground the answer.
type OOCHandler struct {
	store  storage.Storage
	oracle services.Oracle
	logger *slog.Logger
}

func NewOOCHandler(store storage.Storage, oracle services.Oracle, logger *slog.Logger) *OOCHandler {
	return &OOCHandler{store: store, oracle: oracle, logger: logger}
}

func (h *OOCHandler) Handle(ctx context.Context, sess *world.Session, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return h.help(), nil
	}

	lower := strings.ToLower(question)
	switch {
	case containsAny(lower, "help", "commands"):
		return h.help(), nil
	case containsAny(lower, "exit", "exits", "where can i go", "leave"):
		return h.exits(ctx, sess)
	case containsAny(lower, "time", "clock", "what day"):
		return fmt.Sprintf("It is %s (%s).", sess.Clock.String(), sess.Clock.Period()), nil
	case containsAny(lower, "inventory", "carrying", "items", "holding"):
		return h.inventory(ctx, sess)
	case containsAny(lower, "who", "here", "present", "around"):
		return h.present(ctx, sess)
	case containsAny(lower, "need", "needs", "hungry", "thirsty", "tired", "stats", "status"):
		return h.needs(ctx, sess)
	}

	return h.fallback(ctx, sess, question)
}

func (h *OOCHandler) help() string {
	return strings.Join([]string{
		"Out-of-character questions I can answer directly:",
		"  exits      - where you can go from here",
		"  time       - the current in-game time",
		"  inventory  - what you are carrying",
		"  who's here - people and things present",
		"  needs      - your current condition",
		"Anything else is answered from what the world currently knows.",
	}, "\n")
}

func (h *OOCHandler) exits(ctx context.Context, sess *world.Session) (string, error) {
	loc, err := h.store.GetLocation(ctx, sess.ID, sess.LocationKey)
	if err != nil {
		return "", err
	}
	if loc == nil || len(loc.Exits) == 0 {
		return "There are no obvious exits.", nil
	}

	names := make([]string, 0, len(loc.Exits))
	for _, exit := range loc.Exits {
		dest, err := h.store.GetLocation(ctx, sess.ID, exit)
		if err != nil {
			return "", err
		}
		if dest != nil {
			names = append(names, dest.DisplayName)
		} else {
			names = append(names, exit)
		}
	}
	return "Exits: " + strings.Join(names, ", ") + ".", nil
}

func (h *OOCHandler) inventory(ctx context.Context, sess *world.Session) (string, error) {
	items, err := h.store.ItemsHeldBy(ctx, sess.ID, world.PlayerKey)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "You are not carrying anything.", nil
	}

	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.DisplayName)
	}
	sort.Strings(names)
	return "You are carrying: " + strings.Join(names, ", ") + ".", nil
}

func (h *OOCHandler) present(ctx context.Context, sess *world.Session) (string, error) {
	entities, err := h.store.EntitiesAt(ctx, sess.ID, sess.LocationKey)
	if err != nil {
		return "", err
	}
	items, err := h.store.ItemsHeldBy(ctx, sess.ID, sess.LocationKey)
	if err != nil {
		return "", err
	}
	if len(entities) == 0 && len(items) == 0 {
		return "You are alone here.", nil
	}

	var names []string
	for _, e := range entities {
		names = append(names, e.DisplayName)
	}
	for _, it := range items {
		names = append(names, it.DisplayName)
	}
	sort.Strings(names)
	return "Here: " + strings.Join(names, ", ") + ".", nil
}

func (h *OOCHandler) needs(ctx context.Context, sess *world.Session) (string, error) {
	needs, err := h.store.Needs(ctx, sess.ID, world.PlayerKey)
	if err != nil {
		return "", err
	}
	if len(needs) == 0 {
		return "You feel fine.", nil
	}

	keys := make([]string, 0, len(needs))
	for k := range needs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %d/%d", k, needs[k], world.NeedMax))
	}
	return strings.Join(lines, "\n"), nil
}

// fallback asks the oracle, constrained to a summary of current state so
// the answer cannot leak or invent world facts.
func (h *OOCHandler) fallback(ctx context.Context, sess *world.Session, question string) (string, error) {
	summary, err := h.summary(ctx, sess)
	if err != nil {
		return "", err
	}

	answer, err := h.oracle.Generate(ctx, prompts.OOCFallbackMessages(summary, question))
	if err != nil {
		h.logger.Warn("OOC oracle call failed", "session", sess.ID, "error", err)
		return "I can't answer that right now. Try 'help' for what I can always answer.", nil
	}
	return strings.TrimSpace(answer), nil
}

func (h *OOCHandler) summary(ctx context.Context, sess *world.Session) (string, error) {
	var b strings.Builder

	loc, err := h.store.GetLocation(ctx, sess.ID, sess.LocationKey)
	if err != nil {
		return "", err
	}
	if loc != nil {
		fmt.Fprintf(&b, "Location: %s. %s\n", loc.DisplayName, loc.Description)
	}
	fmt.Fprintf(&b, "Time: %s (%s).\n", sess.Clock.String(), sess.Clock.Period())

	entities, err := h.store.EntitiesAt(ctx, sess.ID, sess.LocationKey)
	if err != nil {
		return "", err
	}
	for _, e := range entities {
		fmt.Fprintf(&b, "Present: %s (%s). %s\n", e.DisplayName, e.Disposition, e.Description)
		facts, err := h.store.FactsAbout(ctx, sess.ID, e.Key)
		if err != nil {
			return "", err
		}
		for _, f := range facts {
			if f.Category == world.FactSecret {
				continue // never surface secrets out of character
			}
			fmt.Fprintf(&b, "Known about %s: %s %s\n", e.DisplayName, f.Predicate, f.Value)
		}
	}

	items, err := h.store.ItemsHeldBy(ctx, sess.ID, world.PlayerKey)
	if err != nil {
		return "", err
	}
	for _, it := range items {
		fmt.Fprintf(&b, "Carrying: %s.\n", it.DisplayName)
	}

	return b.String(), nil
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
