package action

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/sbstnppl/branch-engine/pkg/world"
)

// Deterministic fallback matcher. Used when the oracle classifier fails or
// returns a low-confidence result, so a turn never dies on classification.

// verbKinds maps leading verbs to action kinds. Skill verbs are listed
// separately and always win over this table, because classifying a skill
// attempt as movement or item handling would bypass dice resolution.
var verbKinds = map[string]Kind{
	"go":      KindMove,
	"walk":    KindMove,
	"head":    KindMove,
	"travel":  KindMove,
	"enter":   KindMove,
	"leave":   KindMove,
	"exit":    KindMove,
	"return":  KindMove,
	"look":    KindObserve,
	"examine": KindObserve,
	"inspect": KindObserve,
	"watch":   KindObserve,
	"observe": KindObserve,
	"survey":  KindObserve,
	"wait":    KindWait,
	"linger":  KindWait,
	"rest":    KindWait,
	"take":    KindManipulateItem,
	"grab":    KindManipulateItem,
	"drop":    KindManipulateItem,
	"use":     KindManipulateItem,
	"open":    KindManipulateItem,
	"close":   KindManipulateItem,
	"give":    KindInteractNPC,
	"show":    KindInteractNPC,
	"buy":     KindInteractNPC,
	"sell":    KindInteractNPC,
	"order":   KindInteractNPC,
	"trade":   KindInteractNPC,
	"greet":   KindInteractNPC,
}

var skillVerbs = map[string]struct{}{
	"sneak":      {},
	"climb":      {},
	"persuade":   {},
	"convince":   {},
	"intimidate": {},
	"swim":       {},
	"jump":       {},
	"hide":       {},
	"steal":      {},
	"lockpick":   {},
	"track":      {},
	"forage":     {},
	"haggle":     {},
}

// speechVerbs introduce a speech act directed at an NPC. Their presence with
// a resolvable NPC target makes the input an action, never a meta question,
// regardless of nested modal verbs ("ask Tom if I can buy bread").
var speechVerbs = map[string]struct{}{
	"ask":     {},
	"tell":    {},
	"say":     {},
	"talk":    {},
	"speak":   {},
	"whisper": {},
	"shout":   {},
	"greet":   {},
}

var questionOpeners = []string{
	"could i", "can i", "would i", "should i", "is ", "are ", "was ",
	"do i", "does ", "did ", "what", "where", "when", "who", "why", "how",
}

const fuzzyScoreFloor = 0

// Match classifies input deterministically against the manifest. It never
// fails: unrecognized input falls through to KindUnknown with zero
// confidence.
func Match(input string, m *world.Manifest) Action {
	lower := strings.ToLower(strings.TrimSpace(input))
	if lower == "" {
		return Action{Kind: KindUnknown}
	}
	words := strings.Fields(lower)

	// Speech acts first. The rule is structural (speech verb + NPC target
	// present), not lexical, so nested "can"/"if" never reroutes these to
	// the question path.
	if hasAny(words, speechVerbs) {
		if key, display, ok := resolveNPC(lower, m); ok {
			return Action{Kind: KindInteractNPC, TargetKey: key, TargetDisplay: display, Confidence: 0.9}
		}
	}

	if isQuestion(lower) {
		return Action{Kind: KindQuestion, Confidence: 0.8}
	}

	// "pick the lock" is a skill attempt; "pick up the mug" is item handling.
	if idx := indexOf(words, "pick"); idx >= 0 {
		if idx+1 < len(words) && words[idx+1] == "up" {
			a := Action{Kind: KindManipulateItem, Confidence: 0.7}
			a.TargetKey, a.TargetDisplay = resolveEntity(lower, m)
			return a
		}
		return Action{Kind: KindSkillUse, Confidence: 0.8}
	}

	if hasAny(words, skillVerbs) {
		a := Action{Kind: KindSkillUse, Confidence: 0.8}
		a.TargetKey, a.TargetDisplay = resolveEntity(lower, m)
		return a
	}

	for _, w := range words {
		kind, ok := verbKinds[w]
		if !ok {
			continue
		}
		a := Action{Kind: kind, Confidence: 0.7}
		switch kind {
		case KindMove:
			a.TargetKey, a.TargetDisplay = resolveDestination(lower, m)
		case KindObserve, KindWait:
			// Untargeted: a missing or unmatched target is not an error.
		default:
			a.TargetKey, a.TargetDisplay = resolveEntity(lower, m)
		}
		return a
	}

	return Action{Kind: KindUnknown}
}

func isQuestion(lower string) bool {
	for _, opener := range questionOpeners {
		if strings.HasPrefix(lower, opener) {
			return true
		}
	}
	return false
}

func hasAny(words []string, set map[string]struct{}) bool {
	for _, w := range words {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

func indexOf(words []string, target string) int {
	for i, w := range words {
		if w == target {
			return i
		}
	}
	return -1
}

// resolveNPC fuzzy-matches the input against NPC display names in the
// manifest.
func resolveNPC(input string, m *world.Manifest) (string, string, bool) {
	keys := make([]string, 0, len(m.Entities))
	names := make([]string, 0, len(m.Entities))
	for k, ref := range m.Entities {
		if ref.Kind != world.EntityNPC {
			continue
		}
		keys = append(keys, k)
		names = append(names, ref.DisplayName)
	}
	idx, ok := bestWordMatch(input, names)
	if !ok {
		return "", "", false
	}
	return keys[idx], names[idx], true
}

// resolveEntity fuzzy-matches any manifest entity.
func resolveEntity(input string, m *world.Manifest) (string, string) {
	keys := make([]string, 0, len(m.Entities))
	names := make([]string, 0, len(m.Entities))
	for k, ref := range m.Entities {
		keys = append(keys, k)
		names = append(names, ref.DisplayName)
	}
	if idx, ok := bestWordMatch(input, names); ok {
		return keys[idx], names[idx]
	}
	return "", ""
}

// resolveDestination fuzzy-matches against legal movement destinations.
func resolveDestination(input string, m *world.Manifest) (string, string) {
	dests := m.Destinations()
	if idx, ok := bestWordMatch(input, dests); ok {
		return dests[idx], dests[idx]
	}
	return "", ""
}

// bestWordMatch runs each input word through the fuzzy matcher and returns
// the index of the strongest candidate match.
func bestWordMatch(input string, candidates []string) (int, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	bestIdx := -1
	bestScore := fuzzyScoreFloor
	for _, word := range strings.Fields(input) {
		if len(word) < 3 {
			continue
		}
		for _, match := range fuzzy.Find(word, candidates) {
			// Require the word to actually appear in the candidate, not
			// just share letters in order.
			if !strings.Contains(strings.ToLower(match.Str), word) {
				continue
			}
			if match.Score > bestScore || bestIdx < 0 {
				bestIdx = match.Index
				bestScore = match.Score
			}
		}
	}
	return bestIdx, bestIdx >= 0
}
