package branch

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/sbstnppl/branch-engine/pkg/world"
)

// Validator names used in violation reports and regeneration prompts.
const (
	ValidatorNarrative = "narrative_consistency"
	ValidatorDelta     = "delta"
	ValidatorBranch    = "branch"
)

// Violation is one structured validation failure. The list of violations
// is used both for logging and for constructing the next regeneration
// prompt.
type Violation struct {
	Variant   VariantName
	Validator string
	Message   string
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s/%s] %s", v.Variant, v.Validator, v.Message)
}

// FormatViolations renders violations as prompt feedback lines.
func FormatViolations(violations []Violation) string {
	lines := make([]string, 0, len(violations))
	for _, v := range violations {
		lines = append(lines, v.String())
	}
	return strings.Join(lines, "\n")
}

// leakMarkers are phrases that mean internal state or tooling leaked into
// the narrative.
var leakMarkers = []string{
	"let me check",
	"tool call",
	"function call",
	"create_entity",
	"update_entity",
	"delete_entity",
	"transfer_item",
	"update_location",
	"update_need",
	"record_fact",
	"advance_time",
	"state delta",
	"state_delta",
	"the system updates",
	"as an ai",
	"i am an ai",
	"i'm an ai",
	"language model",
	"as an assistant",
	"i cannot assist",
}

// fabricationMarkers flag callbacks to events that must be attested in the
// recent-turn history.
var fabricationMarkers = []string{
	"you remember when",
	"as you did earlier",
	"as before",
	"like last time",
	"once again you",
	"earlier today you",
}

// thirdPersonMarkers flag the narrator breaking the second-person voice.
var thirdPersonMarkers = []string{
	"the player",
	"the user",
	"your character",
}

var chatbotQuestionPattern = regexp.MustCompile(
	`(?i)(would you like|what would you like|do you want|what do you do|what will you do|how do you respond|how would you like|shall i|shall we)[^.!?]*\?\s*$`)

// ValidateNarrative checks one variant's prose against the grounding
// manifest and the recent-turn history. playerItems maps the display names
// of the player's carried or worn items, which may legally appear in plain
// prose without a [key:display] wrapper.
func ValidateNarrative(v *Variant, m *world.Manifest, recentTurns []string, playerItems map[string]string) []Violation {
	var out []Violation
	add := func(format string, args ...any) {
		out = append(out, Violation{
			Variant:   v.Name,
			Validator: ValidatorNarrative,
			Message:   fmt.Sprintf(format, args...),
		})
	}

	if strings.TrimSpace(v.Narrative) == "" {
		add("narrative is empty")
		return out
	}

	for _, ref := range world.ParseRefs(v.Narrative) {
		if !m.IsValid(ref.Key) {
			add("reference [%s:%s] uses a key that does not exist", ref.Key, ref.Display)
		}
	}

	// Entity display names appearing outside any [key:display] wrapper.
	plain := removeRefs(v.Narrative)
	lowerPlain := strings.ToLower(plain)
	for key, ref := range m.Entities {
		if ref.Kind == world.EntityLocation {
			continue
		}
		if _, carried := playerItems[key]; carried {
			continue
		}
		if containsWord(lowerPlain, strings.ToLower(ref.DisplayName)) {
			add("entity %q is mentioned without a [%s:...] reference", ref.DisplayName, key)
		}
	}

	lower := strings.ToLower(v.Narrative)
	for _, marker := range leakMarkers {
		if strings.Contains(lower, marker) {
			add("internal state leaked into narrative: %q", marker)
		}
	}

	// Callback markers are only legitimate when there is history to call
	// back to. With history present the referenced event cannot be checked
	// word-for-word, so the markers pass.
	if len(recentTurns) == 0 {
		for _, marker := range fabricationMarkers {
			if strings.Contains(lower, marker) {
				add("narrative references a past event with no turn history: %q", marker)
			}
		}
	}

	if chatbotQuestionPattern.MatchString(v.Narrative) {
		add("narrative ends in a meta question to the player")
	}

	for _, marker := range thirdPersonMarkers {
		if strings.Contains(lower, marker) {
			add("narrator refers to the player in third person: %q", marker)
		}
	}

	return out
}

// ValidateDeltas is the final safety net after repair: every delta's
// required fields must be present and every referenced key must resolve.
// A clean post-processor pass should already guarantee this.
func ValidateDeltas(v *Variant, m *world.Manifest) []Violation {
	var out []Violation
	add := func(format string, args ...any) {
		out = append(out, Violation{
			Variant:   v.Name,
			Validator: ValidatorDelta,
			Message:   fmt.Sprintf(format, args...),
		})
	}

	created := make(map[string]struct{})
	resolves := func(key string) bool {
		if m.IsValid(key) {
			return true
		}
		_, ok := created[key]
		return ok
	}

	for i, d := range v.Deltas {
		switch payload := d.Payload.(type) {
		case CreateEntity:
			if !world.ValidKey(d.TargetKey) {
				add("delta %d: create_entity key %q is not a legal key", i, d.TargetKey)
			}
			if _, ok := world.ParseEntityType(string(payload.EntityType)); !ok {
				add("delta %d: create_entity has invalid entity_type %q", i, payload.EntityType)
			}
			if payload.DisplayName == "" {
				add("delta %d: create_entity %q has no display name", i, d.TargetKey)
			}
			created[d.TargetKey] = struct{}{}
		case UpdateEntity:
			if !resolves(d.TargetKey) {
				add("delta %d: update_entity references unknown key %q", i, d.TargetKey)
			}
			if len(payload.Changes) == 0 {
				add("delta %d: update_entity %q changes nothing", i, d.TargetKey)
			}
		case DeleteEntity:
			if !resolves(d.TargetKey) {
				add("delta %d: delete_entity references unknown key %q", i, d.TargetKey)
			}
		case TransferItem:
			if !resolves(d.TargetKey) {
				add("delta %d: transfer_item references unknown item %q", i, d.TargetKey)
			}
			if payload.ToKey == "" {
				add("delta %d: transfer_item %q has no destination", i, d.TargetKey)
			} else if !resolves(payload.ToKey) {
				add("delta %d: transfer_item destination %q does not resolve", i, payload.ToKey)
			}
			if payload.FromKey != "" && !resolves(payload.FromKey) {
				add("delta %d: transfer_item source %q does not resolve", i, payload.FromKey)
			}
		case UpdateLocation:
			if !m.LegalDestination(d.TargetKey) {
				add("delta %d: update_location targets illegal destination %q", i, d.TargetKey)
			}
		case UpdateNeed:
			if !world.ValidNeed(payload.Need) {
				add("delta %d: update_need names unknown need %q", i, payload.Need)
			}
			if payload.Value != nil && (*payload.Value < world.NeedMin || *payload.Value > world.NeedMax) {
				add("delta %d: update_need value %d out of bounds", i, *payload.Value)
			}
			if !resolves(d.TargetKey) {
				add("delta %d: update_need references unknown key %q", i, d.TargetKey)
			}
		case RecordFact:
			if payload.Predicate == "" {
				add("delta %d: record_fact has no predicate", i)
			}
			if payload.Value == "" {
				add("delta %d: record_fact has no value", i)
			}
			if !world.ValidFactCategory(payload.Category) {
				add("delta %d: record_fact has invalid category %q", i, payload.Category)
			}
			if !resolves(d.TargetKey) {
				add("delta %d: record_fact references unknown key %q", i, d.TargetKey)
			}
		case AdvanceTime:
			if payload.Minutes < 0 {
				add("delta %d: advance_time is negative", i)
			}
		default:
			add("delta %d: unknown payload for type %q", i, d.Type)
		}
	}

	return out
}

// ValidateBranch composes the narrative and delta validators across all
// variants and requires at minimum a valid success variant. An empty
// result means the branch is valid.
func ValidateBranch(b *Branch, m *world.Manifest, recentTurns []string, playerItems map[string]string) []Violation {
	var out []Violation

	if _, ok := b.Variants[VariantSuccess]; !ok {
		out = append(out, Violation{
			Variant:   VariantSuccess,
			Validator: ValidatorBranch,
			Message:   "branch has no success variant",
		})
	}

	names := make([]VariantName, 0, len(b.Variants))
	for name := range b.Variants {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		v := b.Variants[name]
		out = append(out, ValidateNarrative(v, m, recentTurns, playerItems)...)
		out = append(out, ValidateDeltas(v, m)...)
	}
	return out
}

// removeRefs deletes [key:display] references entirely, leaving only the
// prose written outside them.
func removeRefs(text string) string {
	return refReplacePattern.ReplaceAllString(text, " ")
}

var refReplacePattern = regexp.MustCompile(`\[[a-z0-9_]+:[^\[\]]+\]`)

// containsWord reports whether needle appears in haystack on word
// boundaries.
func containsWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	idx := 0
	for {
		i := strings.Index(haystack[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		beforeOK := start == 0 || !isWordByte(haystack[start-1])
		afterOK := end == len(haystack) || !isWordByte(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
