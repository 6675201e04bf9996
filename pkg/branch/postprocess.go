package branch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/sbstnppl/branch-engine/pkg/world"
)

// MaxPlausibleMinutes bounds how much time a single variant may claim to
// pass. Anything above this (or negative) is an unfixable generation
// defect.
const MaxPlausibleMinutes = 24 * 60

// RegenerationNeeded reports an unfixable generation conflict. The reason
// is appended to the next generation prompt.
type RegenerationNeeded struct {
	Reason string
}

func (e *RegenerationNeeded) Error() string {
	return "regeneration needed: " + e.Reason
}

// KeyResolver disambiguates a near-miss key via a bounded (single
// round-trip) clarification call. It receives the unknown key and the
// closest candidate keys, and returns either the chosen existing key or
// createNew to synthesize a fresh entity.
type KeyResolver func(ctx context.Context, unknown string, candidates []string) (resolved string, createNew bool, err error)

// needAliases remaps common off-enum need identifiers.
var needAliases = map[string]string{
	"food":          "hunger",
	"hungry":        "hunger",
	"thirsty":       "thirst",
	"drink":         "thirst",
	"energy":        "stamina",
	"fatigue":       "stamina",
	"tiredness":     "sleep_pressure",
	"sleep":         "sleep_pressure",
	"social":        "social_connection",
	"companionship": "social_connection",
	"cleanliness":   "hygiene",
	"bath":          "hygiene",
}

// PostProcessor repairs common generation defects in a branch before
// validation, or raises RegenerationNeeded for the unfixable ones. Repairs
// are silent to the player and logged at warning level.
type PostProcessor struct {
	logger  *slog.Logger
	resolve KeyResolver
}

// NewPostProcessor creates a post-processor.
func NewPostProcessor(logger *slog.Logger) *PostProcessor {
	return &PostProcessor{logger: logger}
}

// WithKeyResolver sets the clarification callback for fuzzy key
// resolution. Returns the PostProcessor for chaining.
func (p *PostProcessor) WithKeyResolver(r KeyResolver) *PostProcessor {
	p.resolve = r
	return p
}

// Process repairs every variant of the branch in place. Synthesized
// entities are added to the manifest's additional valid keys so that
// validation performed after repair sees them as legitimate.
func (p *PostProcessor) Process(ctx context.Context, b *Branch, m *world.Manifest) error {
	names := make([]VariantName, 0, len(b.Variants))
	for name := range b.Variants {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if err := p.processVariant(ctx, b.Variants[name], m); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostProcessor) processVariant(ctx context.Context, v *Variant, m *world.Manifest) error {
	if v.TimePassedMinutes < 0 || v.TimePassedMinutes > MaxPlausibleMinutes {
		return &RegenerationNeeded{Reason: fmt.Sprintf(
			"variant %q claims %d minutes passed, which is outside the plausible range",
			v.Name, v.TimePassedMinutes)}
	}

	if err := checkCreateConflicts(v); err != nil {
		return err
	}

	v.Deltas = reorderCreates(v.Deltas)

	// Keys renamed by fuzzy resolution, applied across all deltas and the
	// narrative.
	renames := make(map[string]string)
	created := make(map[string]struct{})

	repaired := make([]StateDelta, 0, len(v.Deltas))
	for _, d := range v.Deltas {
		out, keep, err := p.repairDelta(ctx, v, d, m, created, renames, &repaired)
		if err != nil {
			return err
		}
		if keep {
			repaired = append(repaired, out)
		}
	}
	v.Deltas = repaired

	if err := p.injectNarrativeCreates(v, m, created); err != nil {
		return err
	}

	for old, repl := range renames {
		v.Narrative = strings.ReplaceAll(v.Narrative, "["+old+":", "["+repl+":")
	}
	return nil
}

// repairDelta repairs a single delta. It may append synthesized creates to
// out before the delta it returns. keep=false drops the delta entirely.
func (p *PostProcessor) repairDelta(
	ctx context.Context,
	v *Variant,
	d StateDelta,
	m *world.Manifest,
	created map[string]struct{},
	renames map[string]string,
	out *[]StateDelta,
) (StateDelta, bool, error) {
	if repl, ok := renames[d.TargetKey]; ok {
		d.TargetKey = repl
	}

	switch payload := d.Payload.(type) {
	case CreateEntity:
		et, remapped := world.NormalizeEntityType(string(payload.EntityType))
		if remapped {
			p.warn("remapped entity_type", "variant", v.Name, "key", d.TargetKey,
				"from", payload.EntityType, "to", et)
		}
		payload.EntityType = et
		if !world.ValidKey(d.TargetKey) {
			slug := world.Slugify(payload.DisplayName)
			if slug == "" {
				return d, false, &RegenerationNeeded{Reason: fmt.Sprintf(
					"create_entity in variant %q has no usable key or display name", v.Name)}
			}
			p.warn("rewrote invalid entity key", "variant", v.Name, "from", d.TargetKey, "to", slug)
			d.TargetKey = slug
		}
		if payload.DisplayName == "" {
			payload.DisplayName = displayFromKey(d.TargetKey)
		}
		d.Payload = payload
		created[d.TargetKey] = struct{}{}
		m.Allow(d.TargetKey)
		return d, true, nil

	case UpdateEntity:
		key, ok, err := p.resolveKey(ctx, v, d.TargetKey, "", m, created, renames, out)
		if err != nil || !ok {
			return d, false, err
		}
		d.TargetKey = key
		return d, true, nil

	case DeleteEntity:
		if !m.IsValid(d.TargetKey) {
			if _, isNew := created[d.TargetKey]; !isNew {
				key, ok, err := p.resolveExistingOnly(ctx, v, d.TargetKey, m, renames)
				if err != nil || !ok {
					return d, false, err
				}
				d.TargetKey = key
			}
		}
		return d, true, nil

	case TransferItem:
		key, ok, err := p.resolveKey(ctx, v, d.TargetKey, payload.DisplayName, m, created, renames, out)
		if err != nil || !ok {
			return d, false, err
		}
		d.TargetKey = key
		if payload.ToKey == "" {
			// Transfers with no destination almost always mean the player
			// received the item.
			p.warn("transfer_item missing destination, defaulting to player",
				"variant", v.Name, "item", d.TargetKey)
			payload.ToKey = world.PlayerKey
		}
		for _, holder := range []*string{&payload.FromKey, &payload.ToKey} {
			if *holder == "" {
				continue
			}
			if repl, renamed := renames[*holder]; renamed {
				*holder = repl
				continue
			}
			resolved, ok, err := p.resolveKey(ctx, v, *holder, "", m, created, renames, out)
			if err != nil {
				return d, false, err
			}
			if ok {
				*holder = resolved
			}
		}
		d.Payload = payload
		return d, true, nil

	case UpdateLocation:
		if !m.LegalDestination(d.TargetKey) {
			// A single illegal move is not worth rejecting the branch:
			// strip the delta and let the narrative stand, even though the
			// location does not actually change.
			p.warn("stripped update_location to illegal destination",
				"variant", v.Name, "destination", d.TargetKey)
			return d, false, nil
		}
		return d, true, nil

	case UpdateNeed:
		need := strings.ToLower(strings.TrimSpace(payload.Need))
		if !world.ValidNeed(need) {
			alias, ok := needAliases[need]
			if !ok {
				return d, false, &RegenerationNeeded{Reason: fmt.Sprintf(
					"update_need in variant %q names unknown need %q", v.Name, payload.Need)}
			}
			p.warn("remapped need identifier", "variant", v.Name, "from", payload.Need, "to", alias)
			need = alias
		}
		payload.Need = need
		if payload.Value != nil {
			clamped := world.ClampNeed(*payload.Value)
			if clamped != *payload.Value {
				p.warn("clamped need value", "variant", v.Name, "need", need,
					"from", *payload.Value, "to", clamped)
				payload.Value = &clamped
			}
		}
		if payload.Change > world.NeedMax {
			p.warn("clamped need change", "variant", v.Name, "need", need,
				"from", payload.Change, "to", world.NeedMax)
			payload.Change = world.NeedMax
		} else if payload.Change < -world.NeedMax {
			p.warn("clamped need change", "variant", v.Name, "need", need,
				"from", payload.Change, "to", -world.NeedMax)
			payload.Change = -world.NeedMax
		}
		d.Payload = payload
		key, ok, err := p.resolveKey(ctx, v, d.TargetKey, "", m, created, renames, out)
		if err != nil || !ok {
			return d, false, err
		}
		d.TargetKey = key
		return d, true, nil

	case RecordFact:
		if payload.Predicate == "" || payload.Value == "" {
			return d, false, &RegenerationNeeded{Reason: fmt.Sprintf(
				"record_fact in variant %q is missing predicate or value", v.Name)}
		}
		category, remapped := world.NormalizeFactCategory(payload.Category)
		if remapped {
			p.warn("remapped fact category", "variant", v.Name,
				"from", payload.Category, "to", category)
		}
		payload.Category = category
		d.Payload = payload
		key, ok, err := p.resolveKey(ctx, v, d.TargetKey, "", m, created, renames, out)
		if err != nil || !ok {
			return d, false, err
		}
		d.TargetKey = key
		return d, true, nil

	case AdvanceTime:
		if payload.Minutes < 0 || payload.Minutes > MaxPlausibleMinutes {
			return d, false, &RegenerationNeeded{Reason: fmt.Sprintf(
				"advance_time in variant %q moves the clock %d minutes", v.Name, payload.Minutes)}
		}
		return d, true, nil
	}

	return d, false, &RegenerationNeeded{Reason: fmt.Sprintf("unhandled delta type %q", d.Type)}
}

// resolveKey makes an unknown target key legitimate: fuzzy near-miss
// resolution against known keys first (one clarification round trip), then
// a synthesized create from lexical hints. Returns ok=false only with a
// non-nil error.
func (p *PostProcessor) resolveKey(
	ctx context.Context,
	v *Variant,
	key string,
	display string,
	m *world.Manifest,
	created map[string]struct{},
	renames map[string]string,
	out *[]StateDelta,
) (string, bool, error) {
	if m.IsValid(key) {
		return key, true, nil
	}
	if _, isNew := created[key]; isNew {
		return key, true, nil
	}
	if repl, ok := renames[key]; ok {
		return repl, true, nil
	}
	if key == "" {
		return "", false, &RegenerationNeeded{Reason: fmt.Sprintf(
			"delta in variant %q has no target key", v.Name)}
	}

	candidates := nearKeys(key, m.KnownKeys())
	if len(candidates) > 0 {
		resolved, createNew, err := p.clarify(ctx, key, candidates)
		if err == nil && !createNew && resolved != "" && m.IsValid(resolved) {
			p.warn("resolved near-miss key", "variant", v.Name, "from", key, "to", resolved)
			renames[key] = resolved
			return resolved, true, nil
		}
		// Fall through to create-new on resolver error or explicit
		// create-new choice.
	}

	et, hinted := inferEntityType(key, display)
	if !hinted && len(candidates) == 0 {
		return "", false, &RegenerationNeeded{Reason: fmt.Sprintf(
			"delta in variant %q references unknown key %q with no close match and no recognizable kind",
			v.Name, key)}
	}
	if !hinted {
		et = world.EntityItem
	}

	create := synthesizeCreate(key, display, et, m.CurrentLocation)
	*out = append(*out, create)
	created[key] = struct{}{}
	m.Allow(key)
	p.warn("synthesized create_entity for unknown key",
		"variant", v.Name, "key", key, "entity_type", et)
	return key, true, nil
}

// resolveExistingOnly handles deletes of unknown keys, where synthesizing
// a create would be nonsense.
func (p *PostProcessor) resolveExistingOnly(
	ctx context.Context,
	v *Variant,
	key string,
	m *world.Manifest,
	renames map[string]string,
) (string, bool, error) {
	candidates := nearKeys(key, m.KnownKeys())
	if len(candidates) > 0 {
		resolved, createNew, err := p.clarify(ctx, key, candidates)
		if err == nil && !createNew && resolved != "" && m.IsValid(resolved) {
			p.warn("resolved near-miss key", "variant", v.Name, "from", key, "to", resolved)
			renames[key] = resolved
			return resolved, true, nil
		}
	}
	return "", false, &RegenerationNeeded{Reason: fmt.Sprintf(
		"delete_entity in variant %q references unknown key %q", v.Name, key)}
}

// clarify runs the bounded clarification call, or picks the top candidate
// deterministically when no resolver is wired.
func (p *PostProcessor) clarify(ctx context.Context, key string, candidates []string) (string, bool, error) {
	if p.resolve == nil {
		return candidates[0], false, nil
	}
	return p.resolve(ctx, key, candidates)
}

// injectNarrativeCreates backs every narrative reference to a plausible
// new NPC with a create_entity delta placed ahead of the existing deltas.
func (p *PostProcessor) injectNarrativeCreates(v *Variant, m *world.Manifest, created map[string]struct{}) error {
	var injected []StateDelta
	for _, ref := range world.ParseRefs(v.Narrative) {
		if m.IsValid(ref.Key) {
			continue
		}
		if _, isNew := created[ref.Key]; isNew {
			continue
		}
		et, hinted := inferEntityType(ref.Key, ref.Display)
		if !hinted {
			et = world.EntityNPC
		}
		injected = append(injected, synthesizeCreate(ref.Key, ref.Display, et, m.CurrentLocation))
		created[ref.Key] = struct{}{}
		m.Allow(ref.Key)
		p.warn("injected create_entity for narrative reference",
			"variant", v.Name, "key", ref.Key, "entity_type", et)
	}
	if len(injected) > 0 {
		v.Deltas = append(injected, v.Deltas...)
	}
	return nil
}

func synthesizeCreate(key, display string, et world.EntityType, locationKey string) StateDelta {
	if display == "" {
		display = displayFromKey(key)
	}
	return StateDelta{
		Type:      DeltaCreateEntity,
		TargetKey: key,
		Payload: CreateEntity{
			EntityType:  et,
			DisplayName: display,
			LocationKey: locationKey,
		},
	}
}

// checkCreateConflicts rejects duplicate creates and create+delete of the
// same key within one variant. Those conflicts make the generator's intent
// unknowable.
func checkCreateConflicts(v *Variant) error {
	creates := make(map[string]struct{})
	deletes := make(map[string]struct{})
	for _, d := range v.Deltas {
		switch d.Type {
		case DeltaCreateEntity:
			if _, dup := creates[d.TargetKey]; dup {
				return &RegenerationNeeded{Reason: fmt.Sprintf(
					"variant %q creates key %q more than once", v.Name, d.TargetKey)}
			}
			creates[d.TargetKey] = struct{}{}
		case DeltaDeleteEntity:
			deletes[d.TargetKey] = struct{}{}
		}
	}
	for key := range creates {
		if _, ok := deletes[key]; ok {
			return &RegenerationNeeded{Reason: fmt.Sprintf(
				"variant %q both creates and deletes key %q", v.Name, key)}
		}
	}
	return nil
}

// reorderCreates moves each create ahead of the first delta referencing
// its key, preserving order otherwise.
func reorderCreates(deltas []StateDelta) []StateDelta {
	createAt := make(map[string]int)
	for i, d := range deltas {
		if d.Type == DeltaCreateEntity {
			if _, seen := createAt[d.TargetKey]; !seen {
				createAt[d.TargetKey] = i
			}
		}
	}

	placed := make([]bool, len(deltas))
	out := make([]StateDelta, 0, len(deltas))
	for i, d := range deltas {
		if placed[i] {
			continue
		}
		for _, key := range referencedKeys(d) {
			if j, ok := createAt[key]; ok && j > i && !placed[j] {
				out = append(out, deltas[j])
				placed[j] = true
			}
		}
		out = append(out, d)
		placed[i] = true
	}
	return out
}

// referencedKeys lists every entity key a delta refers to without creating.
func referencedKeys(d StateDelta) []string {
	if !d.referencesExisting() {
		return nil
	}
	keys := []string{d.TargetKey}
	if t, ok := d.Payload.(TransferItem); ok {
		if t.FromKey != "" {
			keys = append(keys, t.FromKey)
		}
		if t.ToKey != "" {
			keys = append(keys, t.ToKey)
		}
	}
	return keys
}

// nearKeys returns up to three known keys with spellings close to the
// unknown key. Both directions are checked so longer misspellings
// ("barkeeper" for "barkeep") still match.
func nearKeys(key string, known []string) []string {
	seen := make(map[string]struct{})
	var result []string
	add := func(k string) {
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		result = append(result, k)
	}
	for _, m := range fuzzy.Find(key, known) {
		add(m.Str)
	}
	for _, candidate := range known {
		if len(fuzzy.Find(candidate, []string{key})) > 0 {
			add(candidate)
		}
	}
	if len(result) > 3 {
		result = result[:3]
	}
	return result
}

func (p *PostProcessor) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
