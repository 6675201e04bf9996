package branch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbstnppl/branch-engine/pkg/world"
)

func violationsText(vs []Violation) string {
	return FormatViolations(vs)
}

func TestValidateNarrativeCleanProse(t *testing.T) {
	m := testManifest()
	v := &Variant{
		Name:      VariantSuccess,
		Narrative: "[greta:Greta] slides the [clay_mug:mug] across the bar without a word.",
	}
	assert.Empty(t, ValidateNarrative(v, m, nil, nil))
}

func TestValidateNarrativeUnwrappedDisplayName(t *testing.T) {
	m := testManifest()
	v := &Variant{
		Name:      VariantSuccess,
		Narrative: "Greta glares at you from behind the bar.",
	}

	vs := ValidateNarrative(v, m, nil, nil)
	require.NotEmpty(t, vs)
	assert.Contains(t, violationsText(vs), "without a [greta:...] reference")
}

func TestValidateNarrativeCarriedItemsExempt(t *testing.T) {
	m := testManifest()
	v := &Variant{
		Name:      VariantSuccess,
		Narrative: "You turn the Clay Mug over in your hands.",
	}

	playerItems := map[string]string{"clay_mug": "Clay Mug"}
	assert.Empty(t, ValidateNarrative(v, m, nil, playerItems))
}

func TestValidateNarrativeUnknownRefKey(t *testing.T) {
	m := testManifest()
	v := &Variant{
		Name:      VariantSuccess,
		Narrative: "[ghost:a pale figure] drifts past.",
	}

	vs := ValidateNarrative(v, m, nil, nil)
	require.NotEmpty(t, vs)
	assert.Contains(t, violationsText(vs), "does not exist")
}

func TestValidateNarrativeLeakAndVoice(t *testing.T) {
	m := testManifest()

	v := &Variant{Name: VariantSuccess, Narrative: "The system updates record_fact for you."}
	assert.NotEmpty(t, ValidateNarrative(v, m, nil, nil), "internal markers must be flagged")

	v = &Variant{Name: VariantSuccess, Narrative: "The player walks to the bar."}
	vs := ValidateNarrative(v, m, nil, nil)
	require.NotEmpty(t, vs)
	assert.Contains(t, violationsText(vs), "third person")

	v = &Variant{Name: VariantSuccess, Narrative: "The fire crackles. What would you like to do next?"}
	vs = ValidateNarrative(v, m, nil, nil)
	require.NotEmpty(t, vs)
	assert.Contains(t, violationsText(vs), "meta question")
}

func TestValidateNarrativeFabricationNeedsHistory(t *testing.T) {
	m := testManifest()
	v := &Variant{
		Name:      VariantSuccess,
		Narrative: "Once again you find the door barred.",
	}

	assert.NotEmpty(t, ValidateNarrative(v, m, nil, nil),
		"callback with no history is a fabrication")
	assert.Empty(t, ValidateNarrative(v, m, []string{"You tried the door."}, nil),
		"callback with history present is allowed")
}

func TestValidateNarrativeEmpty(t *testing.T) {
	m := testManifest()
	v := &Variant{Name: VariantFailure, Narrative: "   "}

	vs := ValidateNarrative(v, m, nil, nil)
	require.Len(t, vs, 1)
	assert.Contains(t, vs[0].Message, "empty")
}

func TestValidateDeltas(t *testing.T) {
	m := testManifest()
	value := 250
	v := &Variant{
		Name: VariantSuccess,
		Deltas: []StateDelta{
			{Type: DeltaUpdateEntity, TargetKey: "greta", Payload: UpdateEntity{Changes: map[string]string{}}},
			{Type: DeltaTransferItem, TargetKey: "clay_mug", Payload: TransferItem{}},
			{Type: DeltaUpdateLocation, TargetKey: "moon", Payload: UpdateLocation{}},
			{Type: DeltaUpdateNeed, TargetKey: "player", Payload: UpdateNeed{Need: "thirst", Value: &value}},
			{Type: DeltaRecordFact, TargetKey: "greta", Payload: RecordFact{Value: "x", Category: "personal"}},
			{Type: DeltaAdvanceTime, Payload: AdvanceTime{Minutes: -5}},
		},
	}

	vs := ValidateDeltas(v, m)
	text := violationsText(vs)
	assert.Contains(t, text, "changes nothing")
	assert.Contains(t, text, "no destination")
	assert.Contains(t, text, "illegal destination")
	assert.Contains(t, text, "out of bounds")
	assert.Contains(t, text, "no predicate")
	assert.Contains(t, text, "advance_time is negative")
}

func TestValidateDeltasCreateInSequenceResolves(t *testing.T) {
	m := testManifest()
	v := &Variant{
		Name: VariantSuccess,
		Deltas: []StateDelta{
			{Type: DeltaCreateEntity, TargetKey: "stray_dog",
				Payload: CreateEntity{EntityType: world.EntityNPC, DisplayName: "Stray Dog"}},
			{Type: DeltaRecordFact, TargetKey: "stray_dog",
				Payload: RecordFact{Predicate: "follows", Value: "you", Category: "personal"}},
		},
	}
	assert.Empty(t, ValidateDeltas(v, m))
}

func TestValidateBranchRequiresSuccess(t *testing.T) {
	m := testManifest()
	b := &Branch{Variants: map[VariantName]*Variant{
		VariantFailure: {Name: VariantFailure, Narrative: "The latch holds."},
	}}

	vs := ValidateBranch(b, m, nil, nil)
	require.NotEmpty(t, vs)
	assert.Contains(t, violationsText(vs), "no success variant")
}
