package branch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	raw := `Here is the result you asked for:
{
  "variants": {
    "success": {
      "narrative": "You lift the latch {carefully} and slip inside.",
      "state_deltas": [
        {"delta_type": "update_location", "target_key": "cellar"},
        {"delta_type": "advance_time", "target_key": "", "changes": {"minutes": 5}}
      ],
      "time_passed_minutes": 5
    },
    "failure": {
      "narrative": "The latch will not budge.",
      "time_passed_minutes": 2
    }
  }
}
Hope that helps!`

	b, err := ParseResponse(raw)
	require.NoError(t, err)
	require.Len(t, b.Variants, 2)

	success := b.Variants[VariantSuccess]
	require.NotNil(t, success)
	assert.Contains(t, success.Narrative, "slip inside")
	require.Len(t, success.Deltas, 2)
	assert.Equal(t, DeltaUpdateLocation, success.Deltas[0].Type)
	assert.Equal(t, "cellar", success.Deltas[0].TargetKey)
	assert.Equal(t, AdvanceTime{Minutes: 5}, success.Deltas[1].Payload)
	assert.Equal(t, 5, success.TimePassedMinutes)

	failure := b.Variants[VariantFailure]
	require.NotNil(t, failure)
	assert.Empty(t, failure.Deltas)
}

func TestParseResponseErrors(t *testing.T) {
	var parseErr *ParseError

	_, err := ParseResponse("there is no json here at all")
	require.ErrorAs(t, err, &parseErr)

	_, err = ParseResponse(`{"variants": {}}`)
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Msg, "no variants")

	_, err = ParseResponse(`{"variants": {"triumph": {"narrative": "x"}}}`)
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Msg, "unknown variant name")

	_, err = ParseResponse(`{"variants": {"success": {"narrative": "x",
		"state_deltas": [{"delta_type": "summon_dragon", "target_key": "d"}]}}}`)
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Msg, "unknown delta type")
}

func TestExtractJSONObjectSkipsBracesInStrings(t *testing.T) {
	raw := `note: {"variants": {"success": {"narrative": "the sign reads {closed}", "time_passed_minutes": 1}}} trailing`
	b, err := ParseResponse(raw)
	require.NoError(t, err)
	assert.Contains(t, b.Variants[VariantSuccess].Narrative, "{closed}")
}

func TestPickFallsBackToPlainVariant(t *testing.T) {
	b := &Branch{Variants: map[VariantName]*Variant{
		VariantSuccess: {Name: VariantSuccess, Narrative: "plain success"},
		VariantFailure: {Name: VariantFailure, Narrative: "plain failure"},
	}}

	v, err := b.Pick(VariantCriticalSuccess)
	require.NoError(t, err)
	assert.Equal(t, "plain success", v.Narrative)

	v, err = b.Pick(VariantCriticalFailure)
	require.NoError(t, err)
	assert.Equal(t, "plain failure", v.Narrative)

	delete(b.Variants, VariantFailure)
	_, err = b.Pick(VariantFailure)
	assert.Error(t, err)
}

func TestFallbackBranch(t *testing.T) {
	b := Fallback("the Common Room")
	v, err := b.Pick(VariantCriticalFailure)
	require.NoError(t, err)
	assert.Contains(t, v.Narrative, "the Common Room")
	assert.Empty(t, v.Deltas)
	assert.Equal(t, 1, v.TimePassedMinutes)
}

func TestLifecycle(t *testing.T) {
	lc := NewLifecycle(2)
	assert.Equal(t, PhaseRequested, lc.Phase)

	require.True(t, lc.BeginAttempt())
	lc.Generated()
	lc.Repaired()
	assert.True(t, lc.Invalid("bad narrative"), "one retry should remain")
	assert.Equal(t, PhaseInvalid, lc.Phase)
	assert.Equal(t, "bad narrative", lc.LastError)

	require.True(t, lc.BeginAttempt())
	lc.Generated()
	assert.False(t, lc.Invalid("still bad"), "budget is spent")
	assert.Equal(t, PhaseFallbackAccepted, lc.Phase)
	assert.False(t, lc.BeginAttempt())
}

func TestLifecycleValid(t *testing.T) {
	lc := NewLifecycle(3)
	require.True(t, lc.BeginAttempt())
	lc.Generated()
	lc.Repaired()
	lc.Valid()
	assert.Equal(t, PhaseValid, lc.Phase)
	assert.Equal(t, 1, lc.Attempt)
}

func TestStateDeltaRoundTrip(t *testing.T) {
	d := StateDelta{
		Type:      DeltaRecordFact,
		TargetKey: "greta",
		Payload:   RecordFact{Predicate: "owes", Value: "a favor", Category: "personal"},
	}

	data, err := d.MarshalJSON()
	require.NoError(t, err)

	var decoded StateDelta
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.Equal(t, d, decoded)
}

func TestDecodeDeltaToleratesLooseTypes(t *testing.T) {
	b, err := ParseResponse(`{"variants": {"success": {
		"narrative": "x",
		"state_deltas": [
			{"delta_type": "Update_Need", "target_key": "player",
			 "changes": {"need": "thirst", "value": 30.0}},
			{"delta_type": "update_entity", "target_key": "greta",
			 "changes": {"disposition": "friendly", "hit_points": "12"}}
		],
		"time_passed_minutes": 1}}}`)
	require.NoError(t, err)

	deltas := b.Variants[VariantSuccess].Deltas
	require.Len(t, deltas, 2)

	need := deltas[0].Payload.(UpdateNeed)
	require.NotNil(t, need.Value)
	assert.Equal(t, 30, *need.Value, "float values should decode as ints")

	update := deltas[1].Payload.(UpdateEntity)
	assert.Equal(t, map[string]string{"disposition": "friendly"}, update.Changes,
		"fields outside the closed set should be dropped")
}

func TestRegenerationNeededError(t *testing.T) {
	err := error(&RegenerationNeeded{Reason: "reason"})
	var regen *RegenerationNeeded
	assert.True(t, errors.As(err, &regen))
	assert.Contains(t, err.Error(), "reason")
}
