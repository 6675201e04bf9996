package branch

import (
	"encoding/json"

	"github.com/sbstnppl/branch-engine/pkg/world"
)

// Turn is the append-only record of one resolved action. It is written
// only after the collapsed variant's deltas have committed, and its
// LocationAfter and GameTime reflect the post-commit state, never a stale
// pre-commit snapshot.
type Turn struct {
	TurnNumber      int          `json:"turn_number"`
	PlayerInput     string       `json:"player_input"`
	NarrativeOutput string       `json:"narrative_output"`
	AppliedDeltas   []StateDelta `json:"applied_deltas,omitempty"`
	LocationBefore  string       `json:"location_before"`
	LocationAfter   string       `json:"location_after"`
	GameTime        world.Clock  `json:"game_time"`
}

// UnmarshalJSON round-trips the wire shape produced by MarshalJSON.
func (d *StateDelta) UnmarshalJSON(data []byte) error {
	var r rawDelta
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	decoded, err := decodeDelta(r)
	if err != nil {
		return err
	}
	*d = decoded
	return nil
}
