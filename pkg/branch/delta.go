package branch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sbstnppl/branch-engine/pkg/world"
)

// DeltaType identifies one kind of proposed world mutation. The set is
// closed; a delta outside it fails branch parsing outright.
type DeltaType string

const (
	DeltaCreateEntity   DeltaType = "create_entity"
	DeltaUpdateEntity   DeltaType = "update_entity"
	DeltaDeleteEntity   DeltaType = "delete_entity"
	DeltaTransferItem   DeltaType = "transfer_item"
	DeltaUpdateLocation DeltaType = "update_location"
	DeltaUpdateNeed     DeltaType = "update_need"
	DeltaRecordFact     DeltaType = "record_fact"
	DeltaAdvanceTime    DeltaType = "advance_time"
)

// Payload is the typed body of a StateDelta. One implementation exists per
// DeltaType, so apply and repair code can switch exhaustively instead of
// digging through a free-form map.
type Payload interface {
	payload()
}

// CreateEntity introduces a new entity, item, or location.
type CreateEntity struct {
	EntityType  world.EntityType `json:"entity_type"`
	DisplayName string           `json:"display_name"`
	Description string           `json:"description,omitempty"`
	LocationKey string           `json:"location_key,omitempty"`
}

// UpdateEntity modifies fields of an existing entity. Only known fields
// survive decoding.
type UpdateEntity struct {
	Changes map[string]string `json:"changes"`
}

// DeleteEntity removes an entity from the world.
type DeleteEntity struct {
	Reason string `json:"reason,omitempty"`
}

// TransferItem moves the target item between holders. An empty FromKey
// means the item's current holder.
type TransferItem struct {
	FromKey     string `json:"from_key,omitempty"`
	ToKey       string `json:"to_key"`
	DisplayName string `json:"display_name,omitempty"`
}

// UpdateLocation moves the player. The delta's target key is the
// destination location.
type UpdateLocation struct{}

// UpdateNeed adjusts one of the target entity's needs. Value, when set,
// is an absolute level; otherwise Change is applied relative to the
// current level. The stored result is always clamped to [0, 100].
type UpdateNeed struct {
	Need   string `json:"need"`
	Change int    `json:"change,omitempty"`
	Value  *int   `json:"value,omitempty"`
}

// RecordFact appends a recorded fact about the target entity.
type RecordFact struct {
	Predicate string `json:"predicate"`
	Value     string `json:"value"`
	Category  string `json:"category,omitempty"`
}

// AdvanceTime moves the session clock forward.
type AdvanceTime struct {
	Minutes int `json:"minutes"`
}

func (CreateEntity) payload()   {}
func (UpdateEntity) payload()   {}
func (DeleteEntity) payload()   {}
func (TransferItem) payload()   {}
func (UpdateLocation) payload() {}
func (UpdateNeed) payload()     {}
func (RecordFact) payload()     {}
func (AdvanceTime) payload()    {}

// StateDelta is one typed, atomic proposed change to persistent world
// state. Deltas are ordered within a variant; creates must precede any
// other reference to the same key.
type StateDelta struct {
	Type      DeltaType
	TargetKey string
	Payload   Payload
}

// updatableEntityFields is the closed field set an UpdateEntity may touch.
var updatableEntityFields = map[string]struct{}{
	"display_name": {},
	"description":  {},
	"disposition":  {},
	"location_key": {},
	"holder_key":   {},
	"state":        {},
}

// rawDelta is the oracle's wire shape for one delta.
type rawDelta struct {
	Type      string          `json:"delta_type"`
	TargetKey string          `json:"target_key"`
	Changes   json.RawMessage `json:"changes,omitempty"`
}

// decodeDelta converts a wire delta into a typed StateDelta. Unknown or
// extra fields inside changes are dropped; an unknown delta type is a
// schema failure (hard parse error, never a repair case).
func decodeDelta(r rawDelta) (StateDelta, error) {
	d := StateDelta{
		Type:      DeltaType(strings.ToLower(strings.TrimSpace(r.Type))),
		TargetKey: strings.TrimSpace(r.TargetKey),
	}

	changes := make(map[string]json.RawMessage)
	if len(r.Changes) > 0 {
		if err := json.Unmarshal(r.Changes, &changes); err != nil {
			return StateDelta{}, fmt.Errorf("delta %q changes is not an object: %w", r.Type, err)
		}
	}

	switch d.Type {
	case DeltaCreateEntity:
		d.Payload = CreateEntity{
			EntityType:  world.EntityType(changeString(changes, "entity_type")),
			DisplayName: changeString(changes, "display_name"),
			Description: changeString(changes, "description"),
			LocationKey: changeString(changes, "location_key"),
		}
	case DeltaUpdateEntity:
		fields := make(map[string]string)
		for field := range updatableEntityFields {
			if v := changeString(changes, field); v != "" {
				fields[field] = v
			}
		}
		d.Payload = UpdateEntity{Changes: fields}
	case DeltaDeleteEntity:
		d.Payload = DeleteEntity{Reason: changeString(changes, "reason")}
	case DeltaTransferItem:
		d.Payload = TransferItem{
			FromKey:     changeString(changes, "from"),
			ToKey:       changeString(changes, "to"),
			DisplayName: changeString(changes, "display_name"),
		}
	case DeltaUpdateLocation:
		d.Payload = UpdateLocation{}
	case DeltaUpdateNeed:
		d.Payload = UpdateNeed{
			Need:   changeString(changes, "need"),
			Change: changeInt(changes, "change"),
			Value:  changeIntPtr(changes, "value"),
		}
	case DeltaRecordFact:
		d.Payload = RecordFact{
			Predicate: changeString(changes, "predicate"),
			Value:     changeString(changes, "value"),
			Category:  changeString(changes, "category"),
		}
	case DeltaAdvanceTime:
		d.Payload = AdvanceTime{Minutes: changeInt(changes, "minutes")}
	default:
		return StateDelta{}, fmt.Errorf("unknown delta type %q", r.Type)
	}
	return d, nil
}

// MarshalJSON renders the wire shape, for logging and prompt feedback.
func (d StateDelta) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(d.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rawDelta{
		Type:      string(d.Type),
		TargetKey: d.TargetKey,
		Changes:   payload,
	})
}

func (d StateDelta) String() string {
	return fmt.Sprintf("%s(%s)", d.Type, d.TargetKey)
}

// referencesExisting reports whether the delta type reads or mutates an
// entity that must already exist (or be created earlier in the sequence).
func (d StateDelta) referencesExisting() bool {
	switch d.Type {
	case DeltaUpdateEntity, DeltaDeleteEntity, DeltaTransferItem, DeltaUpdateNeed, DeltaRecordFact:
		return true
	}
	return false
}

func changeString(changes map[string]json.RawMessage, key string) string {
	raw, ok := changes[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	// Tolerate bare numbers or booleans where a string was expected.
	var v any
	if err := json.Unmarshal(raw, &v); err == nil && v != nil {
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
	return ""
}

func changeInt(changes map[string]json.RawMessage, key string) int {
	raw, ok := changes[key]
	if !ok {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	return 0
}

func changeIntPtr(changes map[string]json.RawMessage, key string) *int {
	if _, ok := changes[key]; !ok {
		return nil
	}
	n := changeInt(changes, key)
	return &n
}
