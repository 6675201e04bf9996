package storage

import (
	"github.com/sbstnppl/branch-engine/pkg/branch"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

// Snapshot is an in-memory staging area for one commit. The backend
// loads every record the delta sequence references, stages the deltas
// against the snapshot, and only then writes the result back in a single
// transaction. A record absent from a map means it does not exist.
type Snapshot struct {
	Session   *world.Session
	Entities  map[string]*world.Entity
	Items     map[string]*world.Item
	Locations map[string]*world.Location
	Needs     map[string]map[string]int

	// NewFacts collects facts appended during staging; Deleted collects
	// entity and item keys removed during staging.
	NewFacts []world.Fact
	Deleted  []string
}

// NewSnapshot returns an empty snapshot for the given session.
func NewSnapshot(sess *world.Session) *Snapshot {
	return &Snapshot{
		Session:   sess,
		Entities:  make(map[string]*world.Entity),
		Items:     make(map[string]*world.Item),
		Locations: make(map[string]*world.Location),
		Needs:     make(map[string]map[string]int),
	}
}

func (s *Snapshot) holderExists(key string) bool {
	if key == world.PlayerKey {
		return true
	}
	if _, ok := s.Entities[key]; ok {
		return true
	}
	_, ok := s.Locations[key]
	return ok
}

func (s *Snapshot) subjectExists(key string) bool {
	if s.holderExists(key) {
		return true
	}
	_, ok := s.Items[key]
	return ok
}

// Stage applies the delta sequence to the snapshot in order, enforcing
// storage constraints. It returns a *ConstraintError on the first
// violation; the caller must then discard the snapshot without writing.
// timePassed is the collapsed variant's elapsed minutes, applied after
// all deltas.
func Stage(snap *Snapshot, deltas []branch.StateDelta, timePassed int) error {
	for _, d := range deltas {
		if err := stageDelta(snap, d); err != nil {
			return err
		}
	}
	snap.Session.Clock = snap.Session.Clock.Advance(timePassed)
	snap.Session.TurnCount++
	return nil
}

func stageDelta(snap *Snapshot, d branch.StateDelta) error {
	switch p := d.Payload.(type) {
	case branch.CreateEntity:
		return stageCreate(snap, d, p)
	case branch.UpdateEntity:
		return stageUpdate(snap, d, p)
	case branch.DeleteEntity:
		return stageDelete(snap, d)
	case branch.TransferItem:
		return stageTransfer(snap, d, p)
	case branch.UpdateLocation:
		if _, ok := snap.Locations[d.TargetKey]; !ok {
			return constraintErr(d, "destination location does not exist")
		}
		snap.Session.LocationKey = d.TargetKey
		return nil
	case branch.UpdateNeed:
		return stageNeed(snap, d, p)
	case branch.RecordFact:
		if !world.ValidFactCategory(p.Category) {
			return constraintErr(d, "unknown fact category %q", p.Category)
		}
		if !snap.subjectExists(d.TargetKey) {
			return constraintErr(d, "fact subject does not exist")
		}
		snap.NewFacts = append(snap.NewFacts, world.Fact{
			SubjectKey: d.TargetKey,
			Predicate:  p.Predicate,
			Value:      p.Value,
			Category:   p.Category,
		})
		return nil
	case branch.AdvanceTime:
		if p.Minutes < 0 {
			return constraintErr(d, "negative time advance")
		}
		snap.Session.Clock = snap.Session.Clock.Advance(p.Minutes)
		return nil
	default:
		return constraintErr(d, "unsupported delta type")
	}
}

func stageCreate(snap *Snapshot, d branch.StateDelta, p branch.CreateEntity) error {
	if d.TargetKey == world.PlayerKey {
		return constraintErr(d, "player key is reserved")
	}
	if snap.subjectExists(d.TargetKey) {
		return constraintErr(d, "key already exists")
	}
	et, ok := world.ParseEntityType(string(p.EntityType))
	if !ok {
		return constraintErr(d, "unknown entity type %q", p.EntityType)
	}
	locKey := p.LocationKey
	if locKey == "" {
		locKey = snap.Session.LocationKey
	}
	switch et {
	case world.EntityLocation:
		snap.Locations[d.TargetKey] = &world.Location{
			Key:         d.TargetKey,
			DisplayName: p.DisplayName,
			Description: p.Description,
		}
	case world.EntityItem:
		snap.Items[d.TargetKey] = &world.Item{
			Key:         d.TargetKey,
			DisplayName: p.DisplayName,
			Description: p.Description,
			HolderKey:   locKey,
		}
	default:
		snap.Entities[d.TargetKey] = &world.Entity{
			Key:         d.TargetKey,
			DisplayName: p.DisplayName,
			Type:        et,
			Description: p.Description,
			LocationKey: locKey,
		}
	}
	return nil
}

func stageUpdate(snap *Snapshot, d branch.StateDelta, p branch.UpdateEntity) error {
	if e, ok := snap.Entities[d.TargetKey]; ok {
		applyEntityChanges(e, p.Changes)
		return nil
	}
	if it, ok := snap.Items[d.TargetKey]; ok {
		applyItemChanges(it, p.Changes)
		return nil
	}
	if loc, ok := snap.Locations[d.TargetKey]; ok {
		applyLocationChanges(loc, p.Changes)
		return nil
	}
	return constraintErr(d, "target does not exist")
}

func applyEntityChanges(e *world.Entity, changes map[string]string) {
	for field, v := range changes {
		switch field {
		case "display_name":
			e.DisplayName = v
		case "description":
			e.Description = v
		case "disposition":
			e.Disposition = v
		case "state":
			e.State = v
		case "location_key":
			e.LocationKey = v
		}
	}
}

func applyItemChanges(it *world.Item, changes map[string]string) {
	for field, v := range changes {
		switch field {
		case "display_name":
			it.DisplayName = v
		case "description":
			it.Description = v
		case "state":
			it.State = v
		case "holder_key", "location_key":
			it.HolderKey = v
		}
	}
}

func applyLocationChanges(loc *world.Location, changes map[string]string) {
	for field, v := range changes {
		switch field {
		case "display_name":
			loc.DisplayName = v
		case "description":
			loc.Description = v
		}
	}
}

func stageDelete(snap *Snapshot, d branch.StateDelta) error {
	if d.TargetKey == world.PlayerKey {
		return constraintErr(d, "player cannot be deleted")
	}
	if _, ok := snap.Entities[d.TargetKey]; ok {
		delete(snap.Entities, d.TargetKey)
		snap.Deleted = append(snap.Deleted, d.TargetKey)
		return nil
	}
	if _, ok := snap.Items[d.TargetKey]; ok {
		delete(snap.Items, d.TargetKey)
		snap.Deleted = append(snap.Deleted, d.TargetKey)
		return nil
	}
	if _, ok := snap.Locations[d.TargetKey]; ok {
		return constraintErr(d, "locations cannot be deleted")
	}
	return constraintErr(d, "target does not exist")
}

func stageTransfer(snap *Snapshot, d branch.StateDelta, p branch.TransferItem) error {
	it, ok := snap.Items[d.TargetKey]
	if !ok {
		return constraintErr(d, "item does not exist")
	}
	if p.ToKey == "" {
		return constraintErr(d, "transfer has no destination holder")
	}
	if !snap.holderExists(p.ToKey) {
		return constraintErr(d, "destination holder %q does not exist", p.ToKey)
	}
	if p.FromKey != "" && p.FromKey != it.HolderKey {
		return constraintErr(d, "item is held by %q, not %q", it.HolderKey, p.FromKey)
	}
	it.HolderKey = p.ToKey
	return nil
}

func stageNeed(snap *Snapshot, d branch.StateDelta, p branch.UpdateNeed) error {
	if !world.ValidNeed(p.Need) {
		return constraintErr(d, "unknown need %q", p.Need)
	}
	if !snap.holderExists(d.TargetKey) {
		return constraintErr(d, "need target does not exist")
	}
	needs, ok := snap.Needs[d.TargetKey]
	if !ok {
		needs = make(map[string]int)
		snap.Needs[d.TargetKey] = needs
	}
	if p.Value != nil {
		needs[p.Need] = world.ClampNeed(*p.Value)
	} else {
		needs[p.Need] = world.ClampNeed(needs[p.Need] + p.Change)
	}
	return nil
}
