package world

import (
	"slices"
)

// EntityRef is the manifest's view of one known entity.
type EntityRef struct {
	DisplayName string     `json:"display_name"`
	Kind        EntityType `json:"kind"`
}

// Manifest is the per-turn snapshot of which entity keys, location exits,
// and candidate locations legally exist. It is rebuilt from the store at
// the start of every turn and discarded at the end. AdditionalValidKeys
// is the one mutable field: it grows as the post-processor injects new
// entities, so that validation performed after repair sees them as
// legitimate.
type Manifest struct {
	CurrentLocation        string
	CurrentLocationDisplay string
	Entities               map[string]EntityRef
	Exits                  map[string]struct{}
	CandidateLocations     map[string]struct{}
	AdditionalValidKeys    map[string]struct{}
}

// NewManifest creates an empty manifest for the given current location.
func NewManifest(locationKey, locationDisplay string) *Manifest {
	return &Manifest{
		CurrentLocation:        locationKey,
		CurrentLocationDisplay: locationDisplay,
		Entities:               make(map[string]EntityRef),
		Exits:                  make(map[string]struct{}),
		CandidateLocations:     make(map[string]struct{}),
		AdditionalValidKeys:    make(map[string]struct{}),
	}
}

// AddEntity registers a known entity key.
func (m *Manifest) AddEntity(key, display string, kind EntityType) {
	m.Entities[key] = EntityRef{DisplayName: display, Kind: kind}
}

// AddExit registers a legal exit from the current location.
func (m *Manifest) AddExit(locationKey string) {
	m.Exits[locationKey] = struct{}{}
}

// AddCandidateLocation registers a location the player may legally move to
// even though it is not a direct exit (e.g. mentioned in recent dialogue).
func (m *Manifest) AddCandidateLocation(locationKey string) {
	m.CandidateLocations[locationKey] = struct{}{}
}

// Allow adds a repaired key to the mutable valid set.
func (m *Manifest) Allow(key string) {
	m.AdditionalValidKeys[key] = struct{}{}
}

// IsValid reports whether key is a member of entities ∪ additional valid
// keys. The player key is always valid.
func (m *Manifest) IsValid(key string) bool {
	if key == PlayerKey || key == m.CurrentLocation {
		return true
	}
	if _, ok := m.Entities[key]; ok {
		return true
	}
	_, ok := m.AdditionalValidKeys[key]
	return ok
}

// LegalDestination reports whether key is a member of exits ∪ candidate
// locations.
func (m *Manifest) LegalDestination(key string) bool {
	if _, ok := m.Exits[key]; ok {
		return true
	}
	_, ok := m.CandidateLocations[key]
	return ok
}

// KnownKeys returns every valid entity key, sorted for stable prompt text.
func (m *Manifest) KnownKeys() []string {
	keys := make([]string, 0, len(m.Entities)+len(m.AdditionalValidKeys))
	for k := range m.Entities {
		keys = append(keys, k)
	}
	for k := range m.AdditionalValidKeys {
		if _, dup := m.Entities[k]; !dup {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Destinations returns every legal movement destination, sorted.
func (m *Manifest) Destinations() []string {
	keys := make([]string, 0, len(m.Exits)+len(m.CandidateLocations))
	for k := range m.Exits {
		keys = append(keys, k)
	}
	for k := range m.CandidateLocations {
		if _, dup := m.Exits[k]; !dup {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}
