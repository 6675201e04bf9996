package world

import (
	"fmt"
	"strings"
)

// Scenario is a starting world definition loaded from a JSON file. A new
// session copies its locations, entities, and items into persistent
// per-session records; after that the scenario file is never consulted
// again.
type Scenario struct {
	Name             string         `json:"name"`
	FileName         string         `json:"file_name,omitempty"`
	OpeningNarrative string         `json:"opening_narrative,omitempty"`
	StartLocation    string         `json:"start_location"`
	Clock            Clock          `json:"clock"`
	ContentRating    string         `json:"content_rating,omitempty"`
	Locations        []Location     `json:"locations"`
	Entities         []Entity       `json:"entities,omitempty"`
	Items            []Item         `json:"items,omitempty"`
	PlayerNeeds      map[string]int `json:"player_needs,omitempty"`
	PlayerStats      map[string]int `json:"player_stats,omitempty"` // ability scores, 10 = average
}

// Validate checks the scenario's internal references: every exit points
// at a defined location, every entity stands in a defined location, every
// item's holder resolves, and all keys are well formed. Returns all
// problems found rather than stopping at the first.
func (s *Scenario) Validate() []string {
	var problems []string

	if strings.TrimSpace(s.Name) == "" {
		problems = append(problems, "scenario has no name")
	}
	if len(s.Locations) == 0 {
		problems = append(problems, "scenario defines no locations")
	}

	locations := make(map[string]struct{}, len(s.Locations))
	holders := map[string]struct{}{PlayerKey: {}}
	for _, loc := range s.Locations {
		if !ValidKey(loc.Key) {
			problems = append(problems, fmt.Sprintf("location key %q is not a valid key", loc.Key))
			continue
		}
		if _, dup := locations[loc.Key]; dup {
			problems = append(problems, fmt.Sprintf("duplicate location key %q", loc.Key))
		}
		locations[loc.Key] = struct{}{}
		holders[loc.Key] = struct{}{}
	}

	if _, ok := locations[s.StartLocation]; !ok {
		problems = append(problems, fmt.Sprintf("start_location %q is not a defined location", s.StartLocation))
	}

	for _, loc := range s.Locations {
		for _, exit := range loc.Exits {
			if _, ok := locations[exit]; !ok {
				problems = append(problems, fmt.Sprintf("location %q has exit to undefined location %q", loc.Key, exit))
			}
		}
	}

	for _, e := range s.Entities {
		if !ValidKey(e.Key) {
			problems = append(problems, fmt.Sprintf("entity key %q is not a valid key", e.Key))
			continue
		}
		if e.Key == PlayerKey {
			problems = append(problems, "entity key \"player\" is reserved")
		}
		if _, ok := ParseEntityType(string(e.Type)); !ok && e.Type != "" {
			problems = append(problems, fmt.Sprintf("entity %q has unknown type %q", e.Key, e.Type))
		}
		if e.LocationKey != "" {
			if _, ok := locations[e.LocationKey]; !ok {
				problems = append(problems, fmt.Sprintf("entity %q placed in undefined location %q", e.Key, e.LocationKey))
			}
		}
		holders[e.Key] = struct{}{}
	}

	for _, it := range s.Items {
		if !ValidKey(it.Key) {
			problems = append(problems, fmt.Sprintf("item key %q is not a valid key", it.Key))
			continue
		}
		if _, ok := holders[it.HolderKey]; !ok {
			problems = append(problems, fmt.Sprintf("item %q held by unknown holder %q", it.Key, it.HolderKey))
		}
	}

	for need, value := range s.PlayerNeeds {
		if !ValidNeed(need) {
			problems = append(problems, fmt.Sprintf("unknown player need %q", need))
		}
		if value < NeedMin || value > NeedMax {
			problems = append(problems, fmt.Sprintf("player need %q value %d outside [%d, %d]", need, value, NeedMin, NeedMax))
		}
	}

	return problems
}

// Location returns the scenario location with the given key, or nil.
func (s *Scenario) Location(key string) *Location {
	for i := range s.Locations {
		if s.Locations[i].Key == key {
			return &s.Locations[i]
		}
	}
	return nil
}
