package engine

import (
	"sync"

	"github.com/sbstnppl/branch-engine/pkg/action"
	"github.com/sbstnppl/branch-engine/pkg/branch"
)

// anticipationLimit bounds the cache; oldest entries are evicted first.
const anticipationLimit = 8

// Anticipator caches generated branches keyed by (location, kind,
// target), so a repeated action in an unchanged scene skips a generation
// round-trip.
//
// The key is blind to the wording of the player's input: "ask Greta about
// the cellar" and "ask Greta about her past" collapse to the same entry,
// so a hit can replay a narrative about the wrong topic. Until the key
// includes a topic signal this stays off by default. Entries survive
// delta-less commits (the scene they were generated against is
// unchanged); any commit that applied deltas in the location drops them.
type Anticipator struct {
	mu      sync.Mutex
	enabled bool
	entries map[anticipationKey]*branch.Branch
	order   []anticipationKey
}

type anticipationKey struct {
	location string
	kind     action.Kind
	target   string
}

func NewAnticipator(enabled bool) *Anticipator {
	return &Anticipator{
		enabled: enabled,
		entries: make(map[anticipationKey]*branch.Branch),
	}
}

func (a *Anticipator) Get(location string, act action.Action) (*branch.Branch, bool) {
	if !a.enabled {
		return nil, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.entries[anticipationKey{location, act.Kind, act.TargetKey}]
	return b, ok
}

func (a *Anticipator) Put(location string, act action.Action, b *branch.Branch) {
	if !a.enabled {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	key := anticipationKey{location, act.Kind, act.TargetKey}
	if _, exists := a.entries[key]; !exists {
		a.order = append(a.order, key)
	}
	a.entries[key] = b

	for len(a.order) > anticipationLimit {
		oldest := a.order[0]
		a.order = a.order[1:]
		delete(a.entries, oldest)
	}
}

// InvalidateLocation drops every entry for the location. Called after a
// commit that applied deltas there, since cached variants were generated
// against the pre-commit scene.
func (a *Anticipator) InvalidateLocation(location string) {
	if !a.enabled {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	kept := a.order[:0]
	for _, key := range a.order {
		if key.location == location {
			delete(a.entries, key)
		} else {
			kept = append(kept, key)
		}
	}
	a.order = kept
}
