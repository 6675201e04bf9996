package engine

import (
	"fmt"
	"math/rand"

	"github.com/jwebster45206/d20"

	"github.com/sbstnppl/branch-engine/pkg/action"
	"github.com/sbstnppl/branch-engine/pkg/branch"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

// kindDifficulty is the check target per action kind. Observe and wait
// are not rolled at all, and questions never reach resolution.
var kindDifficulty = map[action.Kind]int{
	action.KindMove:           5,
	action.KindInteractNPC:    8,
	action.KindManipulateItem: 8,
	action.KindSkillUse:       12,
	action.KindUnknown:        10,
}

// kindAttribute names the ability score that modifies each check.
var kindAttribute = map[action.Kind]string{
	action.KindMove:           "dexterity",
	action.KindInteractNPC:    "charisma",
	action.KindManipulateItem: "dexterity",
	action.KindSkillUse:       "dexterity",
	action.KindUnknown:        "wisdom",
}

// defaultPlayerStats is used when a scenario defines no player block.
var defaultPlayerStats = map[string]int{
	"strength":     10,
	"dexterity":    10,
	"constitution": 10,
	"intelligence": 10,
	"wisdom":       10,
	"charisma":     10,
}

// Resolver picks which generated variant becomes real: a d20 roll plus
// the player's ability modifier against a per-kind difficulty. Natural 1
// and natural 20 map to the critical variants; Branch.Pick degrades a
// missing critical to its plain counterpart.
type Resolver struct {
	player *d20.Actor
	rng    *rand.Rand
}

// NewResolver builds the player's check actor from scenario stats.
func NewResolver(stats map[string]int, rng *rand.Rand) (*Resolver, error) {
	if len(stats) == 0 {
		stats = defaultPlayerStats
	}
	actor, err := d20.NewActor(world.PlayerKey).
		WithHP(10).
		WithAC(10).
		WithAttributes(stats).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build player actor: %w", err)
	}
	return &Resolver{player: actor, rng: rng}, nil
}

// Resolve rolls the action's check and returns the outcome variant name.
func (r *Resolver) Resolve(a action.Action) branch.VariantName {
	if a.Kind.Untargeted() {
		return branch.VariantSuccess
	}

	roll := r.rng.Intn(20) + 1
	switch roll {
	case 1:
		return branch.VariantCriticalFailure
	case 20:
		return branch.VariantCriticalSuccess
	}

	difficulty, ok := kindDifficulty[a.Kind]
	if !ok {
		difficulty = 10
	}
	if roll+r.modifier(a.Kind) >= difficulty {
		return branch.VariantSuccess
	}
	return branch.VariantFailure
}

// modifier is the 5e-style ability modifier for the kind's check score.
func (r *Resolver) modifier(kind action.Kind) int {
	attr, ok := kindAttribute[kind]
	if !ok {
		return 0
	}
	score, ok := r.player.Attribute(attr)
	if !ok {
		return 0
	}
	return (score - 10) / 2
}
