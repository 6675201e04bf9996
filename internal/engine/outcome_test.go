package engine

import (
	"math/rand"
	"testing"

	"github.com/sbstnppl/branch-engine/pkg/action"
	"github.com/sbstnppl/branch-engine/pkg/branch"
)

func TestResolve_UntargetedKindsAlwaysSucceed(t *testing.T) {
	r, err := NewResolver(nil, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Failed to build resolver: %v", err)
	}

	for i := 0; i < 50; i++ {
		if got := r.Resolve(action.Action{Kind: action.KindObserve}); got != branch.VariantSuccess {
			t.Fatalf("Observe resolved to %q on iteration %d", got, i)
		}
		if got := r.Resolve(action.Action{Kind: action.KindWait}); got != branch.VariantSuccess {
			t.Fatalf("Wait resolved to %q on iteration %d", got, i)
		}
	}
}

func TestResolve_CoversAllOutcomes(t *testing.T) {
	r, err := NewResolver(nil, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("Failed to build resolver: %v", err)
	}

	seen := make(map[branch.VariantName]int)
	for i := 0; i < 2000; i++ {
		seen[r.Resolve(action.Action{Kind: action.KindSkillUse})]++
	}

	for _, name := range []branch.VariantName{
		branch.VariantSuccess,
		branch.VariantFailure,
		branch.VariantCriticalSuccess,
		branch.VariantCriticalFailure,
	} {
		if seen[name] == 0 {
			t.Errorf("Outcome %q never occurred in 2000 rolls: %v", name, seen)
		}
	}
}

func TestResolve_HighStatShiftsOdds(t *testing.T) {
	weak, err := NewResolver(map[string]int{"dexterity": 4}, rand.New(rand.NewSource(9)))
	if err != nil {
		t.Fatalf("Failed to build resolver: %v", err)
	}
	strong, err := NewResolver(map[string]int{"dexterity": 20}, rand.New(rand.NewSource(9)))
	if err != nil {
		t.Fatalf("Failed to build resolver: %v", err)
	}

	successes := func(r *Resolver) int {
		n := 0
		for i := 0; i < 2000; i++ {
			out := r.Resolve(action.Action{Kind: action.KindSkillUse})
			if out == branch.VariantSuccess || out == branch.VariantCriticalSuccess {
				n++
			}
		}
		return n
	}

	if s, w := successes(strong), successes(weak); s <= w {
		t.Errorf("Expected higher stat to succeed more often: strong %d, weak %d", s, w)
	}
}
