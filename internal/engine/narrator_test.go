package engine

import (
	"context"
	"testing"

	"github.com/sbstnppl/branch-engine/internal/services"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

func TestRefineRunsNarrativeModelCooled(t *testing.T) {
	polished := "The taproom settles into a low murmur as lamplight pools along the bar."
	oracle := services.NewMockOracle()
	oracle.Responses = []string{polished}

	n := NewNarrator(oracle, 3, testLogger())
	sc := &scene{manifest: world.NewManifest("tavern", "The Rusty Anchor")}

	refined := n.Refine(context.Background(), "Lamplight pools along the bar.", sc, world.Clock{Day: 1, Minutes: 20 * 60})
	if refined != polished {
		t.Errorf("Unexpected refinement: %q", refined)
	}

	if len(oracle.Temperatures) != 1 || oracle.Temperatures[0] != narratorTemperature {
		t.Errorf("Expected one call at temperature %v, got %v", narratorTemperature, oracle.Temperatures)
	}
	if len(oracle.GenerateStructuredCalls) != 0 {
		t.Errorf("Expected no backend model calls, got %d", len(oracle.GenerateStructuredCalls))
	}
}

func TestRefineKeepsDraftOnExhaustion(t *testing.T) {
	oracle := services.NewMockOracle()
	oracle.Responses = []string{"", "", ""}

	n := NewNarrator(oracle, 3, testLogger())
	sc := &scene{manifest: world.NewManifest("tavern", "The Rusty Anchor")}

	draft := "Lamplight pools along the bar."
	if got := n.Refine(context.Background(), draft, sc, world.Clock{Day: 1}); got != draft {
		t.Errorf("Expected the draft back, got %q", got)
	}
}
