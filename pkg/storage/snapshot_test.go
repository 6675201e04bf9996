package storage

import (
	"errors"
	"testing"

	"github.com/sbstnppl/branch-engine/pkg/branch"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

func testSnapshot() *Snapshot {
	snap := NewSnapshot(&world.Session{
		LocationKey: "tavern",
		Clock:       world.Clock{Day: 1, Minutes: 600},
	})
	snap.Locations["tavern"] = &world.Location{Key: "tavern", DisplayName: "The Rusty Anchor", Exits: []string{"cellar"}}
	snap.Locations["cellar"] = &world.Location{Key: "cellar", DisplayName: "Cellar"}
	snap.Entities["greta"] = &world.Entity{Key: "greta", DisplayName: "Greta", Type: world.EntityNPC, LocationKey: "tavern"}
	snap.Items["mug"] = &world.Item{Key: "mug", DisplayName: "Clay Mug", HolderKey: "tavern"}
	return snap
}

func expectConstraint(t *testing.T, err error, reason string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected constraint error containing %q, got nil", reason)
	}
	var ce *ConstraintError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected *ConstraintError, got %T: %v", err, err)
	}
}

func TestStage_CreateDuplicateKeyRejected(t *testing.T) {
	snap := testSnapshot()
	err := Stage(snap, []branch.StateDelta{
		{
			Type:      branch.DeltaCreateEntity,
			TargetKey: "greta",
			Payload:   branch.CreateEntity{EntityType: world.EntityNPC, DisplayName: "Greta"},
		},
	}, 0)
	expectConstraint(t, err, "already exists")
}

func TestStage_CreatePlayerKeyRejected(t *testing.T) {
	snap := testSnapshot()
	err := Stage(snap, []branch.StateDelta{
		{
			Type:      branch.DeltaCreateEntity,
			TargetKey: world.PlayerKey,
			Payload:   branch.CreateEntity{EntityType: world.EntityNPC, DisplayName: "Doppelganger"},
		},
	}, 0)
	expectConstraint(t, err, "reserved")
}

func TestStage_CreateDefaultsToCurrentLocation(t *testing.T) {
	snap := testSnapshot()
	err := Stage(snap, []branch.StateDelta{
		{
			Type:      branch.DeltaCreateEntity,
			TargetKey: "stray_cat",
			Payload:   branch.CreateEntity{EntityType: world.EntityNPC, DisplayName: "Stray Cat"},
		},
	}, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	e := snap.Entities["stray_cat"]
	if e == nil || e.LocationKey != "tavern" {
		t.Errorf("Expected stray_cat placed in tavern, got %+v", e)
	}
}

func TestStage_CreatedEntityUsableLaterInSequence(t *testing.T) {
	snap := testSnapshot()
	err := Stage(snap, []branch.StateDelta{
		{
			Type:      branch.DeltaCreateEntity,
			TargetKey: "coin_purse",
			Payload:   branch.CreateEntity{EntityType: world.EntityItem, DisplayName: "Coin Purse"},
		},
		{
			Type:      branch.DeltaTransferItem,
			TargetKey: "coin_purse",
			Payload:   branch.TransferItem{ToKey: world.PlayerKey},
		},
	}, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if snap.Items["coin_purse"].HolderKey != world.PlayerKey {
		t.Errorf("Expected coin_purse held by player, got %q", snap.Items["coin_purse"].HolderKey)
	}
}

func TestStage_TransferToUnknownHolderRejected(t *testing.T) {
	snap := testSnapshot()
	err := Stage(snap, []branch.StateDelta{
		{
			Type:      branch.DeltaTransferItem,
			TargetKey: "mug",
			Payload:   branch.TransferItem{ToKey: "nobody"},
		},
	}, 0)
	expectConstraint(t, err, "does not exist")
}

func TestStage_DeleteLocationRejected(t *testing.T) {
	snap := testSnapshot()
	err := Stage(snap, []branch.StateDelta{
		{
			Type:      branch.DeltaDeleteEntity,
			TargetKey: "cellar",
			Payload:   branch.DeleteEntity{},
		},
	}, 0)
	expectConstraint(t, err, "locations cannot be deleted")
}

func TestStage_UpdateEntityFields(t *testing.T) {
	snap := testSnapshot()
	err := Stage(snap, []branch.StateDelta{
		{
			Type:      branch.DeltaUpdateEntity,
			TargetKey: "greta",
			Payload: branch.UpdateEntity{Changes: map[string]string{
				"disposition": "friendly",
				"state":       "laughing",
			}},
		},
	}, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	e := snap.Entities["greta"]
	if e.Disposition != "friendly" || e.State != "laughing" {
		t.Errorf("Expected fields updated, got %+v", e)
	}
}

func TestStage_AbsoluteNeedValueClamped(t *testing.T) {
	snap := testSnapshot()
	v := 250
	err := Stage(snap, []branch.StateDelta{
		{
			Type:      branch.DeltaUpdateNeed,
			TargetKey: world.PlayerKey,
			Payload:   branch.UpdateNeed{Need: world.NeedHunger, Value: &v},
		},
	}, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := snap.Needs[world.PlayerKey][world.NeedHunger]; got != world.NeedMax {
		t.Errorf("Expected hunger clamped to %d, got %d", world.NeedMax, got)
	}
}

func TestStage_TimeAppliedAfterDeltas(t *testing.T) {
	snap := testSnapshot()
	err := Stage(snap, []branch.StateDelta{
		{
			Type:    branch.DeltaAdvanceTime,
			Payload: branch.AdvanceTime{Minutes: 30},
		},
	}, 15)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if snap.Session.Clock.Minutes != 600+30+15 {
		t.Errorf("Expected clock advanced by 45 minutes, got %v", snap.Session.Clock)
	}
	if snap.Session.TurnCount != 1 {
		t.Errorf("Expected turn count incremented, got %d", snap.Session.TurnCount)
	}
}
