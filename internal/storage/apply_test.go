package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/sbstnppl/branch-engine/pkg/branch"
	store "github.com/sbstnppl/branch-engine/pkg/storage"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

func TestApplyDeltas_CommitsAtomically(t *testing.T) {
	rs, _ := setupTestStorage(t)
	ctx := context.Background()

	sess, err := rs.CreateSession(ctx, testScenario())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	deltas := []branch.StateDelta{
		{
			Type:      branch.DeltaCreateEntity,
			TargetKey: "old_man",
			Payload: branch.CreateEntity{
				EntityType:  world.EntityNPC,
				DisplayName: "Old Man",
				LocationKey: "tavern",
			},
		},
		{
			Type:      branch.DeltaTransferItem,
			TargetKey: "rusty_key",
			Payload:   branch.TransferItem{ToKey: world.PlayerKey},
		},
		{
			Type:      branch.DeltaUpdateNeed,
			TargetKey: world.PlayerKey,
			Payload:   branch.UpdateNeed{Need: world.NeedThirst, Change: -30},
		},
		{
			Type:      branch.DeltaRecordFact,
			TargetKey: "greta",
			Payload:   branch.RecordFact{Predicate: "owes_player", Value: "one favor", Category: world.FactRelationship},
		},
		{
			Type:      branch.DeltaUpdateLocation,
			TargetKey: "cellar",
			Payload:   branch.UpdateLocation{},
		},
	}

	if err := rs.ApplyDeltas(ctx, sess, deltas, 10); err != nil {
		t.Fatalf("Failed to apply deltas: %v", err)
	}

	// The passed session reflects the committed result.
	if sess.LocationKey != "cellar" {
		t.Errorf("Expected session moved to cellar, got %q", sess.LocationKey)
	}
	if sess.Clock.Minutes != 9*60+10 {
		t.Errorf("Expected 10 minutes elapsed, got %v", sess.Clock)
	}
	if sess.TurnCount != 1 {
		t.Errorf("Expected turn count 1, got %d", sess.TurnCount)
	}

	// So does a fresh read.
	loaded, err := rs.LoadSession(ctx, sess.ID)
	if err != nil || loaded == nil {
		t.Fatalf("Failed to reload session: %v", err)
	}
	if loaded.LocationKey != "cellar" {
		t.Errorf("Expected stored session in cellar, got %q", loaded.LocationKey)
	}

	e, err := rs.GetEntity(ctx, sess.ID, "old_man")
	if err != nil {
		t.Fatalf("Failed to load created entity: %v", err)
	}
	if e == nil || e.DisplayName != "Old Man" || e.LocationKey != "tavern" {
		t.Errorf("Expected created old_man in tavern, got %+v", e)
	}

	it, err := rs.GetItem(ctx, sess.ID, "rusty_key")
	if err != nil {
		t.Fatalf("Failed to load item: %v", err)
	}
	if it == nil || it.HolderKey != world.PlayerKey {
		t.Errorf("Expected rusty_key held by player, got %+v", it)
	}

	needs, err := rs.Needs(ctx, sess.ID, world.PlayerKey)
	if err != nil {
		t.Fatalf("Failed to load needs: %v", err)
	}
	if needs[world.NeedThirst] != 10 {
		t.Errorf("Expected thirst 40-30=10, got %d", needs[world.NeedThirst])
	}

	facts, err := rs.FactsAbout(ctx, sess.ID, "greta")
	if err != nil {
		t.Fatalf("Failed to load facts: %v", err)
	}
	if len(facts) != 1 || facts[0].Predicate != "owes_player" {
		t.Errorf("Expected one recorded fact, got %+v", facts)
	}
}

func TestApplyDeltas_ConstraintFailureWritesNothing(t *testing.T) {
	rs, _ := setupTestStorage(t)
	ctx := context.Background()

	sess, err := rs.CreateSession(ctx, testScenario())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	deltas := []branch.StateDelta{
		{
			Type:      branch.DeltaRecordFact,
			TargetKey: "greta",
			Payload:   branch.RecordFact{Predicate: "mood", Value: "cheerful", Category: world.FactPersonal},
		},
		{
			// Destination was never created: the whole commit must fail.
			Type:      branch.DeltaUpdateLocation,
			TargetKey: "swamp",
			Payload:   branch.UpdateLocation{},
		},
	}

	err = rs.ApplyDeltas(ctx, sess, deltas, 5)
	if err == nil {
		t.Fatal("Expected constraint error")
	}
	var ce *store.ConstraintError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected *ConstraintError, got %T: %v", err, err)
	}

	// Nothing was written, including the fact staged before the failure.
	if sess.LocationKey != "tavern" {
		t.Errorf("Expected session unchanged, got location %q", sess.LocationKey)
	}
	if sess.TurnCount != 0 {
		t.Errorf("Expected turn count unchanged, got %d", sess.TurnCount)
	}
	facts, err := rs.FactsAbout(ctx, sess.ID, "greta")
	if err != nil {
		t.Fatalf("Failed to load facts: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("Expected no facts after rollback, got %+v", facts)
	}
}

func TestApplyDeltas_NeedClampedAtBounds(t *testing.T) {
	rs, _ := setupTestStorage(t)
	ctx := context.Background()

	sess, err := rs.CreateSession(ctx, testScenario())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	deltas := []branch.StateDelta{
		{
			Type:      branch.DeltaUpdateNeed,
			TargetKey: world.PlayerKey,
			Payload:   branch.UpdateNeed{Need: world.NeedThirst, Change: -90},
		},
	}
	if err := rs.ApplyDeltas(ctx, sess, deltas, 1); err != nil {
		t.Fatalf("Failed to apply deltas: %v", err)
	}

	needs, err := rs.Needs(ctx, sess.ID, world.PlayerKey)
	if err != nil {
		t.Fatalf("Failed to load needs: %v", err)
	}
	if needs[world.NeedThirst] != world.NeedMin {
		t.Errorf("Expected thirst clamped to %d, got %d", world.NeedMin, needs[world.NeedThirst])
	}
}

func TestApplyDeltas_DeleteRemovesRecord(t *testing.T) {
	rs, _ := setupTestStorage(t)
	ctx := context.Background()

	sess, err := rs.CreateSession(ctx, testScenario())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	deltas := []branch.StateDelta{
		{
			Type:      branch.DeltaDeleteEntity,
			TargetKey: "greta",
			Payload:   branch.DeleteEntity{Reason: "left town"},
		},
	}
	if err := rs.ApplyDeltas(ctx, sess, deltas, 1); err != nil {
		t.Fatalf("Failed to apply deltas: %v", err)
	}

	e, err := rs.GetEntity(ctx, sess.ID, "greta")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if e != nil {
		t.Errorf("Expected greta deleted, got %+v", e)
	}

	entities, err := rs.EntitiesAt(ctx, sess.ID, "tavern")
	if err != nil {
		t.Fatalf("Failed to list entities: %v", err)
	}
	if len(entities) != 0 {
		t.Errorf("Expected empty tavern after delete, got %+v", entities)
	}
}
