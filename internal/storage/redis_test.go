package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"

	"github.com/sbstnppl/branch-engine/pkg/world"
)

func setupTestStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	rs := NewRedisStorage(mr.Addr(), t.TempDir(), logger)
	t.Cleanup(func() { _ = rs.Close() })

	return rs, mr
}

func testScenario() *world.Scenario {
	return &world.Scenario{
		Name:          "Test Tavern",
		StartLocation: "tavern",
		Clock:         world.Clock{Day: 1, Minutes: 9 * 60},
		Locations: []world.Location{
			{Key: "tavern", DisplayName: "The Rusty Anchor", Exits: []string{"cellar"}},
			{Key: "cellar", DisplayName: "Cellar", Exits: []string{"tavern"}},
		},
		Entities: []world.Entity{
			{Key: "greta", DisplayName: "Greta", Type: world.EntityNPC, LocationKey: "tavern"},
		},
		Items: []world.Item{
			{Key: "rusty_key", DisplayName: "Rusty Key", HolderKey: "cellar"},
		},
		PlayerNeeds: map[string]int{world.NeedThirst: 40},
	}
}

func TestRedisStorage_CreateAndLoadSession(t *testing.T) {
	rs, _ := setupTestStorage(t)
	ctx := context.Background()

	sess, err := rs.CreateSession(ctx, testScenario())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if sess.LocationKey != "tavern" {
		t.Errorf("Expected start location 'tavern', got %q", sess.LocationKey)
	}

	loaded, err := rs.LoadSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected non-nil session")
	}
	if loaded.ScenarioName != "Test Tavern" {
		t.Errorf("Expected scenario name 'Test Tavern', got %q", loaded.ScenarioName)
	}
	if loaded.Clock.Minutes != 9*60 {
		t.Errorf("Expected clock at 09:00, got %v", loaded.Clock)
	}

	// Seeded records are readable
	loc, err := rs.GetLocation(ctx, sess.ID, "cellar")
	if err != nil {
		t.Fatalf("Failed to load location: %v", err)
	}
	if loc == nil || loc.DisplayName != "Cellar" {
		t.Errorf("Expected seeded cellar location, got %+v", loc)
	}

	needs, err := rs.Needs(ctx, sess.ID, world.PlayerKey)
	if err != nil {
		t.Fatalf("Failed to load needs: %v", err)
	}
	if needs[world.NeedThirst] != 40 {
		t.Errorf("Expected seeded thirst 40, got %d", needs[world.NeedThirst])
	}
}

func TestRedisStorage_LoadSessionNotFound(t *testing.T) {
	rs, _ := setupTestStorage(t)

	sess, err := rs.LoadSession(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Expected no error for missing session, got: %v", err)
	}
	if sess != nil {
		t.Errorf("Expected nil session for missing ID, got %+v", sess)
	}
}

func TestRedisStorage_EntitiesAtAndItemsHeldBy(t *testing.T) {
	rs, _ := setupTestStorage(t)
	ctx := context.Background()

	sess, err := rs.CreateSession(ctx, testScenario())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	entities, err := rs.EntitiesAt(ctx, sess.ID, "tavern")
	if err != nil {
		t.Fatalf("Failed to list entities: %v", err)
	}
	if len(entities) != 1 || entities[0].Key != "greta" {
		t.Errorf("Expected greta in tavern, got %+v", entities)
	}

	entities, err = rs.EntitiesAt(ctx, sess.ID, "cellar")
	if err != nil {
		t.Fatalf("Failed to list entities: %v", err)
	}
	if len(entities) != 0 {
		t.Errorf("Expected empty cellar, got %+v", entities)
	}

	items, err := rs.ItemsHeldBy(ctx, sess.ID, "cellar")
	if err != nil {
		t.Fatalf("Failed to list items: %v", err)
	}
	if len(items) != 1 || items[0].Key != "rusty_key" {
		t.Errorf("Expected rusty_key in cellar, got %+v", items)
	}
}

func TestRedisStorage_FactsRoundTrip(t *testing.T) {
	rs, _ := setupTestStorage(t)
	ctx := context.Background()

	sess, err := rs.CreateSession(ctx, testScenario())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	facts, err := rs.FactsAbout(ctx, sess.ID, "greta")
	if err != nil {
		t.Fatalf("Failed to load facts: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("Expected no facts yet, got %+v", facts)
	}
}

func TestRedisStorage_DeleteSession(t *testing.T) {
	rs, _ := setupTestStorage(t)
	ctx := context.Background()

	sess, err := rs.CreateSession(ctx, testScenario())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := rs.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}

	loaded, err := rs.LoadSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Unexpected error after delete: %v", err)
	}
	if loaded != nil {
		t.Errorf("Expected session gone after delete, got %+v", loaded)
	}

	e, err := rs.GetEntity(ctx, sess.ID, "greta")
	if err != nil {
		t.Fatalf("Unexpected error after delete: %v", err)
	}
	if e != nil {
		t.Errorf("Expected entity records gone after delete, got %+v", e)
	}
}

func TestRedisStorage_GetScenario(t *testing.T) {
	rs, _ := setupTestStorage(t)
	ctx := context.Background()

	dir := filepath.Join(rs.dataDir, "scenarios")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create scenarios dir: %v", err)
	}
	data := `{"name":"Harbor Night","start_location":"docks","locations":[{"key":"docks","display_name":"The Docks"}]}`
	if err := os.WriteFile(filepath.Join(dir, "harbor.json"), []byte(data), 0o644); err != nil {
		t.Fatalf("Failed to write scenario file: %v", err)
	}

	sc, err := rs.GetScenario(ctx, "harbor.json")
	if err != nil {
		t.Fatalf("Failed to load scenario: %v", err)
	}
	if sc.Name != "Harbor Night" || sc.StartLocation != "docks" {
		t.Errorf("Unexpected scenario: %+v", sc)
	}
	if sc.FileName != "harbor.json" {
		t.Errorf("Expected FileName set from path, got %q", sc.FileName)
	}

	listed, err := rs.ListScenarios(ctx)
	if err != nil {
		t.Fatalf("Failed to list scenarios: %v", err)
	}
	if listed["Harbor Night"] != "harbor.json" {
		t.Errorf("Expected harbor.json listed, got %+v", listed)
	}

	if _, err := rs.GetScenario(ctx, "missing.json"); err == nil {
		t.Error("Expected error for missing scenario file")
	}
}
