package engine

import (
	"context"
	"fmt"

	"github.com/sbstnppl/branch-engine/pkg/storage"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

// recentTurnWindow is how many prior turns of narrative the oracle sees.
const recentTurnWindow = 5

// scene is everything a single turn needs to know about the world:
// the grounding manifest plus the narrative history and player inventory
// the validators check against.
type scene struct {
	manifest    *world.Manifest
	location    *world.Location
	recentTurns []string
	playerItems map[string]string // key -> display name
}

// buildScene assembles the manifest for the session's current location.
// Exits come from the location record; every other known location is a
// candidate destination for journey-style moves.
func buildScene(ctx context.Context, store storage.Storage, sess *world.Session) (*scene, error) {
	loc, err := store.GetLocation(ctx, sess.ID, sess.LocationKey)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, fmt.Errorf("session location %q has no record", sess.LocationKey)
	}

	m := world.NewManifest(loc.Key, loc.DisplayName)

	entities, err := store.EntitiesAt(ctx, sess.ID, loc.Key)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		m.AddEntity(e.Key, e.DisplayName, e.Type)
	}

	localItems, err := store.ItemsHeldBy(ctx, sess.ID, loc.Key)
	if err != nil {
		return nil, err
	}
	for _, it := range localItems {
		m.AddEntity(it.Key, it.DisplayName, world.EntityItem)
	}

	playerItems, err := store.ItemsHeldBy(ctx, sess.ID, world.PlayerKey)
	if err != nil {
		return nil, err
	}
	held := make(map[string]string, len(playerItems))
	for _, it := range playerItems {
		m.AddEntity(it.Key, it.DisplayName, world.EntityItem)
		held[it.Key] = it.DisplayName
	}

	for _, exit := range loc.Exits {
		m.AddExit(exit)
		if exitLoc, err := store.GetLocation(ctx, sess.ID, exit); err != nil {
			return nil, err
		} else if exitLoc != nil {
			m.AddEntity(exitLoc.Key, exitLoc.DisplayName, world.EntityLocation)
		}
	}

	exits := make(map[string]struct{}, len(loc.Exits))
	for _, exit := range loc.Exits {
		exits[exit] = struct{}{}
	}
	known, err := store.ListLocations(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	for _, other := range known {
		if other.Key == loc.Key {
			continue
		}
		if _, isExit := exits[other.Key]; isExit {
			continue
		}
		m.AddCandidateLocation(other.Key)
		m.AddEntity(other.Key, other.DisplayName, world.EntityLocation)
	}

	turns, err := store.RecentTurns(ctx, sess.ID, recentTurnWindow)
	if err != nil {
		return nil, err
	}
	recent := make([]string, 0, len(turns))
	for _, t := range turns {
		recent = append(recent, t.NarrativeOutput)
	}

	return &scene{
		manifest:    m,
		location:    loc,
		recentTurns: recent,
		playerItems: held,
	}, nil
}
