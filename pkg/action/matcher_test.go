package action

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sbstnppl/branch-engine/pkg/world"
)

func tavernManifest() *world.Manifest {
	m := world.NewManifest("common_room", "Common Room")
	m.AddEntity("greta", "Greta", world.EntityNPC)
	m.AddEntity("fiddler_tom", "Fiddler Tom", world.EntityNPC)
	m.AddEntity("clay_mug", "Clay Mug", world.EntityItem)
	m.AddExit("cellar")
	m.AddExit("kitchen")
	m.AddCandidateLocation("harbor_street")
	return m
}

func TestMatchMove(t *testing.T) {
	m := tavernManifest()

	a := Match("go down to the cellar", m)
	assert.Equal(t, KindMove, a.Kind)
	assert.Equal(t, "cellar", a.TargetKey)

	a = Match("walk out onto harbor_street", m)
	assert.Equal(t, KindMove, a.Kind)
	assert.Equal(t, "harbor_street", a.TargetKey, "candidate locations are legal move targets")
}

func TestMatchUntargeted(t *testing.T) {
	m := tavernManifest()

	a := Match("look around the room", m)
	assert.Equal(t, KindObserve, a.Kind)
	assert.Empty(t, a.TargetKey, "observe carries no target")

	a = Match("wait by the fire", m)
	assert.Equal(t, KindWait, a.Kind)
	assert.True(t, a.Kind.Untargeted())
}

func TestMatchSpeechActBeatsQuestionOpeners(t *testing.T) {
	m := tavernManifest()

	// A nested modal verb must not reroute a speech act to the question
	// path when the NPC target resolves.
	a := Match("ask Greta if I can buy some bread", m)
	assert.Equal(t, KindInteractNPC, a.Kind)
	assert.Equal(t, "greta", a.TargetKey)
	assert.Equal(t, "Greta", a.TargetDisplay)
}

func TestMatchQuestion(t *testing.T) {
	m := tavernManifest()

	a := Match("could I reach the harbor before dawn?", m)
	assert.Equal(t, KindQuestion, a.Kind)

	a = Match("what is behind the hollow wall", m)
	assert.Equal(t, KindQuestion, a.Kind)
}

func TestMatchPickDisambiguation(t *testing.T) {
	m := tavernManifest()

	a := Match("pick the lock on the cellar door", m)
	assert.Equal(t, KindSkillUse, a.Kind)

	a = Match("pick up the mug", m)
	assert.Equal(t, KindManipulateItem, a.Kind)
	assert.Equal(t, "clay_mug", a.TargetKey)
}

func TestMatchSkillVerb(t *testing.T) {
	m := tavernManifest()

	a := Match("sneak past Greta toward the stairs", m)
	assert.Equal(t, KindSkillUse, a.Kind)
	assert.Equal(t, "greta", a.TargetKey)
}

func TestMatchItemAndNPCVerbs(t *testing.T) {
	m := tavernManifest()

	a := Match("take the mug from the bar", m)
	assert.Equal(t, KindManipulateItem, a.Kind)
	assert.Equal(t, "clay_mug", a.TargetKey)

	a = Match("order a drink from greta", m)
	assert.Equal(t, KindInteractNPC, a.Kind)
	assert.Equal(t, "greta", a.TargetKey)
}

func TestMatchUnknown(t *testing.T) {
	m := tavernManifest()

	a := Match("zzz qqq", m)
	assert.Equal(t, KindUnknown, a.Kind)
	assert.Zero(t, a.Confidence)

	a = Match("   ", m)
	assert.Equal(t, KindUnknown, a.Kind)
}
