package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbstnppl/branch-engine/pkg/action"
	"github.com/sbstnppl/branch-engine/pkg/chat"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

func promptManifest() *world.Manifest {
	m := world.NewManifest("common_room", "Common Room")
	m.AddEntity("greta", "Greta", world.EntityNPC)
	m.AddExit("cellar")
	return m
}

func TestBuilderRequiredFields(t *testing.T) {
	m := promptManifest()
	act := &action.Action{Kind: action.KindObserve}

	_, err := NewBuilder().WithAction(act).WithPlayerInput("look").Build()
	assert.Error(t, err, "manifest is required")

	_, err = NewBuilder().WithManifest(m).WithPlayerInput("look").Build()
	assert.Error(t, err, "action is required")

	_, err = NewBuilder().WithManifest(m).WithAction(act).Build()
	assert.Error(t, err, "player input is required")
}

func TestBuilderBuild(t *testing.T) {
	m := promptManifest()
	act := &action.Action{Kind: action.KindInteractNPC, TargetKey: "greta", TargetDisplay: "Greta"}

	messages, err := NewBuilder().
		WithManifest(m).
		WithAction(act).
		WithPlayerInput("wave at greta").
		WithRecentTurns([]string{"You entered the tavern."}).
		WithClock(world.Clock{Day: 1, Minutes: 19 * 60}).
		Build()
	require.NoError(t, err)
	require.Len(t, messages, 3)

	assert.Equal(t, chat.RoleSystem, messages[0].Role)
	assert.Equal(t, BranchSystemPrompt, messages[0].Content)

	context := messages[1].Content
	assert.Contains(t, context, "Common Room")
	assert.Contains(t, context, "greta")
	assert.Contains(t, context, "cellar")
	assert.Contains(t, context, "evening")
	assert.Contains(t, context, "You entered the tavern.")

	last := messages[len(messages)-1]
	assert.Equal(t, chat.RoleUser, last.Role)
	assert.Contains(t, last.Content, "interact_npc")
	assert.Contains(t, last.Content, "wave at greta")
}

func TestBuilderMovePrompt(t *testing.T) {
	m := promptManifest()
	act := &action.Action{Kind: action.KindMove, TargetKey: "cellar"}

	messages, err := NewBuilder().
		WithManifest(m).
		WithAction(act).
		WithPlayerInput("go to the cellar").
		WithMove("common_room", "cellar").
		Build()
	require.NoError(t, err)
	require.Len(t, messages, 4)

	move := messages[2].Content
	assert.Contains(t, move, "MOVE action")
	assert.Contains(t, move, `"common_room"`)
	assert.Contains(t, move, `"cellar"`)
}

func TestBuilderFeedbackPrompt(t *testing.T) {
	m := promptManifest()
	act := &action.Action{Kind: action.KindObserve}

	messages, err := NewBuilder().
		WithManifest(m).
		WithAction(act).
		WithPlayerInput("look around").
		WithFeedback("[success/narrative_consistency] narrative is empty").
		Build()
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Contains(t, messages[2].Content, "narrative is empty")
}

func TestClassifierMessages(t *testing.T) {
	m := promptManifest()
	messages := ClassifierMessages("sneak into the cellar", m, []string{"Greta waves you over."})
	require.Len(t, messages, 1)
	assert.Equal(t, chat.RoleUser, messages[0].Role)
	assert.Contains(t, messages[0].Content, "sneak into the cellar")
	assert.Contains(t, messages[0].Content, "greta")
	assert.Contains(t, messages[0].Content, "cellar")
	assert.Contains(t, messages[0].Content, "Greta waves you over.")
}

func TestClassifierMessagesNoHistory(t *testing.T) {
	messages := ClassifierMessages("look around", promptManifest(), nil)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Content, "(none)")
}

func TestClarifyKeyMessages(t *testing.T) {
	messages := ClarifyKeyMessages("gretta", []string{"greta", "fiddler_tom"})
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Content, `"gretta"`)
	assert.Contains(t, messages[0].Content, "greta, fiddler_tom")
}

func TestOOCFallbackMessages(t *testing.T) {
	messages := OOCFallbackMessages("Location: Common Room", "who is here?")
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Content, "Location: Common Room")
	assert.Contains(t, messages[0].Content, "who is here?")
}
