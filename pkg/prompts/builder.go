package prompts

import (
	"fmt"
	"strings"

	"github.com/sbstnppl/branch-engine/pkg/action"
	"github.com/sbstnppl/branch-engine/pkg/chat"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

// Builder constructs oracle message arrays for branch generation using a
// fluent interface. It keeps prompt assembly out of the engine.
type Builder struct {
	manifest    *world.Manifest
	act         *action.Action
	playerInput string
	recentTurns []string
	clock       world.Clock
	moveOrigin  string
	moveDest    string
	feedback    string
}

// NewBuilder creates an empty prompt builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithManifest sets the turn's grounding manifest.
func (b *Builder) WithManifest(m *world.Manifest) *Builder {
	b.manifest = m
	return b
}

// WithAction sets the classified action.
func (b *Builder) WithAction(a *action.Action) *Builder {
	b.act = a
	return b
}

// WithPlayerInput sets the literal player input. Required: omitting it
// causes the oracle to narrate an unrelated cached topic.
func (b *Builder) WithPlayerInput(input string) *Builder {
	b.playerInput = input
	return b
}

// WithRecentTurns sets the recent conversation window.
func (b *Builder) WithRecentTurns(turns []string) *Builder {
	b.recentTurns = turns
	return b
}

// WithClock sets the session clock for time context.
func (b *Builder) WithClock(c world.Clock) *Builder {
	b.clock = c
	return b
}

// WithMove sets origin and destination for a move action, so the
// narrative describes the journey rather than a second departure from the
// destination.
func (b *Builder) WithMove(origin, destination string) *Builder {
	b.moveOrigin = origin
	b.moveDest = destination
	return b
}

// WithFeedback injects the previous attempt's rejection reasons.
func (b *Builder) WithFeedback(feedback string) *Builder {
	b.feedback = feedback
	return b
}

// Build assembles the message array for one branch generation call.
func (b *Builder) Build() ([]chat.Message, error) {
	if b.manifest == nil {
		return nil, fmt.Errorf("manifest is required")
	}
	if b.act == nil {
		return nil, fmt.Errorf("action is required")
	}
	if b.playerInput == "" {
		return nil, fmt.Errorf("player input is required")
	}

	messages := []chat.Message{
		{Role: chat.RoleSystem, Content: BranchSystemPrompt},
		{Role: chat.RoleSystem, Content: b.contextPrompt()},
	}

	if b.act.Kind == action.KindMove && b.moveDest != "" {
		messages = append(messages, chat.Message{
			Role:    chat.RoleSystem,
			Content: fmt.Sprintf(MoveJourneyPrompt, b.moveOrigin, b.moveDest, b.moveDest),
		})
	}

	if b.feedback != "" {
		messages = append(messages, chat.Message{
			Role:    chat.RoleSystem,
			Content: fmt.Sprintf(RetryFeedbackPrompt, b.feedback),
		})
	}

	messages = append(messages, chat.Message{
		Role:    chat.RoleUser,
		Content: b.actionLine(),
	})
	return messages, nil
}

func (b *Builder) contextPrompt() string {
	recent := strings.Join(b.recentTurns, "\n")
	if recent == "" {
		recent = "(no previous turns)"
	}
	return fmt.Sprintf(ContextPrompt,
		b.manifest.CurrentLocationDisplay,
		b.clock.String(),
		b.clock.Period(),
		strings.Join(b.manifest.KnownKeys(), ", "),
		strings.Join(b.manifest.Destinations(), ", "),
		recent,
		b.playerInput,
	)
}

func (b *Builder) actionLine() string {
	line := fmt.Sprintf("Action kind: %s.", b.act.Kind)
	if b.act.TargetKey != "" {
		line += fmt.Sprintf(" Target: %s (%s).", b.act.TargetKey, b.act.TargetDisplay)
	}
	return line + " Player input: " + b.playerInput
}

// ClassifierMessages builds the message array for the oracle classifier.
func ClassifierMessages(input string, m *world.Manifest, recentTurns []string) []chat.Message {
	recent := "(none)"
	if len(recentTurns) > 0 {
		recent = strings.Join(recentTurns, "\n")
	}
	return []chat.Message{{
		Role: chat.RoleUser,
		Content: fmt.Sprintf(ClassifierPrompt,
			strings.Join(m.KnownKeys(), ", "),
			strings.Join(m.Destinations(), ", "),
			recent,
			input),
	}}
}

// NarratorMessages builds the message array for the prose refinement pass.
func NarratorMessages(draft string, m *world.Manifest, clock world.Clock) []chat.Message {
	return []chat.Message{{
		Role: chat.RoleSystem,
		Content: fmt.Sprintf(NarratorSystemPrompt,
			clock.String(), clock.Day, clock.Period(),
			strings.Join(m.KnownKeys(), ", "),
			draft),
	}}
}

// ClarifyKeyMessages builds the single-round-trip key clarification call.
func ClarifyKeyMessages(unknown string, candidates []string) []chat.Message {
	return []chat.Message{{
		Role:    chat.RoleUser,
		Content: fmt.Sprintf(ClarifyKeyPrompt, unknown, strings.Join(candidates, ", ")),
	}}
}

// OOCFallbackMessages builds the free-form answer call for unrecognized
// out-of-character queries.
func OOCFallbackMessages(summary, question string) []chat.Message {
	return []chat.Message{{
		Role:    chat.RoleUser,
		Content: fmt.Sprintf(OOCFallbackPrompt, summary, question),
	}}
}
