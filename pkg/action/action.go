package action

// Kind is the typed classification of a player's free-text input.
type Kind string

const (
	KindMove           Kind = "move"
	KindObserve        Kind = "observe"
	KindWait           Kind = "wait"
	KindSkillUse       Kind = "skill_use"
	KindInteractNPC    Kind = "interact_npc"
	KindManipulateItem Kind = "manipulate_item"
	KindQuestion       Kind = "question"
	KindUnknown        Kind = "unknown"
)

// Untargeted reports whether the kind requires no literal target match.
// Observe and wait actions must never be rejected or reclassified for
// lack of a target.
func (k Kind) Untargeted() bool {
	return k == KindObserve || k == KindWait
}

// Action is the classifier's output for one turn. Immutable once produced.
type Action struct {
	Kind          Kind    `json:"kind"`
	TargetKey     string  `json:"target_key,omitempty"`
	TargetDisplay string  `json:"target_display,omitempty"`
	Confidence    float64 `json:"confidence"`
}
