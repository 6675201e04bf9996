package branch

// Phase is one state in a branch's lifecycle:
//
//	Requested → Generated → Repaired → {Valid | Invalid}
//
// Invalid transitions back to Requested (regeneration) until the retry
// budget is spent, then to FallbackAccepted.
type Phase string

const (
	PhaseRequested        Phase = "requested"
	PhaseGenerated        Phase = "generated"
	PhaseRepaired         Phase = "repaired"
	PhaseValid            Phase = "valid"
	PhaseInvalid          Phase = "invalid"
	PhaseFallbackAccepted Phase = "fallback_accepted"
)

// Lifecycle is the explicit retry state threaded through each
// regeneration call. It replaces implicit recursive control flow with a
// bounded counter and the last failure reason.
type Lifecycle struct {
	Phase       Phase
	Attempt     int
	MaxAttempts int
	LastError   string
}

// NewLifecycle starts a lifecycle in the Requested phase with the given
// retry budget.
func NewLifecycle(maxAttempts int) *Lifecycle {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Lifecycle{Phase: PhaseRequested, MaxAttempts: maxAttempts}
}

// BeginAttempt counts one generation attempt. Returns false when the
// budget is already spent.
func (l *Lifecycle) BeginAttempt() bool {
	if l.Attempt >= l.MaxAttempts {
		return false
	}
	l.Attempt++
	l.Phase = PhaseRequested
	return true
}

// Generated marks a successfully parsed oracle response.
func (l *Lifecycle) Generated() { l.Phase = PhaseGenerated }

// Repaired marks a completed post-processor pass.
func (l *Lifecycle) Repaired() { l.Phase = PhaseRepaired }

// Valid marks a branch that passed all validators.
func (l *Lifecycle) Valid() { l.Phase = PhaseValid }

// Invalid records a failure reason and reports whether another attempt
// remains. When the budget is spent the lifecycle moves to
// FallbackAccepted.
func (l *Lifecycle) Invalid(reason string) bool {
	l.LastError = reason
	if l.Attempt >= l.MaxAttempts {
		l.Phase = PhaseFallbackAccepted
		return false
	}
	l.Phase = PhaseInvalid
	return true
}
