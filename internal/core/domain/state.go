package domain

import "strings"

// State represents where a resource is in its build lifecycle.
type State string

const (
	// StateDeclared indicates the resource is waiting for its dependencies or a worker.
	StateDeclared State = "declared"
	// StateDownloading indicates the artifact is being fetched.
	StateDownloading State = "downloading"
	// StateDownloaded indicates the artifact is present locally.
	StateDownloaded State = "downloaded"
	// StateAwaitingAgreement indicates the resource is blocked on an agreement check.
	StateAwaitingAgreement State = "awaiting_agreement"
	// StateInstalling indicates the install step is running.
	StateInstalling State = "installing"
	// StateInstalled indicates the resource installed successfully.
	StateInstalled State = "installed"
	// StateFailed indicates a download, agreement or install failure.
	StateFailed State = "failed"
	// StateSkipped indicates no work was attempted because of a dependency or cancellation.
	StateSkipped State = "skipped"
)

// transitions lists the states reachable from each non-terminal state.
var transitions = map[State][]State{
	StateDeclared:          {StateDownloading, StateInstalled, StateSkipped},
	StateDownloading:       {StateDownloaded, StateFailed},
	StateDownloaded:        {StateAwaitingAgreement, StateInstalling},
	StateAwaitingAgreement: {StateInstalling, StateFailed},
	StateInstalling:        {StateInstalled, StateFailed},
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	switch s {
	case StateInstalled, StateFailed, StateSkipped:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from s to next is permitted.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// NormalizeState converts a string to a State, defaulting to declared if unknown.
func NormalizeState(s string) State {
	switch st := State(strings.ToLower(s)); st {
	case StateDeclared, StateDownloading, StateDownloaded, StateAwaitingAgreement,
		StateInstalling, StateInstalled, StateFailed, StateSkipped:
		return st
	default:
		return StateDeclared
	}
}

// Lifecycle tracks the state of one resource and rejects illegal transitions.
// A Lifecycle is owned by a single worker and is not safe for concurrent use.
type Lifecycle struct {
	label InternedString
	state State
	trail []State
}

// NewLifecycle returns a lifecycle in the declared state.
func NewLifecycle(label InternedString) *Lifecycle {
	return &Lifecycle{label: label, state: StateDeclared, trail: []State{StateDeclared}}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return l.state
}

// Trail returns every state visited so far, oldest first.
func (l *Lifecycle) Trail() []State {
	out := make([]State, len(l.trail))
	copy(out, l.trail)
	return out
}

// Advance moves the lifecycle to next.
func (l *Lifecycle) Advance(next State) error {
	if !l.state.CanTransition(next) {
		return Tag(ErrIllegalTransition,
			"label", l.label.String(),
			"from", string(l.state),
			"to", string(next),
		)
	}
	l.state = next
	l.trail = append(l.trail, next)
	return nil
}
