package domain

// Agreements maps a resource label to whether its terms were acknowledged.
type Agreements map[string]bool

// GateDecision is the outcome of an agreement check.
type GateDecision int

const (
	// GateOpen means the resource may proceed to install.
	GateOpen GateDecision = iota
	// GateBlocked means the resource requires an agreement that was not granted.
	GateBlocked
)

func (d GateDecision) String() string {
	if d == GateBlocked {
		return "blocked"
	}
	return "open"
}

// CheckAgreement decides whether r may be installed given the granted agreements.
// It has no side effects and never prompts.
func CheckAgreement(r *Resource, granted Agreements) GateDecision {
	if !r.RequiresAgreement {
		return GateOpen
	}
	if granted[r.Label.String()] {
		return GateOpen
	}
	return GateBlocked
}
