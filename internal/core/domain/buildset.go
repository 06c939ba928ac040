package domain

import "slices"

// BuildSet is the collection of resources submitted for one build, in declaration order,
// together with the agreements the operator granted for it.
type BuildSet struct {
	resources  []*Resource
	agreements Agreements
}

// NewBuildSet creates a BuildSet holding resources in the given order.
func NewBuildSet(resources ...*Resource) *BuildSet {
	return &BuildSet{
		resources:  slices.Clone(resources),
		agreements: make(Agreements),
	}
}

// Add appends resources in order. Duplicate labels are accepted here and rejected by the resolver.
func (b *BuildSet) Add(resources ...*Resource) {
	b.resources = append(b.resources, resources...)
}

// Merge appends the resources and agreements of other.
func (b *BuildSet) Merge(other *BuildSet) {
	if other == nil {
		return
	}
	b.resources = append(b.resources, other.resources...)
	for label, granted := range other.agreements {
		if granted {
			b.agreements[label] = true
		}
	}
}

// Resources returns the declared resources in order.
func (b *BuildSet) Resources() []*Resource {
	return slices.Clone(b.resources)
}

// Len returns the number of declared resources.
func (b *BuildSet) Len() int {
	return len(b.resources)
}

// Grant records an acknowledgement for label.
func (b *BuildSet) Grant(label string) {
	b.agreements[label] = true
}

// Agreements returns a copy of the granted agreements.
func (b *BuildSet) Agreements() Agreements {
	out := make(Agreements, len(b.agreements))
	for k, v := range b.agreements {
		out[k] = v
	}
	return out
}

// PendingAgreements returns the labels that require an agreement not yet granted, in declaration order.
func (b *BuildSet) PendingAgreements() []string {
	var pending []string
	for _, r := range b.resources {
		if CheckAgreement(r, b.agreements) == GateBlocked {
			pending = append(pending, r.Label.String())
		}
	}
	return pending
}
