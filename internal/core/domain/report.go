package domain

import (
	"slices"
	"time"
)

// FailureKind classifies why a resource did not reach the installed state.
type FailureKind string

const (
	// FailureNone is used for installed resources.
	FailureNone FailureKind = ""
	// FailureFetch means the artifact could not be downloaded.
	FailureFetch FailureKind = "fetch"
	// FailureAgreement means a required agreement was not granted.
	FailureAgreement FailureKind = "agreement"
	// FailureInstall means the install step failed.
	FailureInstall FailureKind = "install"
	// FailureDependency means a dependency failed or was skipped.
	FailureDependency FailureKind = "dependency"
	// FailureCancelled means the build was cancelled before the resource started.
	FailureCancelled FailureKind = "cancelled"
)

// DownloadResult describes what the download step did.
type DownloadResult string

const (
	// DownloadNotAttempted means the download step never ran.
	DownloadNotAttempted DownloadResult = ""
	// DownloadNotRequired means the resource has no artifact to fetch.
	DownloadNotRequired DownloadResult = "not_required"
	// DownloadFetched means the artifact was transferred.
	DownloadFetched DownloadResult = "fetched"
	// DownloadAlreadyPresent means the artifact existed and no transfer happened.
	DownloadAlreadyPresent DownloadResult = "already_present"
)

// Outcome is the final record for one resource.
type Outcome struct {
	Label    string
	Kind     Kind
	State    State
	Failure  FailureKind
	Reason   string
	Err      error
	Cached   bool
	Download DownloadResult
	Duration time.Duration
}

// OutcomeReport is the read-only result of a build, with entries in build order.
type OutcomeReport struct {
	entries   []Outcome
	index     map[string]int
	cancelled bool
}

// NewOutcomeReport builds a report from entries already in build order.
func NewOutcomeReport(entries []Outcome, cancelled bool) *OutcomeReport {
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.Label] = i
	}
	return &OutcomeReport{
		entries:   slices.Clone(entries),
		index:     index,
		cancelled: cancelled,
	}
}

// Get returns the outcome for label.
func (r *OutcomeReport) Get(label string) (Outcome, bool) {
	i, ok := r.index[label]
	if !ok {
		return Outcome{}, false
	}
	return r.entries[i], true
}

// Entries returns every outcome in build order.
func (r *OutcomeReport) Entries() []Outcome {
	return slices.Clone(r.entries)
}

// Labels returns the labels in build order.
func (r *OutcomeReport) Labels() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Label
	}
	return out
}

// Count returns how many resources ended in state s.
func (r *OutcomeReport) Count(s State) int {
	n := 0
	for _, e := range r.entries {
		if e.State == s {
			n++
		}
	}
	return n
}

// Cancelled reports whether the build was interrupted.
func (r *OutcomeReport) Cancelled() bool {
	return r.cancelled
}

// Succeeded reports whether every resource was installed.
func (r *OutcomeReport) Succeeded() bool {
	return !r.cancelled && r.Count(StateInstalled) == len(r.entries)
}
