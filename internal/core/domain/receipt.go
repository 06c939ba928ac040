package domain

import "time"

// Receipt records a successful install so later builds can skip the work.
type Receipt struct {
	Label        string    `json:"label,omitzero"`
	Kind         Kind      `json:"kind,omitzero"`
	Fingerprint  string    `json:"fingerprint,omitzero"`
	ArtifactHash string    `json:"artifact_hash,omitzero"`
	InstalledAt  time.Time `json:"installed_at,omitzero"`
}
