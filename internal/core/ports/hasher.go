package ports

import "go.trai.ch/stall/internal/core/domain"

// Hasher defines the interface for computing hashes.
//
//go:generate mockgen -destination=mocks/mock_hasher.go -package=mocks -source=hasher.go
type Hasher interface {
	// Fingerprint hashes the parts of a declaration that change what gets installed.
	Fingerprint(r *domain.Resource) string
	// ComputeFileHash hashes the content of a file.
	ComputeFileHash(path string) (string, error)
}
