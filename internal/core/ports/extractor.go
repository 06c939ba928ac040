package ports

import "context"

// Extractor unpacks archives.
//
//go:generate mockgen -source=extractor.go -destination=mocks/mock_extractor.go -package=mocks
type Extractor interface {
	// Extract unpacks archive into dest, creating dest when needed.
	Extract(ctx context.Context, archive, dest string) error
}
