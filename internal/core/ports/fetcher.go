package ports

import "context"

// Fetcher transfers an artifact from its source location to a local path.
//
//go:generate mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
type Fetcher interface {
	// Fetch copies source to dest. A failed fetch must not leave a file at dest.
	Fetch(ctx context.Context, source, dest string) error
}
