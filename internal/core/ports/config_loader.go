package ports

import "go.trai.ch/stall/internal/core/domain"

//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks

// ResourceLoader reads resource declaration files.
type ResourceLoader interface {
	// Load parses the file at path. A file with any invalid declaration yields no build set.
	Load(path string) (*domain.BuildSet, error)
}

// CatalogEntry describes a pre-built declaration offered by the catalog.
type CatalogEntry struct {
	Name        string
	Kind        domain.Kind
	Description string
}

// Catalog offers ready-made declarations for the current platform.
type Catalog interface {
	// Platform returns the platform the entries were selected for.
	Platform() string
	// Entries lists the available entries, sorted by name.
	Entries() []CatalogEntry
	// Select returns a build set with the named entries in the given order.
	Select(names []string) (*domain.BuildSet, error)
}
