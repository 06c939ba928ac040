package ports

import (
	"context"
	"io"

	"go.trai.ch/stall/internal/core/domain"
)

//go:generate mockgen -source=package_manager.go -destination=mocks/mock_package_manager.go -package=mocks

// PackageManager installs packages through a system package manager.
type PackageManager interface {
	// Name is the manager name, also used as the install lock key.
	Name() string
	// Install performs the request, streaming tool output to out.
	Install(ctx context.Context, req domain.PackageRequest, out io.Writer) error
}

// PackageResolver resolves a versioned package to a pinned Nixpkgs revision.
type PackageResolver interface {
	// Resolve returns the Nixpkgs commit and attribute path for name at version.
	Resolve(ctx context.Context, name, version string) (commitHash, attrPath string, err error)
}
