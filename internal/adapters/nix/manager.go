package nix

import (
	"context"
	"io"
	"strings"

	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
)

// Manager implements ports.PackageManager by installing into the user's Nix profile.
type Manager struct {
	runner   ports.CommandRunner
	resolver ports.PackageResolver
}

var _ ports.PackageManager = (*Manager)(nil)

// NewManager creates a Manager. Versioned packages need a resolver.
func NewManager(runner ports.CommandRunner, resolver ports.PackageResolver) *Manager {
	return &Manager{runner: runner, resolver: resolver}
}

// Name returns the package manager key.
func (m *Manager) Name() string {
	return domain.ManagerNix
}

// Install runs `nix profile install` for every package of req in one transaction.
// Packages written as name@version are pinned to the nixpkgs commit NixHub reports for that version.
func (m *Manager) Install(ctx context.Context, req domain.PackageRequest, out io.Writer) error {
	installables := make([]string, 0, len(req.Packages))
	for _, pkg := range req.Packages {
		installable, err := m.installable(ctx, pkg)
		if err != nil {
			return domain.Tag(err, "label", req.Label)
		}
		installables = append(installables, installable)
	}

	args := append([]string{"profile", "install"}, installables...)
	if err := m.runner.Run(ctx, domain.Command{Name: "nix", Args: args}, out, out); err != nil {
		return domain.Tag(err, "manager", domain.ManagerNix)
	}
	return nil
}

func (m *Manager) installable(ctx context.Context, pkg string) (string, error) {
	name, version, pinned, err := ParsePackageSpec(pkg)
	if err != nil {
		return "", err
	}
	if !pinned {
		return "nixpkgs#" + name, nil
	}
	if m.resolver == nil {
		return "", domain.Tag(domain.ErrNixPackageNotFound, "package", name, "version", version, "reason", "no resolver configured")
	}

	commit, attrPath, err := m.resolver.Resolve(ctx, name, version)
	if err != nil {
		return "", err
	}
	return "github:NixOS/nixpkgs/" + commit + "#" + attrPath, nil
}

// ParsePackageSpec splits "name@version". A spec without "@" is unpinned.
func ParsePackageSpec(spec string) (name, version string, pinned bool, err error) {
	spec = strings.TrimSpace(spec)
	idx := strings.LastIndex(spec, "@")
	if idx < 0 {
		if spec == "" {
			return "", "", false, domain.Tag(domain.ErrInvalidPackageSpec, "package", spec)
		}
		return spec, "", false, nil
	}

	name, version = spec[:idx], spec[idx+1:]
	if name == "" || version == "" {
		return "", "", false, domain.Tag(domain.ErrInvalidPackageSpec, "package", spec)
	}
	return name, version, true, nil
}
