// Package apt installs Debian packages, local .deb files and PPAs with apt-get.
package apt

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
	"go.trai.ch/zerr"
)

var nonInteractiveEnv = []string{"DEBIAN_FRONTEND=noninteractive"}

// Manager implements ports.PackageManager for apt.
type Manager struct {
	runner ports.CommandRunner
	sudo   bool
}

var _ ports.PackageManager = (*Manager)(nil)

// Option configures a Manager.
type Option func(*Manager)

// WithSudo controls whether commands are prefixed with sudo.
// By default sudo is used unless the process runs as root.
func WithSudo(enabled bool) Option {
	return func(m *Manager) {
		m.sudo = enabled
	}
}

// NewManager creates an apt Manager running commands through runner.
func NewManager(runner ports.CommandRunner, opts ...Option) *Manager {
	m := &Manager{
		runner: runner,
		sudo:   os.Geteuid() != 0,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the package manager key.
func (m *Manager) Name() string {
	return domain.ManagerApt
}

// Install adds req.Repository when set, then installs local files and packages.
func (m *Manager) Install(ctx context.Context, req domain.PackageRequest, out io.Writer) error {
	if req.Repository != "" {
		if err := m.run(ctx, out, "add-apt-repository", "-y", req.Repository); err != nil {
			return domain.Tag(err, "repository", req.Repository)
		}
		if err := m.run(ctx, out, "apt-get", "update"); err != nil {
			return err
		}
	}

	targets := make([]string, 0, len(req.Files)+len(req.Packages))
	for _, f := range req.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to resolve package file"), "file", f)
		}
		// apt-get only treats arguments containing a slash as local files.
		targets = append(targets, abs)
	}
	targets = append(targets, req.Packages...)
	if len(targets) == 0 {
		return domain.Tag(domain.ErrMissingField, "field", "packages", "label", req.Label)
	}

	args := append([]string{"install", "-y"}, targets...)
	return m.run(ctx, out, "apt-get", args...)
}

func (m *Manager) run(ctx context.Context, out io.Writer, name string, args ...string) error {
	cmd := domain.Command{Name: name, Args: args, Env: nonInteractiveEnv}
	if m.sudo {
		// sudo resets the environment, so the variable travels as an argument.
		cmd = domain.Command{
			Name: "sudo",
			Args: append([]string{"env", nonInteractiveEnv[0], name}, args...),
		}
	}

	if err := m.runner.Run(ctx, cmd, out, out); err != nil {
		return domain.Tag(err, "manager", domain.ManagerApt)
	}
	return nil
}
