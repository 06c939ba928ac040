// Package resource turns declared resources into units that know how to download and install themselves.
package resource

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
	"go.trai.ch/zerr"
)

// Unit is a resource bound to the adapters that download and install it.
// A Unit is driven by one worker and is not safe for concurrent use.
type Unit interface {
	// Resource returns the declaration the unit was built from.
	Resource() *domain.Resource
	// ArtifactPath is where the artifact lives on disk, or "" for package sets.
	ArtifactPath() string
	// Download makes the artifact available locally.
	Download(ctx context.Context) (domain.DownloadResult, error)
	// Install runs the install step, streaming tool output to out.
	Install(ctx context.Context, out io.Writer) error
	// Cleanup removes the artifact after a successful install when the declaration asks for it.
	Cleanup() error
}

// installFunc performs the kind-specific part of an install.
type installFunc func(ctx context.Context, u *artifactUnit, out io.Writer) error

// artifactUnit covers every kind that downloads a file before installing it.
type artifactUnit struct {
	res     *domain.Resource
	fetcher ports.Fetcher
	path    string
	install installFunc

	downloaded bool
	installed  bool
}

func (u *artifactUnit) Resource() *domain.Resource { return u.res }

func (u *artifactUnit) ArtifactPath() string { return u.path }

func (u *artifactUnit) label() string { return u.res.Label.String() }

// Download fetches the artifact unless it is declared as local or already exists at its path.
// Existence is checked, content is not.
func (u *artifactUnit) Download(ctx context.Context) (domain.DownloadResult, error) {
	if u.res.Downloaded {
		if _, err := os.Stat(u.path); err != nil {
			return domain.DownloadNotAttempted, domain.Because(domain.ErrFetchFailed, err,
				"label", u.label(), "path", u.path)
		}
		u.downloaded = true
		return domain.DownloadAlreadyPresent, nil
	}

	if info, err := os.Stat(u.path); err == nil && !info.IsDir() {
		u.downloaded = true
		return domain.DownloadAlreadyPresent, nil
	}

	if err := u.fetcher.Fetch(ctx, u.res.Source, u.path); err != nil {
		return domain.DownloadNotAttempted, withLabel(err, domain.ErrFetchFailed, u.label())
	}
	u.downloaded = true
	return domain.DownloadFetched, nil
}

// Install runs the kind-specific install step. It fails when no download has succeeded.
func (u *artifactUnit) Install(ctx context.Context, out io.Writer) error {
	if !u.downloaded {
		return domain.Because(domain.ErrInstallFailed, domain.ErrNotDownloaded, "label", u.label())
	}
	if err := u.install(ctx, u, out); err != nil {
		return withLabel(err, domain.ErrInstallFailed, u.label())
	}
	u.installed = true
	return nil
}

// Cleanup deletes the artifact. Local files declared as downloaded are never removed.
func (u *artifactUnit) Cleanup() error {
	if !u.installed || !u.res.RemoveAfterInstall || u.res.Downloaded || u.res.Kind == domain.KindStatic {
		return nil
	}
	if err := os.Remove(u.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, "failed to remove artifact"), "path", u.path)
	}
	return nil
}

// packageUnit installs named packages through a package manager. It has nothing to download.
type packageUnit struct {
	res     *domain.Resource
	manager ports.PackageManager
}

func (u *packageUnit) Resource() *domain.Resource { return u.res }

func (u *packageUnit) ArtifactPath() string { return "" }

func (u *packageUnit) Download(_ context.Context) (domain.DownloadResult, error) {
	return domain.DownloadNotRequired, nil
}

func (u *packageUnit) Install(ctx context.Context, out io.Writer) error {
	err := u.manager.Install(ctx, domain.PackageRequest{
		Label:      u.res.Label.String(),
		Packages:   u.res.Packages,
		Repository: u.res.Repository,
	}, out)
	if err != nil {
		return withLabel(err, domain.ErrInstallFailed, u.res.Label.String())
	}
	return nil
}

func (u *packageUnit) Cleanup() error { return nil }

// withLabel makes err match sentinel and tags it with the resource label.
func withLabel(err, sentinel error, name string) error {
	if errors.Is(err, sentinel) {
		return domain.Tag(err, "label", name)
	}
	return domain.Because(sentinel, err, "label", name)
}

// artifactPath decides where the artifact of r lives.
func artifactPath(r *domain.Resource, downloadDir string) string {
	switch {
	case r.Downloaded:
		return strings.TrimPrefix(r.Source, "file://")
	case r.Destination != "":
		return r.Destination
	default:
		return filepath.Join(downloadDir, r.ArtifactName())
	}
}

// extractDir is the directory an archive is unpacked into, next to the archive itself.
func extractDir(u *artifactUnit) string {
	name := strings.NewReplacer("/", "-", "\\", "-").Replace(u.label())
	return filepath.Join(filepath.Dir(u.path), name)
}
