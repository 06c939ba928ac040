package resource

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
)

// Factory builds units for resources, dispatching on the resource kind.
type Factory struct {
	fetcher     ports.Fetcher
	extractor   ports.Extractor
	runner      ports.CommandRunner
	managers    map[string]ports.PackageManager
	downloadDir string
}

// NewFactory creates a Factory. Managers are looked up by their Name.
func NewFactory(
	fetcher ports.Fetcher,
	extractor ports.Extractor,
	runner ports.CommandRunner,
	managers []ports.PackageManager,
	downloadDir string,
) *Factory {
	byName := make(map[string]ports.PackageManager, len(managers))
	for _, m := range managers {
		if m != nil {
			byName[m.Name()] = m
		}
	}
	return &Factory{
		fetcher:     fetcher,
		extractor:   extractor,
		runner:      runner,
		managers:    byName,
		downloadDir: downloadDir,
	}
}

// WithDownloadDir returns a copy of f that places artifacts in dir.
func (f *Factory) WithDownloadDir(dir string) *Factory {
	out := *f
	out.downloadDir = dir
	return &out
}

// DownloadDir returns the directory artifacts are fetched into.
func (f *Factory) DownloadDir() string {
	return f.downloadDir
}

// New returns the unit for r.
func (f *Factory) New(r *domain.Resource) (Unit, error) {
	if r.Kind.IsPackageSet() {
		manager, err := f.manager(r)
		if err != nil {
			return nil, err
		}
		return &packageUnit{res: r, manager: manager}, nil
	}

	u := &artifactUnit{
		res:     r,
		fetcher: f.fetcher,
		path:    artifactPath(r, f.downloadDir),
	}

	switch r.Kind {
	case domain.KindExe:
		u.install = f.installExe
	case domain.KindMSI:
		u.install = f.installMSI
	case domain.KindZip, domain.KindTarball:
		u.install = f.extract
	case domain.KindStatic:
		u.install = func(context.Context, *artifactUnit, io.Writer) error { return nil }
	case domain.KindDeb:
		manager, err := f.manager(r)
		if err != nil {
			return nil, err
		}
		u.install = func(ctx context.Context, u *artifactUnit, out io.Writer) error {
			return manager.Install(ctx, domain.PackageRequest{
				Label: u.label(),
				Files: []string{u.path},
			}, out)
		}
	default:
		return nil, domain.Tag(domain.ErrUnknownResourceType, "label", r.Label.String(), "type", string(r.Kind))
	}
	return u, nil
}

func (f *Factory) manager(r *domain.Resource) (ports.PackageManager, error) {
	name := r.Kind.Manager()
	m, ok := f.managers[name]
	if !ok {
		return nil, domain.Tag(domain.ErrPackageManagerNotFound, "label", r.Label.String(), "manager", name)
	}
	return m, nil
}

func (f *Factory) installExe(ctx context.Context, u *artifactUnit, out io.Writer) error {
	if err := os.Chmod(u.path, domain.ExecPerm); err != nil {
		return err
	}
	return f.runner.Run(ctx, domain.Command{
		Name: u.path,
		Args: u.res.Arguments,
		Dir:  filepath.Dir(u.path),
	}, out, out)
}

func (f *Factory) installMSI(ctx context.Context, u *artifactUnit, out io.Writer) error {
	args := append([]string{"/i", u.path}, u.res.Arguments...)
	return f.runner.Run(ctx, domain.Command{
		Name: domain.ManagerMSIExec,
		Args: args,
		Dir:  filepath.Dir(u.path),
	}, out, out)
}

func (f *Factory) extract(ctx context.Context, u *artifactUnit, _ io.Writer) error {
	return f.extractor.Extract(ctx, u.path, extractDir(u))
}
