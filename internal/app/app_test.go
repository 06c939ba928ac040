package app_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stall/internal/adapters/detector"
	"go.trai.ch/stall/internal/adapters/fs"
	"go.trai.ch/stall/internal/adapters/telemetry"
	"go.trai.ch/stall/internal/app"
	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
	"go.trai.ch/stall/internal/core/ports/mocks"
	"go.trai.ch/stall/internal/engine/orchestrator"
	"go.trai.ch/stall/internal/engine/resource"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	loader  *mocks.MockResourceLoader
	catalog *mocks.MockCatalog
	apt     *mocks.MockPackageManager
	store   *mocks.MockReceiptStore
	logger  *mocks.MockLogger
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	app     *app.App
}

func newFixture(t *testing.T, stdin string) *fixture {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	ctrl := gomock.NewController(t)
	f := &fixture{
		loader:  mocks.NewMockResourceLoader(ctrl),
		catalog: mocks.NewMockCatalog(ctrl),
		apt:     mocks.NewMockPackageManager(ctrl),
		store:   mocks.NewMockReceiptStore(ctrl),
		logger:  mocks.NewMockLogger(ctrl),
		stdout:  new(bytes.Buffer),
		stderr:  new(bytes.Buffer),
	}
	f.apt.EXPECT().Name().Return(domain.ManagerApt).AnyTimes()
	f.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	f.logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	factory := resource.NewFactory(nil, nil, nil, []ports.PackageManager{f.apt}, t.TempDir())
	orch := orchestrator.New(factory, telemetry.NewNoOpTracer(), nil, fs.NewHasher(), f.logger)

	f.app = app.New(f.loader, f.catalog, orch, telemetry.NewOTelTracer("stall-test"), f.store, f.logger).
		WithIO(strings.NewReader(stdin), f.stdout, f.stderr).
		WithDetector(detector.ModeLinear).
		WithTeaOptions(tea.WithInput(nil), tea.WithoutSignalHandler(), tea.WithoutRenderer())
	return f
}

func apt(t *testing.T, label string, agreement bool, deps ...string) *domain.Resource {
	t.Helper()
	r, err := domain.NewResource(domain.Resource{
		Label:             domain.NewInternedString(label),
		Kind:              domain.KindApt,
		Packages:          []string{label},
		RequiresAgreement: agreement,
		Dependencies:      domain.NewInternedStrings(deps),
	})
	require.NoError(t, err)
	return r
}

func files(paths ...string) app.Sources {
	return app.Sources{Files: paths}
}

func TestApp_Build(t *testing.T) {
	f := newFixture(t, "")
	f.loader.EXPECT().Load("resources.yml").
		Return(domain.NewBuildSet(apt(t, "editor", false, "git"), apt(t, "git", false)), nil)
	f.apt.EXPECT().Install(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	report, err := f.app.Build(context.Background(), app.BuildOptions{Sources: files("resources.yml"), Jobs: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"git", "editor"}, report.Labels())
	assert.Contains(t, f.stderr.String(), "Planning to install 2 resource(s): git, editor")
	assert.Contains(t, f.stderr.String(), "2 installed, 0 failed, 0 skipped")
}

func TestApp_Build_MergesFilesAndCatalog(t *testing.T) {
	f := newFixture(t, "")
	f.loader.EXPECT().Load("a.yml").Return(domain.NewBuildSet(apt(t, "a", false)), nil)
	f.loader.EXPECT().Load("b.hcl").Return(domain.NewBuildSet(apt(t, "b", false)), nil)
	f.catalog.EXPECT().Select([]string{"git"}).Return(domain.NewBuildSet(apt(t, "git", false)), nil)
	f.apt.EXPECT().Install(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)

	report, err := f.app.Build(context.Background(), app.BuildOptions{
		Sources: app.Sources{Files: []string{"a.yml", "b.hcl"}, Catalog: []string{"git"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "git"}, report.Labels())
}

func TestApp_Build_NoResources(t *testing.T) {
	f := newFixture(t, "")

	report, err := f.app.Build(context.Background(), app.BuildOptions{})
	require.ErrorIs(t, err, domain.ErrNoResources)
	assert.Nil(t, report)
}

func TestApp_Build_LoadError(t *testing.T) {
	f := newFixture(t, "")
	f.loader.EXPECT().Load("broken.yml").
		Return(nil, domain.Tag(domain.ErrMissingField, "field", "packages", "label", "git"))

	_, err := f.app.Build(context.Background(), app.BuildOptions{Sources: files("broken.yml")})
	require.ErrorIs(t, err, domain.ErrMissingField)
	assert.Equal(t, "broken.yml", domain.Metadata(err)["path"])
	assert.Equal(t, "packages", domain.Metadata(err)["field"])
}

func TestApp_Build_CycleRunsNothing(t *testing.T) {
	f := newFixture(t, "")
	f.loader.EXPECT().Load("cycle.yml").
		Return(domain.NewBuildSet(apt(t, "A", false, "B"), apt(t, "B", false, "A")), nil)

	report, err := f.app.Build(context.Background(), app.BuildOptions{Sources: files("cycle.yml")})
	require.ErrorIs(t, err, domain.ErrCyclicDependency)
	assert.Nil(t, report)
}

func TestApp_Build_Agreements(t *testing.T) {
	gated := func(t *testing.T) *domain.BuildSet {
		return domain.NewBuildSet(apt(t, "steam", true), apt(t, "git", false))
	}

	t.Run("missing agreement fails the resource", func(t *testing.T) {
		f := newFixture(t, "")
		f.loader.EXPECT().Load("r.yml").Return(gated(t), nil)
		f.apt.EXPECT().Install(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)

		report, err := f.app.Build(context.Background(), app.BuildOptions{Sources: files("r.yml")})
		require.ErrorIs(t, err, domain.ErrBuildIncomplete)

		steam, ok := report.Get("steam")
		require.True(t, ok)
		assert.Equal(t, domain.FailureAgreement, steam.Failure)
		assert.NotContains(t, f.stderr.String(), "Accept?")
	})

	t.Run("accept flag grants", func(t *testing.T) {
		f := newFixture(t, "")
		f.loader.EXPECT().Load("r.yml").Return(gated(t), nil)
		f.apt.EXPECT().Install(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

		_, err := f.app.Build(context.Background(), app.BuildOptions{Sources: files("r.yml"), Accept: []string{"steam"}})
		require.NoError(t, err)
	})

	t.Run("accept all grants", func(t *testing.T) {
		f := newFixture(t, "")
		f.loader.EXPECT().Load("r.yml").Return(gated(t), nil)
		f.apt.EXPECT().Install(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

		_, err := f.app.Build(context.Background(), app.BuildOptions{Sources: files("r.yml"), AcceptAll: true})
		require.NoError(t, err)
	})

	t.Run("interactive yes grants", func(t *testing.T) {
		f := newFixture(t, "yes\n")
		f.app.WithDetector(detector.ModeInteractive)
		f.loader.EXPECT().Load("r.yml").Return(gated(t), nil)
		f.apt.EXPECT().Install(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

		_, err := f.app.Build(context.Background(), app.BuildOptions{Sources: files("r.yml")})
		require.NoError(t, err)
		assert.Contains(t, f.stderr.String(), "steam requires accepting its license agreement. Accept? [y/N]: ")
		assert.Contains(t, f.stderr.String(), "2 installed, 0 failed, 0 skipped")
	})

	t.Run("interactive no declines", func(t *testing.T) {
		f := newFixture(t, "n\n")
		f.app.WithDetector(detector.ModeInteractive)
		f.loader.EXPECT().Load("r.yml").Return(gated(t), nil)
		f.apt.EXPECT().Install(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)

		_, err := f.app.Build(context.Background(), app.BuildOptions{Sources: files("r.yml")})
		require.ErrorIs(t, err, domain.ErrBuildIncomplete)
	})

	t.Run("linear flag never prompts", func(t *testing.T) {
		f := newFixture(t, "y\n")
		f.app.WithDetector(detector.ModeInteractive)
		f.loader.EXPECT().Load("r.yml").Return(gated(t), nil)
		f.apt.EXPECT().Install(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)

		_, err := f.app.Build(context.Background(), app.BuildOptions{Sources: files("r.yml"), OutputMode: "ci"})
		require.ErrorIs(t, err, domain.ErrBuildIncomplete)
		assert.NotContains(t, f.stderr.String(), "Accept?")
	})
}

func TestApp_Build_InstallFailure(t *testing.T) {
	f := newFixture(t, "")
	f.loader.EXPECT().Load("r.yml").
		Return(domain.NewBuildSet(apt(t, "A", false), apt(t, "B", false, "A")), nil)
	f.apt.EXPECT().Install(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("dpkg locked"))

	report, err := f.app.Build(context.Background(), app.BuildOptions{Sources: files("r.yml")})
	require.ErrorIs(t, err, domain.ErrBuildIncomplete)

	b, _ := report.Get("B")
	assert.Equal(t, domain.StateSkipped, b.State)
	assert.Contains(t, f.stderr.String(), "0 installed, 1 failed, 1 skipped")
}

func TestApp_Build_Cancelled(t *testing.T) {
	f := newFixture(t, "")
	f.loader.EXPECT().Load("r.yml").Return(domain.NewBuildSet(apt(t, "A", false)), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.app.Build(ctx, app.BuildOptions{Sources: files("r.yml")})
	require.ErrorIs(t, err, domain.ErrBuildCancelled)
	assert.True(t, report.Cancelled())
	assert.Contains(t, f.stderr.String(), "(cancelled)")
}

func TestApp_Plan(t *testing.T) {
	set := func(t *testing.T) *domain.BuildSet {
		return domain.NewBuildSet(apt(t, "app", false, "runtime"), apt(t, "runtime", false), apt(t, "steam", true))
	}

	t.Run("text", func(t *testing.T) {
		f := newFixture(t, "")
		f.loader.EXPECT().Load("r.yml").Return(set(t), nil)

		require.NoError(t, f.app.Plan(context.Background(), app.PlanOptions{Sources: files("r.yml")}))

		lines := strings.Split(strings.TrimSpace(f.stdout.String()), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, []string{"#", "RESOURCE", "KIND", "DEPENDS", "ON", "NOTE"}, strings.Fields(lines[0]))
		assert.Equal(t, []string{"1", "runtime", "apt", "-", "-"}, strings.Fields(lines[1]))
		assert.Equal(t, []string{"2", "app", "apt", "runtime", "-"}, strings.Fields(lines[2]))
		assert.Equal(t, []string{"3", "steam", "apt", "-", "agreement", "required"}, strings.Fields(lines[3]))
	})

	for _, format := range []string{"dot", "mermaid"} {
		t.Run(format, func(t *testing.T) {
			f := newFixture(t, "")
			f.loader.EXPECT().Load("r.yml").Return(set(t), nil)

			require.NoError(t, f.app.Plan(context.Background(), app.PlanOptions{Sources: files("r.yml"), Format: format}))

			graph, err := domain.Resolve(set(t))
			require.NoError(t, err)
			want := graph.DOT()
			if format == "mermaid" {
				want = graph.Mermaid()
			}
			assert.Equal(t, want, f.stdout.String())
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		f := newFixture(t, "")
		f.loader.EXPECT().Load("r.yml").Return(set(t), nil)

		err := f.app.Plan(context.Background(), app.PlanOptions{Sources: files("r.yml"), Format: "svg"})
		require.ErrorIs(t, err, domain.ErrUnsupportedPlanFormat)
		assert.Equal(t, "svg", domain.Metadata(err)["format"])
	})
}

func TestApp_ListCatalog(t *testing.T) {
	f := newFixture(t, "")
	f.catalog.EXPECT().Platform().Return("debian")
	f.catalog.EXPECT().Entries().Return([]ports.CatalogEntry{
		{Name: "git", Kind: domain.KindPPA, Description: "Distributed version control"},
		{Name: "micro", Kind: domain.KindApt, Description: "Terminal text editor"},
	})

	require.NoError(t, f.app.ListCatalog(context.Background()))

	out := f.stdout.String()
	assert.Contains(t, out, "Catalog for debian:")
	assert.Contains(t, out, "Distributed version control")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{"micro", "apt", "Terminal", "text", "editor"}, strings.Fields(lines[len(lines)-1]))
}

func TestApp_Clean(t *testing.T) {
	t.Run("receipts", func(t *testing.T) {
		f := newFixture(t, "")
		f.store.EXPECT().Clear().Return(nil)

		require.NoError(t, f.app.Clean(context.Background(), app.CleanOptions{Receipts: true}))
	})

	t.Run("cache", func(t *testing.T) {
		f := newFixture(t, "")
		dir := filepath.Join(t.TempDir(), "nixhub")
		require.NoError(t, os.MkdirAll(dir, 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "git.json"), []byte("{}"), 0o600))
		f.app.WithNixCacheDir(dir)

		require.NoError(t, f.app.Clean(context.Background(), app.CleanOptions{Cache: true}))
		assert.NoDirExists(t, dir)
	})

	t.Run("store failure is reported", func(t *testing.T) {
		f := newFixture(t, "")
		f.store.EXPECT().Clear().Return(domain.ErrStoreWriteFailed)
		f.app.WithNixCacheDir(t.TempDir())

		err := f.app.Clean(context.Background(), app.CleanOptions{Receipts: true, Cache: true})
		require.ErrorIs(t, err, domain.ErrStoreWriteFailed)
	})
}
