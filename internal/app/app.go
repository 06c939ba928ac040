// Package app implements the application layer for stall.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/stall/internal/adapters/detector"
	"go.trai.ch/stall/internal/adapters/linear"
	"go.trai.ch/stall/internal/adapters/telemetry"
	"go.trai.ch/stall/internal/adapters/tui"
	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
	"go.trai.ch/stall/internal/engine/orchestrator"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var errOrchestratorPanic = zerr.New("orchestrator panicked")

// DefaultRetryBackoff is the wait between package-manager install attempts.
const DefaultRetryBackoff = 2 * time.Second

// App represents the main application logic.
type App struct {
	loader       ports.ResourceLoader
	catalog      ports.Catalog
	orchestrator *orchestrator.Orchestrator
	tracer       *telemetry.OTelTracer
	store        ports.ReceiptStore
	logger       ports.Logger

	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer
	detect      func() detector.OutputMode
	nixCacheDir string
	teaOptions  []tea.ProgramOption
}

// New creates a new App instance.
func New(
	loader ports.ResourceLoader,
	catalog ports.Catalog,
	orch *orchestrator.Orchestrator,
	tracer *telemetry.OTelTracer,
	store ports.ReceiptStore,
	log ports.Logger,
) *App {
	a := &App{
		loader:       loader,
		catalog:      catalog,
		orchestrator: orch,
		tracer:       tracer,
		store:        store,
		logger:       log,
		stdin:        os.Stdin,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		detect:       detector.DetectEnvironment,
	}
	if home, err := os.UserHomeDir(); err == nil {
		a.nixCacheDir = domain.DefaultNixHubCachePath(home)
	}
	return a
}

// WithIO replaces the streams used for prompts, installer output and reports.
func (a *App) WithIO(stdin io.Reader, stdout, stderr io.Writer) *App {
	a.stdin = stdin
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithNixCacheDir changes the NixHub cache directory removed by Clean.
func (a *App) WithNixCacheDir(dir string) *App {
	a.nixCacheDir = dir
	return a
}

// WithTeaOptions sets options for the interactive program.
func (a *App) WithTeaOptions(opts ...tea.ProgramOption) *App {
	a.teaOptions = opts
	return a
}

// WithDetector replaces terminal detection.
func (a *App) WithDetector(mode detector.OutputMode) *App {
	a.detect = func() detector.OutputMode { return mode }
	return a
}

// SetJSONLogs switches the logger to JSON output when it supports it.
func (a *App) SetJSONLogs(enable bool) {
	if l, ok := a.logger.(interface{ SetJSON(bool) }); ok {
		l.SetJSON(enable)
	}
}

// Sources names where the resources of a command come from.
type Sources struct {
	Files   []string
	Catalog []string
}

// BuildOptions configuration for the Build method.
type BuildOptions struct {
	Sources
	Accept      []string
	AcceptAll   bool
	Jobs        int
	Timeout     time.Duration
	Retries     int
	Force       bool
	DownloadDir string
	OutputMode  string
}

// Build installs every declared resource and returns the outcome report.
// A report with a resource that did not install is returned together with
// ErrBuildIncomplete, or ErrBuildCancelled when the build was interrupted.
//
//nolint:cyclop // orchestration function
func (a *App) Build(ctx context.Context, opts BuildOptions) (*domain.OutcomeReport, error) {
	// 1. Collect declarations
	set, err := a.collect(opts.Sources)
	if err != nil {
		return nil, err
	}

	// 2. Agreements
	if opts.AcceptAll {
		for _, label := range set.PendingAgreements() {
			set.Grant(label)
		}
	}
	for _, label := range opts.Accept {
		set.Grant(strings.TrimSpace(label))
	}

	mode := detector.ResolveMode(a.detect(), opts.OutputMode)
	if mode == detector.ModeInteractive {
		if err := a.promptAgreements(ctx, set); err != nil {
			return nil, err
		}
	}

	// 3. Renderer and telemetry
	var renderer ports.Renderer
	if mode == detector.ModeInteractive {
		renderer = tui.NewRenderer(a.stderr, a.teaOptions...)
	} else {
		renderer = linear.NewRenderer(a.stdout, a.stderr)
	}
	tracer := a.tracer.WithRenderer(renderer)

	// 4. Orchestrator
	orchOpts := []orchestrator.Option{
		orchestrator.WithTracer(tracer),
		orchestrator.WithTimeout(opts.Timeout),
		orchestrator.WithForce(opts.Force),
		orchestrator.WithDownloadDir(opts.DownloadDir),
		orchestrator.WithRetry(orchestrator.RetryPolicy{Attempts: opts.Retries, Backoff: DefaultRetryBackoff}),
	}
	if opts.Jobs > 0 {
		orchOpts = append(orchOpts, orchestrator.WithJobs(opts.Jobs))
	}
	orch := a.orchestrator.With(orchOpts...)

	// 5. Run renderer and orchestrator concurrently
	var report *domain.OutcomeReport
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := renderer.Start(gctx); err != nil {
			return err
		}
		return renderer.Wait()
	})

	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				_, _ = fmt.Fprintf(a.stderr, "Orchestrator panic: %v\n", r)
				err = domain.Tag(errOrchestratorPanic, "panic", fmt.Sprint(r))
			}
			if report != nil {
				renderer.OnReport(report)
			}
			_ = renderer.Stop()
		}()

		report, err = orch.Build(gctx, set)
		return err
	})

	// Quitting the interactive view cancels the build; the report still describes what ran.
	if err := g.Wait(); err != nil && (report == nil || !errors.Is(err, domain.ErrBuildCancelled)) {
		return nil, err
	}

	switch {
	case report.Cancelled():
		return report, domain.ErrBuildCancelled
	case !report.Succeeded():
		return report, domain.ErrBuildIncomplete
	default:
		return report, nil
	}
}

// PlanOptions configuration for the Plan method.
type PlanOptions struct {
	Sources
	Format string
}

// Plan resolves the declared resources and prints the build order without installing anything.
func (a *App) Plan(_ context.Context, opts PlanOptions) error {
	set, err := a.collect(opts.Sources)
	if err != nil {
		return err
	}

	graph, err := domain.Resolve(set)
	if err != nil {
		return err
	}

	switch strings.ToLower(opts.Format) {
	case "", "text":
		return writePlan(a.stdout, graph, set.Agreements())
	case "dot":
		_, err = io.WriteString(a.stdout, graph.DOT())
	case "mermaid":
		_, err = io.WriteString(a.stdout, graph.Mermaid())
	default:
		return domain.Tag(domain.ErrUnsupportedPlanFormat, "format", opts.Format)
	}
	return err
}

func writePlan(w io.Writer, graph *domain.Graph, agreements domain.Agreements) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tRESOURCE\tKIND\tDEPENDS ON\tNOTE")

	i := 0
	for r := range graph.Walk() {
		i++
		deps := strings.Join(domain.Strings(graph.Dependencies(r.Label)), ", ")
		if deps == "" {
			deps = "-"
		}
		note := "-"
		if domain.CheckAgreement(r, agreements) == domain.GateBlocked {
			note = "agreement required"
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, r.Label, r.Kind, deps, note)
	}
	return tw.Flush()
}

// ListCatalog prints the catalog entries available on this platform.
func (a *App) ListCatalog(_ context.Context) error {
	_, _ = fmt.Fprintf(a.stdout, "Catalog for %s:\n\n", a.catalog.Platform())

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tKIND\tDESCRIPTION")
	for _, e := range a.catalog.Entries() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.Kind, e.Description)
	}
	return tw.Flush()
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	Receipts bool
	Cache    bool
}

// Clean removes install receipts and cached package metadata.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	var errs error

	if options.Receipts {
		a.logger.Info("removing install receipts...")
		if err := a.store.Clear(); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, "failed to remove install receipts"))
		} else {
			a.logger.Info("removed install receipts")
		}
	}

	if options.Cache && a.nixCacheDir != "" {
		a.logger.Info("removing nix package cache...")
		if err := os.RemoveAll(a.nixCacheDir); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, "failed to remove nix package cache"))
		} else {
			a.logger.Info("removed nix package cache")
		}
	}

	return errs
}

// collect loads every file in order and appends the selected catalog entries.
func (a *App) collect(src Sources) (*domain.BuildSet, error) {
	set := domain.NewBuildSet()

	for _, path := range src.Files {
		loaded, err := a.loader.Load(path)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to load resources"), "path", path)
		}
		set.Merge(loaded)
	}

	if len(src.Catalog) > 0 {
		selected, err := a.catalog.Select(src.Catalog)
		if err != nil {
			return nil, err
		}
		set.Merge(selected)
	}

	if set.Len() == 0 {
		return nil, domain.ErrNoResources
	}
	return set, nil
}

// promptAgreements asks once per resource whose agreement is still missing.
// Only "y" and "yes" grant; end of input declines the remaining agreements.
func (a *App) promptAgreements(ctx context.Context, set *domain.BuildSet) error {
	pending := set.PendingAgreements()
	if len(pending) == 0 {
		return nil
	}

	scanner := bufio.NewScanner(a.stdin)
	for _, label := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, _ = fmt.Fprintf(a.stderr, "%s requires accepting its license agreement. Accept? [y/N]: ", label)
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(a.stderr)
			break
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			set.Grant(label)
		default:
			a.logger.Warn(fmt.Sprintf("agreement for %s declined, it will not be installed", label))
		}
	}
	return scanner.Err()
}
