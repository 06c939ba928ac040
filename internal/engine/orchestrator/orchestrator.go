// Package orchestrator drives a resolved build set through download, agreement and install.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
	"go.trai.ch/stall/internal/engine/resource"
)

// RootSpanName names the span that parents every resource span of a build.
const RootSpanName = "build"

// RetryPolicy re-runs failed package-manager installs.
type RetryPolicy struct {
	// Attempts is the number of extra attempts after the first failure.
	Attempts int
	// Backoff is the wait before each extra attempt.
	Backoff time.Duration
}

// Orchestrator runs builds. One Orchestrator may run several builds, one at a time or concurrently.
type Orchestrator struct {
	factory *resource.Factory
	tracer  ports.Tracer
	store   ports.ReceiptStore
	hasher  ports.Hasher
	logger  ports.Logger

	jobs    int
	timeout time.Duration
	force   bool
	retry   RetryPolicy

	locks *keyedMutex
	now   func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithJobs limits how many resources are processed at once. Values below one mean one.
func WithJobs(n int) Option {
	return func(o *Orchestrator) {
		o.jobs = max(n, 1)
	}
}

// WithTimeout bounds each download and each install. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// WithForce ignores install receipts.
func WithForce(force bool) Option {
	return func(o *Orchestrator) {
		o.force = force
	}
}

// WithRetry sets the retry policy for package-manager installs.
func WithRetry(policy RetryPolicy) Option {
	return func(o *Orchestrator) {
		o.retry = policy
	}
}

// WithTracer replaces the tracer spans and plan events are sent to.
func WithTracer(tracer ports.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

// WithDownloadDir changes where artifacts without a destination are stored.
func WithDownloadDir(dir string) Option {
	return func(o *Orchestrator) {
		if dir != "" {
			o.factory = o.factory.WithDownloadDir(dir)
		}
	}
}

// New creates an Orchestrator. A nil store disables receipts.
func New(
	factory *resource.Factory,
	tracer ports.Tracer,
	store ports.ReceiptStore,
	hasher ports.Hasher,
	logger ports.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		factory: factory,
		tracer:  tracer,
		store:   store,
		hasher:  hasher,
		logger:  logger,
		jobs:    runtime.NumCPU(),
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// With returns a copy of o with opts applied. The copy shares the manager locks of o.
func (o *Orchestrator) With(opts ...Option) *Orchestrator {
	c := *o
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Build resolves set and processes every resource. Resolution errors abort the build before
// any work starts and are the only errors returned; per-resource failures are in the report.
func (o *Orchestrator) Build(ctx context.Context, set *domain.BuildSet) (*domain.OutcomeReport, error) {
	graph, err := domain.Resolve(set)
	if err != nil {
		return nil, err
	}

	units := make(map[domain.InternedString]resource.Unit, graph.ResourceCount())
	for r := range graph.Walk() {
		u, err := o.factory.New(r)
		if err != nil {
			return nil, err
		}
		units[r.Label] = u
	}

	ctx, root := o.tracer.Start(ctx, RootSpanName)
	defer root.End()

	order := graph.Order()
	deps := make(map[string][]string, len(order))
	for _, label := range order {
		deps[label.String()] = domain.Strings(graph.Dependencies(label))
	}
	o.tracer.EmitPlan(ctx, domain.Strings(order), deps)
	root.SetAttribute("stall.resources", len(order))

	state := o.newRunState(ctx, graph, units, set.Agreements())
	state.runLoop()
	report := state.report()

	if report.Cancelled() {
		root.RecordError(domain.ErrBuildCancelled)
	} else if !report.Succeeded() {
		root.RecordError(domain.ErrBuildIncomplete)
	}
	return report, nil
}

// process takes one resource from declared to a terminal state. It runs on a worker
// goroutine with a context that is not cancelled by the caller.
func (o *Orchestrator) process(ctx context.Context, u resource.Unit, agreements domain.Agreements) domain.Outcome {
	r := u.Resource()
	label := r.Label.String()
	start := o.now()

	ctx, span := o.tracer.Start(ctx, label, ports.WithKind(string(r.Kind)))
	defer span.End()

	lc := domain.NewLifecycle(r.Label)
	outcome := domain.Outcome{Label: label, Kind: r.Kind}
	finish := func(failure domain.FailureKind, err error) domain.Outcome {
		if err != nil {
			span.RecordError(err)
			outcome.Err = err
			outcome.Reason = err.Error()
			outcome.Failure = failure
			_ = lc.Advance(domain.StateFailed)
		}
		outcome.State = lc.State()
		outcome.Duration = o.now().Sub(start)
		return outcome
	}

	// A receipt never stands in for a missing agreement.
	blocked := domain.CheckAgreement(r, agreements) == domain.GateBlocked

	fingerprint := ""
	if o.store != nil {
		fingerprint = o.hasher.Fingerprint(r)
		if !blocked && o.hasReceipt(label, fingerprint) {
			span.SetAttribute("stall.cached", true)
			_ = lc.Advance(domain.StateInstalled)
			outcome.Cached = true
			return finish(domain.FailureNone, nil)
		}
	}

	_ = lc.Advance(domain.StateDownloading)
	download, err := o.download(ctx, u)
	outcome.Download = download
	if err != nil {
		return finish(domain.FailureFetch, err)
	}
	_ = lc.Advance(domain.StateDownloaded)
	span.SetAttribute("stall.download", string(download))

	if r.RequiresAgreement {
		_ = lc.Advance(domain.StateAwaitingAgreement)
		if blocked {
			return finish(domain.FailureAgreement, domain.Tag(domain.ErrAgreementRequired, "label", label))
		}
	}

	_ = lc.Advance(domain.StateInstalling)
	if err := o.install(ctx, u, span); err != nil {
		return finish(domain.FailureInstall, err)
	}
	_ = lc.Advance(domain.StateInstalled)

	o.recordReceipt(u, fingerprint)
	if err := u.Cleanup(); err != nil {
		o.logger.Warn(fmt.Sprintf("%s: %v", label, err))
	}
	return finish(domain.FailureNone, nil)
}

func (o *Orchestrator) download(ctx context.Context, u resource.Unit) (domain.DownloadResult, error) {
	ctx, cancel := o.stepContext(ctx)
	defer cancel()

	result, err := u.Download(ctx)
	return result, o.annotateTimeout(ctx, err)
}

// install runs the install step under the manager lock of the resource kind,
// retrying package-manager installs according to the retry policy.
func (o *Orchestrator) install(ctx context.Context, u resource.Unit, span ports.Span) error {
	r := u.Resource()
	attempts := 1
	if r.Kind.Manager() == domain.ManagerApt || r.Kind.Manager() == domain.ManagerNix {
		attempts += max(o.retry.Attempts, 0)
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			o.logger.Warn(fmt.Sprintf("%s: install failed, retrying (%d/%d)", r.Label, attempt-1, attempts-1))
			span.SetAttribute("stall.attempt", attempt)
			if o.retry.Backoff > 0 {
				time.Sleep(o.retry.Backoff)
			}
		}
		err = o.installOnce(ctx, u, span)
		if err == nil {
			return nil
		}
	}
	return err
}

func (o *Orchestrator) installOnce(ctx context.Context, u resource.Unit, span ports.Span) error {
	unlock := o.locks.Lock(u.Resource().Kind.Manager())
	defer unlock()

	ctx, cancel := o.stepContext(ctx)
	defer cancel()

	return o.annotateTimeout(ctx, u.Install(ctx, span))
}

func (o *Orchestrator) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.timeout)
}

func (o *Orchestrator) annotateTimeout(ctx context.Context, err error) error {
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.Tag(err, "timeout", o.timeout.String())
	}
	return err
}

func (o *Orchestrator) hasReceipt(label, fingerprint string) bool {
	if o.force {
		return false
	}
	receipt, err := o.store.Get(label)
	if err != nil {
		o.logger.Warn(fmt.Sprintf("%s: ignoring unreadable receipt: %v", label, err))
		return false
	}
	return receipt != nil && receipt.Fingerprint == fingerprint
}

func (o *Orchestrator) recordReceipt(u resource.Unit, fingerprint string) {
	if o.store == nil {
		return
	}
	r := u.Resource()

	var artifactHash string
	if path := u.ArtifactPath(); path != "" {
		h, err := o.hasher.ComputeFileHash(path)
		if err != nil {
			o.logger.Warn(fmt.Sprintf("%s: %v", r.Label, err))
		}
		artifactHash = h
	}

	err := o.store.Put(domain.Receipt{
		Label:        r.Label.String(),
		Kind:         r.Kind,
		Fingerprint:  fingerprint,
		ArtifactHash: artifactHash,
		InstalledAt:  o.now(),
	})
	if err != nil {
		o.logger.Warn(fmt.Sprintf("%s: failed to store receipt: %v", r.Label, err))
	}
}
