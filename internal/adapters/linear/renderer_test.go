package linear_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stall/internal/adapters/linear"
	"go.trai.ch/stall/internal/core/domain"
)

func newRenderer(t *testing.T) (*linear.Renderer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	var stdout, stderr bytes.Buffer
	return linear.NewRenderer(&stdout, &stderr), &stdout, &stderr
}

func TestRenderer_ResourceLifecycle(t *testing.T) {
	r, stdout, stderr := newRenderer(t)
	require.NoError(t, r.Start(context.Background()))

	r.OnPlanEmit([]string{"libc", "git"}, map[string][]string{"git": {"libc"}})
	assert.Contains(t, stderr.String(), "Planning to install 2 resource(s): libc, git")

	start := time.Now()
	r.OnResourceStart("span1", "", "git", start)
	assert.Contains(t, stderr.String(), "[git] Starting...")

	r.OnResourceLog("span1", []byte("Reading package lists...\n"))
	r.OnResourceLog("span1", []byte("Setting up git\n"))
	assert.Equal(t, "[git] Reading package lists...\n[git] Setting up git\n", stdout.String())

	r.OnResourceComplete("span1", start.Add(120*time.Millisecond), nil)
	assert.Contains(t, stderr.String(), "[git] ✓ Completed in 120ms")

	require.NoError(t, r.Stop())
	require.NoError(t, r.Wait())
}

func TestRenderer_PartialLines(t *testing.T) {
	r, stdout, _ := newRenderer(t)

	start := time.Now()
	r.OnResourceStart("span1", "", "go", start)

	r.OnResourceLog("span1", []byte("partial"))
	assert.Empty(t, stdout.String())

	r.OnResourceLog("span1", []byte(" line\nunflushed"))
	assert.Equal(t, "[go] partial line\n", stdout.String())

	r.OnResourceComplete("span1", start.Add(time.Millisecond), nil)
	assert.Equal(t, "[go] partial line\n[go] unflushed\n", stdout.String())
}

func TestRenderer_ResourceError(t *testing.T) {
	r, _, stderr := newRenderer(t)

	start := time.Now()
	r.OnResourceStart("span1", "", "steam", start)
	r.OnResourceComplete("span1", start.Add(50*time.Millisecond), errors.New("agreement required"))

	assert.Contains(t, stderr.String(), "[steam] ✗ Failed after 50ms: agreement required")
}

func TestRenderer_ConcurrentResources(t *testing.T) {
	r, stdout, _ := newRenderer(t)

	start := time.Now()
	r.OnResourceStart("span1", "", "a", start)
	r.OnResourceStart("span2", "", "b", start)

	r.OnResourceLog("span1", []byte("a1\n"))
	r.OnResourceLog("span2", []byte("b1\n"))
	r.OnResourceLog("span1", []byte("a2\n"))

	assert.Equal(t, "[a] a1\n[b] b1\n[a] a2\n", stdout.String())
}

func TestRenderer_UnknownSpan(t *testing.T) {
	r, stdout, stderr := newRenderer(t)

	r.OnResourceLog("ghost", []byte("ignored\n"))
	r.OnResourceComplete("ghost", time.Now(), nil)

	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestRenderer_EmptyLines(t *testing.T) {
	r, stdout, _ := newRenderer(t)

	r.OnResourceStart("span1", "", "a", time.Now())
	r.OnResourceLog("span1", []byte("\n\r\n"))

	assert.Empty(t, stdout.String())
}

func TestRenderer_StopFlushesBuffers(t *testing.T) {
	r, stdout, _ := newRenderer(t)

	r.OnResourceStart("span1", "", "a", time.Now())
	r.OnResourceLog("span1", []byte("pending"))
	require.NoError(t, r.Stop())

	assert.Equal(t, "[a] pending\n", stdout.String())
}

func TestRenderer_NoColor(t *testing.T) {
	r, _, stderr := newRenderer(t)

	start := time.Now()
	r.OnResourceStart("span1", "", "a", start)
	r.OnResourceComplete("span1", start, nil)

	assert.NotContains(t, stderr.String(), "\x1b[")
}

func TestRenderer_PrefixColorIsStable(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	var stderr bytes.Buffer
	r := linear.NewRenderer(&bytes.Buffer{}, &stderr, linear.WithColorProfile(func() termenv.Profile {
		return termenv.ANSI
	}))

	start := time.Now()
	r.OnResourceStart("span1", "", "git", start)
	first := stderr.String()
	stderr.Reset()
	r.OnResourceStart("span2", "", "git", start)

	assert.Equal(t, first, stderr.String())
	assert.Contains(t, first, "\x1b[")
}

func TestRenderer_OnReport(t *testing.T) {
	g := goldie.New(t)

	t.Run("mixed outcome", func(t *testing.T) {
		r, _, stderr := newRenderer(t)
		r.OnReport(domain.NewOutcomeReport([]domain.Outcome{
			{
				Label: "git", Kind: domain.KindApt, State: domain.StateInstalled,
				Download: domain.DownloadNotRequired, Duration: 1500 * time.Millisecond,
			},
			{Label: "fonts", Kind: domain.KindZip, State: domain.StateInstalled, Cached: true},
			{
				Label: "steam", Kind: domain.KindExe, State: domain.StateFailed,
				Failure: domain.FailureAgreement, Reason: "agreement required",
				Download: domain.DownloadFetched, Duration: 250 * time.Millisecond,
			},
			{
				Label: "games", Kind: domain.KindZip, State: domain.StateSkipped,
				Failure: domain.FailureDependency, Reason: "dependency steam failed",
			},
		}, false))

		g.Assert(t, "report_mixed", stderr.Bytes())
	})

	t.Run("cancelled", func(t *testing.T) {
		r, _, stderr := newRenderer(t)
		r.OnReport(domain.NewOutcomeReport([]domain.Outcome{
			{
				Label: "git", Kind: domain.KindApt, State: domain.StateInstalled,
				Download: domain.DownloadNotRequired, Duration: 2 * time.Second,
			},
			{Label: "vscode", Kind: domain.KindDeb, State: domain.StateSkipped, Failure: domain.FailureCancelled},
		}, true))

		g.Assert(t, "report_cancelled", stderr.Bytes())
	})

	t.Run("nil report", func(t *testing.T) {
		r, _, stderr := newRenderer(t)
		r.OnReport(nil)
		assert.Empty(t, strings.TrimSpace(stderr.String()))
	})
}
