// Package linear provides a synchronous, line-buffered renderer for builds.
package linear

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/muesli/termenv"
	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
	"go.trai.ch/stall/internal/ui/output"
	"go.trai.ch/stall/internal/ui/style"
)

// prefixColors are assigned to resource prefixes by label hash.
var prefixColors = []termenv.ANSIColor{
	termenv.ANSICyan,
	termenv.ANSIMagenta,
	termenv.ANSIBlue,
	termenv.ANSIYellow,
	termenv.ANSIBrightCyan,
	termenv.ANSIBrightMagenta,
	termenv.ANSIBrightBlue,
}

// Renderer implements ports.Renderer with chronological, label-prefixed lines.
// Installer output goes to stdout; progress and the final report go to stderr.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	output *termenv.Output

	mu        sync.Mutex
	resources map[string]*resourceState
}

type resourceState struct {
	name      string
	startTime time.Time
	buffer    *bytes.Buffer
}

var _ ports.Renderer = (*Renderer)(nil)

// Option configures a Renderer.
type Option func(*Renderer)

// WithColorProfile selects the color profile used for prefixes and status symbols.
func WithColorProfile(profile func() termenv.Profile) Option {
	return func(r *Renderer) {
		r.output = output.NewWithProfile(r.stderr, profile)
	}
}

// NewRenderer creates a Renderer. Nil writers default to os.Stdout and os.Stderr.
func NewRenderer(stdout, stderr io.Writer, opts ...Option) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	r := &Renderer{
		stdout:    stdout,
		stderr:    stderr,
		resources: make(map[string]*resourceState),
	}
	r.output = output.NewWithProfile(stderr, output.ColorProfileANSI)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start is a no-op for the linear renderer.
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop flushes all remaining buffers.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, res := range r.resources {
		r.flushBufferLocked(res)
	}
	return nil
}

// Wait is a no-op for the linear renderer.
func (r *Renderer) Wait() error {
	return nil
}

// OnPlanEmit prints the build order.
func (r *Renderer) OnPlanEmit(labels []string, _ map[string][]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.stderr, "Planning to install %d resource(s): %s\n",
		len(labels), strings.Join(labels, ", "))
}

// OnResourceStart prints a start message.
func (r *Renderer) OnResourceStart(spanID, _, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resources[spanID] = &resourceState{
		name:      name,
		startTime: startTime,
		buffer:    new(bytes.Buffer),
	}
	_, _ = fmt.Fprintf(r.stderr, "%s Starting...\n", r.prefix(name))
}

// OnResourceLog buffers installer output and prints complete lines with the label prefix.
func (r *Renderer) OnResourceLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[spanID]
	if !ok {
		return
	}

	res.buffer.Write(data)
	for {
		idx := bytes.IndexByte(res.buffer.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := res.buffer.Next(idx + 1)
		r.printLineLocked(res.name, line)
	}
}

// OnResourceComplete flushes remaining output and prints the completion status.
func (r *Renderer) OnResourceComplete(spanID string, endTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[spanID]
	if !ok {
		return
	}
	r.flushBufferLocked(res)

	duration := endTime.Sub(res.startTime).Round(time.Millisecond)
	prefix := r.prefix(res.name)
	if err != nil {
		symbol := r.output.String(style.Cross).Foreground(termenv.ANSIRed).String()
		_, _ = fmt.Fprintf(r.stderr, "%s %s Failed after %v: %v\n", prefix, symbol, duration, err)
	} else {
		symbol := r.output.String(style.Check).Foreground(termenv.ANSIGreen).String()
		_, _ = fmt.Fprintf(r.stderr, "%s %s Completed in %v\n", prefix, symbol, duration)
	}

	delete(r.resources, spanID)
}

// OnReport prints one row per resource in build order followed by a summary line.
func (r *Renderer) OnReport(report *domain.OutcomeReport) {
	if report == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintln(r.stderr)
	tw := tabwriter.NewWriter(r.stderr, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RESOURCE\tKIND\tSTATE\tTIME\tDETAIL")
	for _, o := range report.Entries() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			o.Label, o.Kind, o.State, formatDuration(o.Duration), detail(o))
	}
	_ = tw.Flush()

	summary := fmt.Sprintf("%d installed, %d failed, %d skipped",
		report.Count(domain.StateInstalled),
		report.Count(domain.StateFailed),
		report.Count(domain.StateSkipped))

	var symbol termenv.Style
	switch {
	case report.Cancelled():
		symbol = r.output.String(style.Warning).Foreground(termenv.ANSIYellow)
		summary += " (cancelled)"
	case report.Succeeded():
		symbol = r.output.String(style.Check).Foreground(termenv.ANSIGreen)
	default:
		symbol = r.output.String(style.Cross).Foreground(termenv.ANSIRed)
	}
	_, _ = fmt.Fprintf(r.stderr, "\n%s %s\n", symbol.String(), summary)
}

func detail(o domain.Outcome) string {
	switch {
	case o.State == domain.StateInstalled && o.Cached:
		return "cached"
	case o.State == domain.StateInstalled:
		return strings.ReplaceAll(string(o.Download), "_", " ")
	case o.Reason != "":
		return fmt.Sprintf("%s: %s", o.Failure, o.Reason)
	default:
		return string(o.Failure)
	}
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}

// prefix renders the bracketed label in a color stable for that label.
func (r *Renderer) prefix(name string) string {
	color := prefixColors[xxhash.Sum64String(name)%uint64(len(prefixColors))]
	return r.output.String(fmt.Sprintf("[%s]", name)).Foreground(color).String()
}

// flushBufferLocked prints the remaining partial line. Must be called with r.mu held.
func (r *Renderer) flushBufferLocked(res *resourceState) {
	if res.buffer.Len() > 0 {
		r.printLineLocked(res.name, res.buffer.Bytes())
		res.buffer.Reset()
	}
}

// printLineLocked prints a line with the label prefix. Must be called with r.mu held.
func (r *Renderer) printLineLocked(name string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) == 0 {
		return
	}
	_, _ = fmt.Fprintf(r.stdout, "[%s] %s\n", name, line)
}
