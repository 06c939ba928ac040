// Package tui renders an interactive build as a resource list beside a live log pane.
package tui

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/stall/internal/adapters/linear"
	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
	"go.trai.ch/stall/internal/ui/output"
)

var _ ports.Renderer = (*Renderer)(nil)

// NewModel creates a Model that follows running resources.
// The lipgloss color profile is taken from w.
func NewModel(w io.Writer) *Model {
	if w == nil {
		w = os.Stderr
	}
	lipgloss.SetColorProfile(output.New(w).Profile)

	return &Model{
		Resources:   make([]*ResourceNode, 0),
		ResourceMap: make(map[string]*ResourceNode),
		SpanMap:     make(map[string]*ResourceNode),
		FollowMode:  true,
	}
}

// Renderer drives a bubbletea program as a ports.Renderer.
// When the program exits, the final report is printed below it as a table.
type Renderer struct {
	program *tea.Program
	model   *Model
	summary *linear.Renderer
	errCh   chan error

	mu      sync.Mutex
	exited  bool
	printed bool
	report  *domain.OutcomeReport
}

// NewRenderer creates a Renderer drawing to w. Options are applied after the defaults.
func NewRenderer(w io.Writer, opts ...tea.ProgramOption) *Renderer {
	if w == nil {
		w = os.Stderr
	}
	model := NewModel(w)
	programOpts := append([]tea.ProgramOption{tea.WithOutput(w)}, opts...)

	return &Renderer{
		program: tea.NewProgram(model, programOpts...),
		model:   model,
		summary: linear.NewRenderer(io.Discard, w, linear.WithColorProfile(output.ColorProfile)),
		errCh:   make(chan error, 1),
	}
}

// Start runs the program in the background.
func (r *Renderer) Start(_ context.Context) error {
	go func() {
		_, err := r.program.Run()
		r.finish()
		r.errCh <- err
	}()
	return nil
}

// Stop asks the program to quit.
func (r *Renderer) Stop() error {
	r.program.Quit()
	return nil
}

// Wait blocks until the program has exited.
// Quitting before the report arrived cancels the build with domain.ErrBuildCancelled.
func (r *Renderer) Wait() error {
	err := <-r.errCh
	if errors.Is(err, tea.ErrInterrupted) {
		return domain.ErrBuildCancelled
	}
	if err != nil {
		return err
	}
	if r.model.Interrupted {
		return domain.ErrBuildCancelled
	}
	return nil
}

// OnPlanEmit initializes the resource list.
func (r *Renderer) OnPlanEmit(labels []string, deps map[string][]string) {
	r.program.Send(MsgInitResources{Labels: labels, Dependencies: deps})
}

// OnResourceStart marks a resource as running.
func (r *Renderer) OnResourceStart(spanID, _, name string, startTime time.Time) {
	r.program.Send(MsgResourceStart{SpanID: spanID, Name: name, StartTime: startTime})
}

// OnResourceLog writes installer output to the resource's terminal.
func (r *Renderer) OnResourceLog(spanID string, data []byte) {
	r.program.Send(MsgResourceLog{SpanID: spanID, Data: data})
}

// OnResourceComplete marks a resource as installed or failed.
func (r *Renderer) OnResourceComplete(spanID string, endTime time.Time, err error) {
	r.program.Send(MsgResourceComplete{SpanID: spanID, EndTime: endTime, Err: err})
}

// OnReport shows the final states and queues the summary table for when the program exits.
func (r *Renderer) OnReport(report *domain.OutcomeReport) {
	if report == nil {
		return
	}

	r.mu.Lock()
	r.report = report
	exited := r.exited
	r.mu.Unlock()

	if exited {
		r.printSummary()
		return
	}
	r.program.Send(MsgReport{Report: report})
}

// Program returns the underlying program.
func (r *Renderer) Program() *tea.Program {
	return r.program
}

func (r *Renderer) finish() {
	r.mu.Lock()
	r.exited = true
	r.mu.Unlock()
	r.printSummary()
}

func (r *Renderer) printSummary() {
	r.mu.Lock()
	if r.report == nil || r.printed {
		r.mu.Unlock()
		return
	}
	r.printed = true
	report := r.report
	r.mu.Unlock()

	r.summary.OnReport(report)
}
