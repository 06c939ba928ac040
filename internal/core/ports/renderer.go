package ports

import (
	"context"
	"time"

	"go.trai.ch/stall/internal/core/domain"
)

// Renderer is the abstraction for output rendering.
// It decouples telemetry collection from presentation logic.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer and begins its lifecycle.
	Start(ctx context.Context) error

	// Stop signals the renderer to stop accepting new events and flush buffered output.
	Stop() error

	// Wait blocks until the renderer has fully terminated.
	Wait() error

	// OnPlanEmit is called once the build order is resolved.
	// labels: resources in build order
	// deps: dependency map (label -> direct dependencies)
	OnPlanEmit(labels []string, deps map[string][]string)

	// OnResourceStart is called when a resource begins processing.
	OnResourceStart(spanID, parentID, name string, startTime time.Time)

	// OnResourceLog is called when an installer emits output.
	// data may contain partial lines or ANSI sequences.
	OnResourceLog(spanID string, data []byte)

	// OnResourceComplete is called when a resource span finishes.
	OnResourceComplete(spanID string, endTime time.Time, err error)

	// OnReport is called with the final outcome of the build.
	OnReport(report *domain.OutcomeReport)
}
