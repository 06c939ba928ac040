// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"

	"go.trai.ch/stall/internal/core/domain"
)

// CommandRunner runs external installer processes.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type CommandRunner interface {
	// Run starts cmd and waits for it to exit.
	// A non-zero exit status is returned as an error carrying the exit code.
	Run(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error
}
