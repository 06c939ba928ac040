package tui

import (
	"time"

	"go.trai.ch/stall/internal/core/domain"
)

// MsgInitResources carries the resolved build order.
type MsgInitResources struct {
	Labels       []string
	Dependencies map[string][]string
}

// MsgResourceStart is sent when a resource span opens.
type MsgResourceStart struct {
	SpanID    string
	Name      string
	StartTime time.Time
}

// MsgResourceLog carries a chunk of installer output.
type MsgResourceLog struct {
	SpanID string
	Data   []byte
}

// MsgResourceComplete is sent when a resource span ends.
type MsgResourceComplete struct {
	SpanID  string
	EndTime time.Time
	Err     error
}

// MsgReport carries the final outcome of the build.
type MsgReport struct {
	Report *domain.OutcomeReport
}
