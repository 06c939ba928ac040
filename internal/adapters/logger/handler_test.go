package logger_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/stall/internal/adapters/logger"
)

func TestConsoleHandler_Levels(t *testing.T) {
	tests := []struct {
		name       string
		level      slog.Level
		msg        string
		goldenName string
	}{
		{"info level", slog.LevelInfo, "information message", "handler_info"},
		{"warn level", slog.LevelWarn, "warning message", "handler_warn"},
		{"error level", slog.LevelError, "error message", "handler_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "1")

			buf := &bytes.Buffer{}
			lg := slog.New(logger.NewConsoleHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
			lg.Log(t.Context(), tt.level, tt.msg)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestConsoleHandler_DebugFiltered(t *testing.T) {
	buf := &bytes.Buffer{}
	lg := slog.New(logger.NewConsoleHandler(buf, nil))
	lg.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestConsoleHandler_AttrsAndGroups(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	h := logger.NewConsoleHandler(buf, nil).
		WithAttrs([]slog.Attr{slog.String("label", "git")}).
		WithGroup("").
		WithGroup("apt")
	lg := slog.New(h)

	lg.Info("installing", slog.Int("attempt", 1), slog.Group("pkg", slog.String("name", "git-core")))

	assert.Equal(t, "installing label=git apt.attempt=1 apt.pkg.name=git-core\n", buf.String())
}

func TestConsoleHandler_SiblingsDoNotShareFields(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	base := logger.NewConsoleHandler(buf, nil).WithGroup("build")
	git := slog.New(base.WithAttrs([]slog.Attr{slog.String("label", "git")}))
	steam := slog.New(base.WithAttrs([]slog.Attr{slog.String("label", "steam")}))

	git.Warn("retrying")
	steam.Info("installed", slog.Any("skipped", nil), slog.Attr{})

	assert.Equal(t, "! retrying build.label=git\ninstalled build.label=steam build.skipped=<nil>\n", buf.String())
}
