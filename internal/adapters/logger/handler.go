package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/muesli/termenv"
	"go.trai.ch/stall/internal/ui/output"
	"go.trai.ch/stall/internal/ui/style"
)

// ConsoleHandler is the slog.Handler behind stall's terminal output: one colored line
// per record, warnings and errors marked with their glyph, attributes as key=value.
type ConsoleHandler struct {
	out   *termenv.Output
	level slog.Leveler
	// fields holds attributes already rendered with the group they were attached under.
	fields []string
	group  string
}

// NewConsoleHandler creates a ConsoleHandler writing to w, or to stderr when w is nil.
func NewConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &ConsoleHandler{out: output.New(w), level: level}
}

// Enabled reports whether records at level are written.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle writes r as a single line.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	line, color := r.Message, termenv.RGBColor(string(style.Slate))
	switch {
	case r.Level >= slog.LevelError:
		line, color = style.Cross+" "+r.Message, termenv.RGBColor(string(style.Red))
	case r.Level >= slog.LevelWarn:
		line, color = style.Warning+" "+r.Message, termenv.RGBColor(string(style.Yellow))
	}

	fields := slices.Clone(h.fields)
	r.Attrs(func(attr slog.Attr) bool {
		fields = renderAttr(fields, h.group, attr)
		return true
	})
	if len(fields) > 0 {
		line += " " + strings.Join(fields, " ")
	}

	_, err := h.out.WriteString(h.out.String(line).Foreground(color).String() + "\n")
	return err
}

// WithAttrs returns a handler that adds attrs to every line, qualified by the current group.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = slices.Clone(h.fields)
	for _, attr := range attrs {
		next.fields = renderAttr(next.fields, h.group, attr)
	}
	return &next
}

// WithGroup returns a handler that qualifies later attributes with name.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = qualify(h.group, name)
	return &next
}

// renderAttr appends attr as key=value, flattening groups into dotted keys.
func renderAttr(fields []string, group string, attr slog.Attr) []string {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return fields
	}
	key := qualify(group, attr.Key)
	if attr.Value.Kind() == slog.KindGroup {
		for _, sub := range attr.Value.Group() {
			fields = renderAttr(fields, key, sub)
		}
		return fields
	}
	return append(fields, key+"="+attr.Value.String())
}

func qualify(group, key string) string {
	switch {
	case group == "":
		return key
	case key == "":
		return group
	default:
		return group + "." + key
	}
}
