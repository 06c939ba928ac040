package tui_test

import (
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stall/internal/adapters/tui"
	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/zerr"
)

func newTestModel(t *testing.T, labels ...string) *tui.Model {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	m := tui.NewModel(io.Discard)
	send(m, tui.MsgInitResources{
		Labels:       labels,
		Dependencies: map[string][]string{"app": {"runtime"}},
	})
	return m
}

func send(m *tui.Model, msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, msg := range msgs {
		_, cmd = m.Update(msg)
	}
	return cmd
}

func TestNewModel(t *testing.T) {
	m := tui.NewModel(nil)

	assert.Empty(t, m.Resources)
	assert.NotNil(t, m.ResourceMap)
	assert.NotNil(t, m.SpanMap)
	assert.True(t, m.FollowMode)
	assert.Nil(t, m.Init())
}

func TestModel_InitResources(t *testing.T) {
	m := newTestModel(t, "runtime", "app")

	require.Len(t, m.Resources, 2)
	assert.Equal(t, "runtime", m.Resources[0].Name)
	assert.Equal(t, tui.StatusPending, m.Resources[0].Status)
	assert.Equal(t, []string{"runtime"}, m.ResourceMap["app"].Dependencies)
}

func TestModel_WindowSize(t *testing.T) {
	m := newTestModel(t, "runtime", "app")

	send(m, tea.WindowSizeMsg{Width: 100, Height: 40})

	assert.Equal(t, 100-30-4, m.LogWidth)
	assert.Positive(t, m.ListHeight)
	assert.Less(t, m.ListHeight, 40)
	assert.Equal(t, m.LogWidth, m.Resources[0].Term.Width)
	assert.Equal(t, m.LogHeight, m.Resources[1].Term.Height)
}

func TestModel_ResourceLifecycle(t *testing.T) {
	m := newTestModel(t, "runtime", "app")
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	send(m,
		tui.MsgResourceStart{SpanID: "s1", Name: "runtime", StartTime: start},
		tui.MsgResourceLog{SpanID: "s1", Data: []byte("hello\n")},
	)
	runtime := m.ResourceMap["runtime"]
	assert.Equal(t, tui.StatusRunning, runtime.Status)
	assert.Equal(t, "runtime", m.ActiveName)
	assert.Positive(t, runtime.Term.UsedHeight())

	send(m, tui.MsgResourceComplete{SpanID: "s1", EndTime: start.Add(2 * time.Second)})
	assert.Equal(t, tui.StatusInstalled, runtime.Status)
	assert.Equal(t, 2*time.Second, runtime.Elapsed)

	send(m,
		tui.MsgResourceStart{SpanID: "s2", Name: "app", StartTime: start},
		tui.MsgResourceComplete{SpanID: "s2", EndTime: start, Err: zerr.New("boom")},
	)
	app := m.ResourceMap["app"]
	assert.Equal(t, tui.StatusFailed, app.Status)
	assert.Equal(t, "boom", app.Reason)
	assert.Equal(t, 1, m.SelectedIdx)
}

func TestModel_IgnoresUnknownSpans(t *testing.T) {
	m := newTestModel(t, "runtime")

	send(m,
		tui.MsgResourceStart{SpanID: "root", Name: "build"},
		tui.MsgResourceLog{SpanID: "ghost", Data: []byte("x")},
		tui.MsgResourceComplete{SpanID: "ghost"},
	)

	assert.Empty(t, m.SpanMap)
	assert.Equal(t, tui.StatusPending, m.Resources[0].Status)
}

func TestModel_Navigation(t *testing.T) {
	m := newTestModel(t, "a", "b", "c")
	send(m, tea.WindowSizeMsg{Width: 80, Height: 30})

	send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	assert.Equal(t, 1, m.SelectedIdx)
	assert.False(t, m.FollowMode)
	assert.Equal(t, "b", m.ActiveName)

	send(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, m.SelectedIdx)

	send(m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, m.SelectedIdx)

	// Starting a resource does not move the selection while following is off.
	send(m, tui.MsgResourceStart{SpanID: "s", Name: "c"})
	assert.Equal(t, 1, m.SelectedIdx)

	send(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, m.FollowMode)
	assert.Equal(t, 2, m.SelectedIdx)
	assert.Equal(t, "c", m.ActiveName)
}

func TestModel_ListScrolls(t *testing.T) {
	m := newTestModel(t, "a", "b", "c", "d", "e", "f", "g", "h")
	send(m, tea.WindowSizeMsg{Width: 80, Height: 6})
	require.Less(t, m.ListHeight, len(m.Resources))

	for range len(m.Resources) {
		send(m, tea.KeyMsg{Type: tea.KeyDown})
	}

	assert.Equal(t, len(m.Resources)-1, m.SelectedIdx)
	assert.Equal(t, m.SelectedIdx-m.ListHeight+1, m.ListOffset)
}

func TestModel_Quit(t *testing.T) {
	t.Run("before report interrupts", func(t *testing.T) {
		m := newTestModel(t, "a")

		cmd := send(m, tea.KeyMsg{Type: tea.KeyCtrlC})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
		assert.True(t, m.Interrupted)
	})

	t.Run("after report", func(t *testing.T) {
		m := newTestModel(t, "a")
		send(m, tui.MsgReport{Report: domain.NewOutcomeReport(nil, false)})

		cmd := send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		require.NotNil(t, cmd)
		assert.False(t, m.Interrupted)
	})
}

func TestModel_Report(t *testing.T) {
	m := newTestModel(t, "runtime", "app", "tools")

	send(m, tui.MsgReport{Report: domain.NewOutcomeReport([]domain.Outcome{
		{Label: "runtime", State: domain.StateInstalled, Cached: true},
		{Label: "app", State: domain.StateFailed, Failure: domain.FailureInstall, Err: zerr.New("exit 1")},
		{Label: "tools", State: domain.StateSkipped, Failure: domain.FailureDependency, Reason: "dependency app failed"},
		{Label: "stray", State: domain.StateInstalled},
	}, false)})

	require.NotNil(t, m.Report)
	assert.True(t, m.ResourceMap["runtime"].Cached)
	assert.Equal(t, tui.StatusFailed, m.ResourceMap["app"].Status)
	assert.Equal(t, "exit 1", m.ResourceMap["app"].Reason)
	assert.Equal(t, tui.StatusSkipped, m.ResourceMap["tools"].Status)
	assert.Equal(t, "dependency app failed", m.ResourceMap["tools"].Reason)

	send(m, tui.MsgReport{})
	assert.NotNil(t, m.Report)
}
