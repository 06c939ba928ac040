package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/ui/style"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.ListHeight == 0 {
		return "Initializing..."
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.resourceList(),
		m.logPane(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.footer())
}

func (m *Model) resourceList() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("RESOURCES") + "\n\n")

	end := min(m.ListOffset+m.ListHeight, len(m.Resources))
	start := min(m.ListOffset, end)
	for i := start; i < end; i++ {
		s.WriteString(m.renderRow(i, m.Resources[i]) + "\n")
	}

	return listStyle.Render(s.String())
}

func (m *Model) renderRow(index int, node *ResourceNode) string {
	rowStyle := statusStyle(node)
	cursor := "  "
	if index == m.SelectedIdx {
		cursor = selectedStyle.Render("> ")
		if node.Status == StatusPending || node.Status == StatusRunning {
			rowStyle = selectedStyle
		}
	}

	content := fmt.Sprintf("%s %s", statusIcon(node), node.Name)
	if node.Elapsed > 0 {
		content += " " + hintStyle.Render(node.Elapsed.Round(time.Millisecond).String())
	}
	return cursor + rowStyle.Render(content)
}

func statusIcon(node *ResourceNode) string {
	if node.Cached {
		return "⚡"
	}
	switch node.Status {
	case StatusRunning:
		return style.Dot
	case StatusInstalled:
		return style.Check
	case StatusFailed:
		return style.Cross
	case StatusSkipped:
		return style.Skip
	default:
		return "○"
	}
}

func statusStyle(node *ResourceNode) lipgloss.Style {
	if node.Cached {
		return cachedStyle
	}
	switch node.Status {
	case StatusRunning:
		return runningStyle
	case StatusInstalled:
		return installedStyle
	case StatusFailed:
		return failedStyle
	case StatusSkipped:
		return skippedStyle
	default:
		return pendingStyle
	}
}

func (m *Model) logPane() string {
	node, ok := m.ResourceMap[m.ActiveName]
	if !ok {
		return logStyle.Render(titleStyle.Render("LOGS (Waiting...)"))
	}

	mode := " (Manual)"
	if m.FollowMode {
		mode = " (Following)"
	}
	header := titleStyle.Render("LOGS: " + node.Name + mode)
	if node.Status == StatusFailed {
		header = failureTitleStyle.Render("FAILED: " + node.Name)
	}

	lines := []string{header}
	if len(node.Dependencies) > 0 {
		lines = append(lines, hintStyle.Render("depends on "+strings.Join(node.Dependencies, ", ")))
	}
	if node.Reason != "" {
		lines = append(lines, statusStyle(node).Render(node.Reason))
	}
	lines = append(lines, node.Term.View())

	return logStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) footer() string {
	if m.Report == nil {
		return hintStyle.Render("j/k select · esc follow · pgup/pgdown scroll · q quit")
	}
	summary := fmt.Sprintf("%d installed, %d failed, %d skipped",
		m.Report.Count(domain.StateInstalled),
		m.Report.Count(domain.StateFailed),
		m.Report.Count(domain.StateSkipped))
	if m.Report.Succeeded() {
		return installedStyle.Render(style.Check + " " + summary)
	}
	return failedStyle.Render(style.Cross + " " + summary)
}
