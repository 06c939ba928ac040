package tui

import (
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/stall/internal/ui/style"
)

var (
	pendingStyle = lipgloss.NewStyle().
			Foreground(style.Slate)

	runningStyle = lipgloss.NewStyle().
			Foreground(style.Iris).
			Bold(true)

	installedStyle = lipgloss.NewStyle().
			Foreground(style.Green)

	failedStyle = lipgloss.NewStyle().
			Foreground(style.Red)

	skippedStyle = lipgloss.NewStyle().
			Foreground(style.Yellow)

	cachedStyle = lipgloss.NewStyle().
			Foreground(style.Slate).
			Faint(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(style.Iris).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(style.Slate).
			Faint(true)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Background(style.Iris).
			Foreground(style.White)

	failureTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Padding(0, 1).
				Background(style.Red).
				Foreground(style.White)

	listStyle = lipgloss.NewStyle().
			MarginRight(2)

	logStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(style.Slate).
			PaddingLeft(1)
)
