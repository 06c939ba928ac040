// Package style provides the colors and icons shared by the logger and the renderers.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Iris   = lipgloss.Color("#8B5CF6")
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
	White  = lipgloss.Color("#FFFFFF")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Skip    = "-"
	Arrow   = "→"
	Dot     = "●"
)

// Label renders a bold, iris-colored label for headings.
func Label(s string) string {
	return lipgloss.NewStyle().Foreground(Iris).Bold(true).Render(s)
}
