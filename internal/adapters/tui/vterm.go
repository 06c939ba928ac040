package tui

import (
	"bytes"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vito/midterm"
)

// Vterm holds one resource's installer output in a virtual terminal so
// progress bars and carriage returns render the way the installer meant them.
type Vterm struct {
	vt      *midterm.Terminal
	Offset  int
	Height  int
	Width   int
	viewBuf *bytes.Buffer
	mu      sync.Mutex
}

// NewVterm creates an empty Vterm.
func NewVterm() *Vterm {
	return &Vterm{
		vt:      midterm.NewAutoResizingTerminal(),
		viewBuf: new(bytes.Buffer),
	}
}

// Write feeds installer output into the terminal.
// The view follows new output only while it is scrolled to the bottom.
func (v *Vterm) Write(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	follow := v.Offset >= v.maxOffset()
	n, err := v.vt.Write(p)
	if follow {
		v.Offset = v.maxOffset()
	}
	return n, err
}

// SetHeight sets the number of visible rows.
func (v *Vterm) SetHeight(h int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	h = max(h, 1)
	follow := v.Offset >= v.maxOffset()
	v.Height = h
	if follow {
		v.Offset = v.maxOffset()
	}
	v.clamp()
}

// SetWidth sets the number of columns.
func (v *Vterm) SetWidth(w int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.Width = max(w, 1)
	v.vt.ResizeX(v.Width)
}

// UsedHeight returns the number of rows written so far.
func (v *Vterm) UsedHeight() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.vt.UsedHeight()
}

// ScrollToBottom moves the view to the latest output.
func (v *Vterm) ScrollToBottom() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Offset = v.maxOffset()
}

// View renders the visible rows.
func (v *Vterm) View() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.viewBuf.Reset()
	v.clamp()
	for i := range v.Height {
		row := v.Offset + i
		if row >= v.vt.UsedHeight() {
			break
		}
		if i > 0 {
			_ = v.viewBuf.WriteByte('\n')
		}
		_ = v.vt.RenderLine(v.viewBuf, row)
	}
	return v.viewBuf.String()
}

// Update scrolls the view in response to navigation keys.
func (v *Vterm) Update(msg tea.Msg) {
	v.mu.Lock()
	defer v.mu.Unlock()

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return
	}
	switch key.String() {
	case "pgup", "ctrl+u":
		v.Offset -= v.Height
	case "pgdown", "ctrl+d":
		v.Offset += v.Height
	case "home", "g":
		v.Offset = 0
	case "end", "G":
		v.Offset = v.maxOffset()
	}
	v.clamp()
}

func (v *Vterm) clamp() {
	v.Offset = min(max(v.Offset, 0), v.maxOffset())
}

func (v *Vterm) maxOffset() int {
	return max(v.vt.UsedHeight()-v.Height, 0)
}
