package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/stall/internal/core/domain"
)

const (
	listWidthRatio     = 0.3
	logPaneBorderWidth = 4
	footerHeight       = 1
)

// ResourceStatus is the state of a resource as shown in the list.
type ResourceStatus string

const (
	// StatusPending indicates the resource has not started.
	StatusPending ResourceStatus = "Pending"
	// StatusRunning indicates the resource is downloading or installing.
	StatusRunning ResourceStatus = "Running"
	// StatusInstalled indicates the resource installed.
	StatusInstalled ResourceStatus = "Installed"
	// StatusFailed indicates the resource failed.
	StatusFailed ResourceStatus = "Failed"
	// StatusSkipped indicates the resource never ran.
	StatusSkipped ResourceStatus = "Skipped"
)

// ResourceNode is one row of the resource list.
type ResourceNode struct {
	Name         string
	Dependencies []string
	Status       ResourceStatus
	Term         *Vterm
	Cached       bool
	Reason       string
	StartTime    time.Time
	Elapsed      time.Duration
}

// Model is the bubbletea model for an interactive build.
type Model struct {
	Resources   []*ResourceNode
	ResourceMap map[string]*ResourceNode
	SpanMap     map[string]*ResourceNode

	ActiveName  string
	SelectedIdx int
	ListOffset  int
	ListHeight  int
	LogWidth    int
	LogHeight   int
	FollowMode  bool

	Report      *domain.OutcomeReport
	Interrupted bool
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
//
//nolint:cyclop // message dispatch
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case MsgInitResources:
		m.Resources = make([]*ResourceNode, len(msg.Labels))
		m.ResourceMap = make(map[string]*ResourceNode, len(msg.Labels))
		if m.SpanMap == nil {
			m.SpanMap = make(map[string]*ResourceNode)
		}
		for i, label := range msg.Labels {
			term := NewVterm()
			if m.LogWidth > 0 && m.LogHeight > 0 {
				term.SetWidth(m.LogWidth)
				term.SetHeight(m.LogHeight)
			}
			m.Resources[i] = &ResourceNode{
				Name:         label,
				Dependencies: msg.Dependencies[label],
				Status:       StatusPending,
				Term:         term,
			}
			m.ResourceMap[label] = m.Resources[i]
		}

	case MsgResourceStart:
		node, ok := m.ResourceMap[msg.Name]
		if !ok {
			return m, nil
		}
		node.Status = StatusRunning
		node.StartTime = msg.StartTime
		m.SpanMap[msg.SpanID] = node
		if m.FollowMode {
			m.selectName(msg.Name)
		}

	case MsgResourceLog:
		if node, ok := m.SpanMap[msg.SpanID]; ok {
			_, _ = node.Term.Write(msg.Data)
		}

	case MsgResourceComplete:
		node, ok := m.SpanMap[msg.SpanID]
		if !ok {
			return m, nil
		}
		node.Elapsed = msg.EndTime.Sub(node.StartTime)
		if msg.Err != nil {
			node.Status = StatusFailed
			node.Reason = msg.Err.Error()
		} else {
			node.Status = StatusInstalled
		}

	case MsgReport:
		m.applyReport(msg.Report)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.Report == nil {
			m.Interrupted = true
		}
		return tea.Quit
	case "k", "up":
		if m.SelectedIdx > 0 {
			m.FollowMode = false
			m.selectIndex(m.SelectedIdx - 1)
		}
	case "j", "down":
		if m.SelectedIdx < len(m.Resources)-1 {
			m.FollowMode = false
			m.selectIndex(m.SelectedIdx + 1)
		}
	case "esc", "f":
		m.FollowMode = true
		for i, r := range m.Resources {
			if r.Status == StatusRunning {
				m.selectIndex(i)
				break
			}
		}
	default:
		if node, ok := m.ResourceMap[m.ActiveName]; ok {
			node.Term.Update(msg)
		}
	}
	return nil
}

func (m *Model) resize(width, height int) {
	listWidth := int(float64(width) * listWidthRatio)
	m.LogWidth = max(width-listWidth-logPaneBorderWidth, 1)

	headerHeight := lipgloss.Height(titleStyle.Render("LOGS"))
	m.LogHeight = max(height-headerHeight-footerHeight, 1)

	listHeader := lipgloss.Height(titleStyle.Render("RESOURCES") + "\n\n")
	m.ListHeight = max(height-listHeader-footerHeight, 1)
	m.ensureVisible()

	for _, node := range m.Resources {
		node.Term.SetWidth(m.LogWidth)
		node.Term.SetHeight(m.LogHeight)
	}
}

// applyReport moves every row to its final state, including resources that never opened a span.
func (m *Model) applyReport(report *domain.OutcomeReport) {
	if report == nil {
		return
	}
	m.Report = report
	for _, o := range report.Entries() {
		node, ok := m.ResourceMap[o.Label]
		if !ok {
			continue
		}
		node.Cached = o.Cached
		if o.Duration > 0 {
			node.Elapsed = o.Duration
		}
		switch o.State {
		case domain.StateInstalled:
			node.Status = StatusInstalled
		case domain.StateFailed:
			node.Status = StatusFailed
			node.Reason = o.Reason
			if node.Reason == "" && o.Err != nil {
				node.Reason = o.Err.Error()
			}
		default:
			node.Status = StatusSkipped
			node.Reason = o.Reason
		}
	}
}

func (m *Model) selectName(name string) {
	for i, r := range m.Resources {
		if r.Name == name {
			m.selectIndex(i)
			return
		}
	}
}

func (m *Model) selectIndex(i int) {
	m.SelectedIdx = i
	m.ensureVisible()
	node := m.Resources[i]
	m.ActiveName = node.Name
	if m.FollowMode {
		node.Term.ScrollToBottom()
	}
}

func (m *Model) ensureVisible() {
	if m.ListHeight <= 0 {
		return
	}
	if m.SelectedIdx < m.ListOffset {
		m.ListOffset = m.SelectedIdx
	} else if m.SelectedIdx >= m.ListOffset+m.ListHeight {
		m.ListOffset = m.SelectedIdx - m.ListHeight + 1
	}
}
