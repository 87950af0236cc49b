package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/grove/cli/reader"
)

// InspectModel is a Bubble Tea model for the inspect and best views.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "inspect_search":
		content = m.renderSearchSummary()
	case "best_node":
		content = m.renderNodeDetail()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderSearchSummary() string {
	data, ok := m.data.(*reader.SearchSummary)
	if !ok {
		return "Invalid data type for inspect_search"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Search Summary"))
	b.WriteString("\n\n")

	writeField(&b, "Search ID", ValueStyle.Render(data.SearchID))
	writeField(&b, "Seed", ValueStyle.Render(fmt.Sprintf("%d", data.Seed)))
	if data.ResumedFrom != nil {
		writeField(&b, "Resumed From", ValueStyle.Render(*data.ResumedFrom))
	}
	writeField(&b, "Nodes", ValueStyle.Render(fmt.Sprintf("%d (%d roots, max depth %d)",
		data.NodeCount, data.Roots, data.MaxDepth)))
	writeField(&b, "Stages", ValueStyle.Render(fmt.Sprintf("%d draft / %d debug / %d improve",
		data.Drafts, data.Debugs, data.Improves)))
	writeField(&b, "Good", GoodStyle.Render(fmt.Sprintf("%d", data.GoodNodes)))
	writeField(&b, "Buggy", BuggyStyle.Render(fmt.Sprintf("%d", data.BuggyNodes)))

	if data.BestNodeID != nil {
		b.WriteString("\n")
		writeField(&b, "Best Node", ValueStyle.Render(*data.BestNodeID))
		if data.BestMetric != nil {
			writeField(&b, "Best Metric", MetricStyle.Render(fmt.Sprintf("%g", *data.BestMetric)))
		}
	}

	return BoxStyle.Render(b.String())
}

func (m InspectModel) renderNodeDetail() string {
	data, ok := m.data.(*reader.NodeDetail)
	if !ok {
		return "Invalid data type for best_node"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Node Details"))
	b.WriteString("\n\n")

	writeField(&b, "Node ID", ValueStyle.Render(data.ID))
	if data.ParentID != nil {
		writeField(&b, "Parent", ValueStyle.Render(*data.ParentID))
	}
	writeField(&b, "Stage", ValueStyle.Render(data.Stage))
	verdict := "good"
	if data.IsBuggy {
		verdict = "buggy"
	}
	writeField(&b, "Verdict", VerdictStyle(data.IsBuggy).Render(verdict))
	writeField(&b, "Status", ValueStyle.Render(data.Status))
	if data.Metric != nil {
		writeField(&b, "Metric", MetricStyle.Render(fmt.Sprintf("%g", *data.Metric)))
	}
	writeField(&b, "Depth", ValueStyle.Render(fmt.Sprintf("%d", data.Depth)))
	writeField(&b, "Created", ValueStyle.Render(data.CreatedAt))

	if data.Plan != "" {
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render("Plan:"))
		b.WriteString("\n")
		b.WriteString(ValueStyle.Render(data.Plan))
		b.WriteString("\n")
	}
	if data.Code != "" {
		b.WriteString("\n")
		b.WriteString(CodeStyle.Render(data.Code))
		b.WriteString("\n")
	}

	return BoxStyle.Render(b.String())
}

func writeField(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s %s\n", LabelStyle.Render(label+":"), value)
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without a full TUI program.
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
