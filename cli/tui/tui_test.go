package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/grove/cli/reader"
)

func TestIsTUISupported(t *testing.T) {
	tests := []struct {
		viewType string
		want     bool
	}{
		{"inspect_search", true},
		{"best_node", true},

		{"export_graph", false},
		{"run", false},
		{"version", false},
		{"unknown", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.viewType, func(t *testing.T) {
			if got := IsTUISupported(tt.viewType); got != tt.want {
				t.Errorf("IsTUISupported(%q) = %v, want %v", tt.viewType, got, tt.want)
			}
		})
	}
}

func TestSupportedTUIViews(t *testing.T) {
	views := SupportedTUIViews()
	if len(views) != 2 {
		t.Errorf("SupportedTUIViews() returned %d views, expected 2", len(views))
	}
	for _, v := range views {
		if !IsTUISupported(v) {
			t.Errorf("SupportedTUIViews() returned %q but IsTUISupported returns false", v)
		}
	}
}

func TestRun_UnsupportedViewType(t *testing.T) {
	if err := Run("export_graph", nil); err == nil {
		t.Error("expected error for unsupported view type")
	}
}

func TestInspectModel_RendersSearchSummary(t *testing.T) {
	best := "node-9"
	bestMetric := 0.87
	summary := &reader.SearchSummary{
		SearchID:   "search-tui",
		Seed:       3,
		NodeCount:  12,
		Roots:      3,
		Drafts:     3,
		Debugs:     4,
		Improves:   5,
		GoodNodes:  8,
		BuggyNodes: 4,
		MaxDepth:   4,
		BestNodeID: &best,
		BestMetric: &bestMetric,
	}

	view := NewInspectModel("inspect_search", summary).View()
	for _, want := range []string{"search-tui", "node-9", "0.87", "3 draft / 4 debug / 5 improve"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestInspectModel_RendersNodeDetail(t *testing.T) {
	parent := "node-2"
	m := 0.5
	detail := &reader.NodeDetail{
		ID:       "node-3",
		ParentID: &parent,
		Stage:    "improve",
		Status:   "success",
		Metric:   &m,
		Depth:    2,
		Plan:     "tune the learning rate",
		Code:     "print('ok')",
	}

	view := NewInspectModel("best_node", detail).View()
	for _, want := range []string{"node-3", "node-2", "improve", "tune the learning rate", "print('ok')", "good"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestInspectModel_RejectsWrongPayload(t *testing.T) {
	view := NewInspectModel("inspect_search", "wrong type").View()
	if !strings.Contains(view, "Invalid data type") {
		t.Errorf("expected invalid-data message, got %q", view)
	}
}

func TestInspectModel_QuitKey(t *testing.T) {
	m := NewInspectModel("inspect_search", &reader.SearchSummary{})
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if view := updated.(InspectModel).View(); view != "" {
		t.Errorf("quitting model should render empty view, got %q", view)
	}
}
