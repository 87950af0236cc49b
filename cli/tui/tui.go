package tui

import (
	"fmt"
	"strings"
)

// Run starts the appropriate TUI for the view type.
func Run(viewType string, data any) error {
	if !IsTUISupported(viewType) {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
	return RunInspectTUI(viewType, data)
}

// IsTUISupported reports whether the view type supports TUI mode.
// Only the read-only inspect and best views do.
func IsTUISupported(viewType string) bool {
	for _, prefix := range []string{"inspect_", "best_"} {
		if strings.HasPrefix(viewType, prefix) {
			return true
		}
	}
	return false
}

// SupportedTUIViews returns the view types that support TUI mode.
func SupportedTUIViews() []string {
	return []string{
		"inspect_search",
		"best_node",
	}
}
