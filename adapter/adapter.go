// Package adapter defines the completion-notification boundary.
//
// Publishers push search completion events to downstream systems
// (dashboards, schedulers, result collectors). Publishing is best
// effort: the engine logs failures and never fails a run over them.
package adapter

import (
	"context"
	"time"

	"github.com/pithecene-io/grove/types"
)

// EventSchemaVersion identifies the event payload shape.
const EventSchemaVersion = "1"

// EventType is the constant event_type value for completion events.
const EventType = "search_completed"

// SearchCompletedEvent is the payload published when a search run
// terminates, for any stop reason.
type SearchCompletedEvent struct {
	SchemaVersion string   `json:"schema_version"`
	EventType     string   `json:"event_type"` // always "search_completed"
	SearchID      string   `json:"search_id"`
	Seed          int64    `json:"seed"`
	StopReason    string   `json:"stop_reason"`
	NodeCount     int      `json:"node_count"`
	BestNodeID    *string  `json:"best_node_id,omitempty"`
	BestMetric    *float64 `json:"best_metric,omitempty"`
	Direction     string   `json:"direction"`
	DurationMs    int64    `json:"duration_ms"`
	Timestamp     string   `json:"timestamp"` // RFC 3339
}

// NewSearchCompletedEvent builds an event with identity and schema
// fields populated. The caller fills in run results.
func NewSearchCompletedEvent(meta types.SearchMeta, direction types.MetricDirection) *SearchCompletedEvent {
	return &SearchCompletedEvent{
		SchemaVersion: EventSchemaVersion,
		EventType:     EventType,
		SearchID:      meta.SearchID,
		Seed:          meta.Seed,
		Direction:     string(direction),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
}

// Publisher pushes completion events to a downstream system.
// Implementations must respect context cancellation and deadlines.
type Publisher interface {
	Publish(ctx context.Context, event *SearchCompletedEvent) error

	// Close releases publisher resources.
	Close() error
}
