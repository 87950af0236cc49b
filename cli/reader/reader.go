// Package reader provides read-only checkpoint access for the grove CLI.
//
// All read-only commands (inspect, best, export) go through this
// package: it opens the checkpoint store from a path, reconstructs the
// journal, and builds the response payloads shared by plain rendering
// and TUI mode.
package reader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pithecene-io/grove/checkpoint"
	"github.com/pithecene-io/grove/journal"
	"github.com/pithecene-io/grove/types"
)

// ErrNoGoodNode is returned by Best when the journal has no node with a
// valid metric.
var ErrNoGoodNode = errors.New("reader: no good node in journal")

// S3Options carries optional S3 settings for s3:// checkpoint paths.
type S3Options struct {
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// OpenStore opens a checkpoint store for a path. Paths starting with
// s3:// use the S3 backend; everything else is a local file.
func OpenStore(ctx context.Context, path string, s3opts S3Options) (checkpoint.Store, error) {
	if path == "" {
		return nil, errors.New("reader: checkpoint path is required")
	}
	if after, ok := strings.CutPrefix(path, "s3://"); ok {
		bucket, key := checkpoint.ParseS3Path(after)
		return checkpoint.NewS3Store(ctx, checkpoint.S3Config{
			Bucket:       bucket,
			Key:          key,
			Region:       s3opts.Region,
			Endpoint:     s3opts.Endpoint,
			UsePathStyle: s3opts.UsePathStyle,
		})
	}
	return checkpoint.NewFSStore(path)
}

// LoadJournal loads and verifies the journal from a checkpoint store.
func LoadJournal(ctx context.Context, store checkpoint.Store) (*journal.Journal, error) {
	data, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	j, err := checkpoint.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("reader: decode checkpoint: %w", err)
	}
	return j, nil
}

// Summarize builds the aggregate view of a journal.
func Summarize(j *journal.Journal, direction types.MetricDirection) *SearchSummary {
	meta := j.Meta()
	s := &SearchSummary{
		SearchID:    meta.SearchID,
		Seed:        meta.Seed,
		ResumedFrom: meta.ResumedFrom,
		NodeCount:   j.Len(),
		Roots:       len(j.Roots()),
	}
	for _, n := range j.Nodes() {
		switch n.Stage {
		case types.StageDraft:
			s.Drafts++
		case types.StageDebug:
			s.Debugs++
		case types.StageImprove:
			s.Improves++
		}
		if n.IsBuggy {
			s.BuggyNodes++
		} else {
			s.GoodNodes++
		}
		if n.Depth > s.MaxDepth {
			s.MaxDepth = n.Depth
		}
	}
	if best, ok := j.Best(direction); ok {
		id := best.ID
		s.BestNodeID = &id
		s.BestMetric = best.Metric
	}
	return s
}

// Best returns the deep view of the best node under the direction.
func Best(j *journal.Journal, direction types.MetricDirection) (*NodeDetail, error) {
	best, ok := j.Best(direction)
	if !ok {
		return nil, ErrNoGoodNode
	}
	return detail(best), nil
}

// Node returns the deep view of a node by id.
func Node(j *journal.Journal, id string) (*NodeDetail, error) {
	n, ok := j.Get(id)
	if !ok {
		return nil, fmt.Errorf("reader: node %q not found", id)
	}
	return detail(n), nil
}

func detail(n types.Node) *NodeDetail {
	return &NodeDetail{
		ID:            n.ID,
		ParentID:      n.ParentID,
		Stage:         string(n.Stage),
		Status:        string(n.Outcome.Status),
		IsBuggy:       n.IsBuggy,
		Metric:        n.Metric,
		Depth:         n.Depth,
		CreationOrder: n.CreationOrder,
		CreatedAt:     n.CreatedAt,
		Plan:          n.Plan,
		Code:          n.Code,
	}
}
