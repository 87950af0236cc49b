package reader_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pithecene-io/grove/checkpoint"
	"github.com/pithecene-io/grove/cli/reader"
	"github.com/pithecene-io/grove/journal"
	"github.com/pithecene-io/grove/types"
)

func metric(v float64) *float64 { return &v }

func checkpointedJournal(t *testing.T) (*journal.Journal, checkpoint.Store) {
	t.Helper()
	j := journal.New(types.SearchMeta{SearchID: "search-reader", Seed: 11})

	mustAppend := func(n types.Node) {
		t.Helper()
		if _, err := j.Append(n); err != nil {
			t.Fatalf("Append(%s): %v", n.ID, err)
		}
	}
	mustAppend(types.Node{
		ID: "a", Stage: types.StageDraft, Code: "a",
		Outcome: types.ExecOutcome{Status: types.ExecTimeout}, IsBuggy: true,
	})
	a := "a"
	mustAppend(types.Node{
		ID: "b", ParentID: &a, Stage: types.StageDebug, Code: "b", Plan: "retry smaller",
		Outcome: types.ExecOutcome{Status: types.ExecSuccess}, Metric: metric(0.3),
	})
	b := "b"
	mustAppend(types.Node{
		ID: "c", ParentID: &b, Stage: types.StageImprove, Code: "c",
		Outcome: types.ExecOutcome{Status: types.ExecSuccess}, Metric: metric(0.8),
	})

	store := checkpoint.NewStubStore()
	data, err := checkpoint.Encode(j.Meta(), j.Snapshot())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := store.Save(context.Background(), data); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return j, store
}

func TestLoadJournalRoundTrip(t *testing.T) {
	j, store := checkpointedJournal(t)

	loaded, err := reader.LoadJournal(context.Background(), store)
	if err != nil {
		t.Fatalf("LoadJournal: %v", err)
	}
	if loaded.Len() != j.Len() {
		t.Errorf("loaded %d nodes, want %d", loaded.Len(), j.Len())
	}
	if loaded.Meta().SearchID != "search-reader" {
		t.Errorf("search id = %q", loaded.Meta().SearchID)
	}
}

func TestLoadJournalRejectsGarbage(t *testing.T) {
	store := checkpoint.NewStubStore()
	if err := store.Save(context.Background(), []byte("not msgpack")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := reader.LoadJournal(context.Background(), store); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSummarize(t *testing.T) {
	j, _ := checkpointedJournal(t)

	s := reader.Summarize(j, types.Maximize)
	if s.SearchID != "search-reader" || s.Seed != 11 {
		t.Errorf("identity = %q/%d", s.SearchID, s.Seed)
	}
	if s.NodeCount != 3 || s.Roots != 1 {
		t.Errorf("counts = %d nodes, %d roots", s.NodeCount, s.Roots)
	}
	if s.Drafts != 1 || s.Debugs != 1 || s.Improves != 1 {
		t.Errorf("stages = %d/%d/%d", s.Drafts, s.Debugs, s.Improves)
	}
	if s.GoodNodes != 2 || s.BuggyNodes != 1 {
		t.Errorf("verdicts = %d good, %d buggy", s.GoodNodes, s.BuggyNodes)
	}
	if s.MaxDepth != 2 {
		t.Errorf("max depth = %d, want 2", s.MaxDepth)
	}
	if s.BestNodeID == nil || *s.BestNodeID != "c" {
		t.Errorf("best node = %v, want c", s.BestNodeID)
	}
}

func TestBest(t *testing.T) {
	j, _ := checkpointedJournal(t)

	d, err := reader.Best(j, types.Maximize)
	if err != nil {
		t.Fatalf("Best: %v", err)
	}
	if d.ID != "c" || d.Metric == nil || *d.Metric != 0.8 {
		t.Errorf("best = %+v", d)
	}
	if d.Stage != "improve" || d.Status != "success" {
		t.Errorf("stage/status = %q/%q", d.Stage, d.Status)
	}

	// Under minimize the earlier, smaller metric wins.
	d, err = reader.Best(j, types.Minimize)
	if err != nil {
		t.Fatalf("Best: %v", err)
	}
	if d.ID != "b" {
		t.Errorf("best under minimize = %q, want b", d.ID)
	}
}

func TestBestEmptyJournal(t *testing.T) {
	j := journal.New(types.SearchMeta{SearchID: "empty", Seed: 1})
	if _, err := reader.Best(j, types.Maximize); !errors.Is(err, reader.ErrNoGoodNode) {
		t.Fatalf("err = %v, want ErrNoGoodNode", err)
	}
}

func TestNode(t *testing.T) {
	j, _ := checkpointedJournal(t)

	d, err := reader.Node(j, "b")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if d.ParentID == nil || *d.ParentID != "a" {
		t.Errorf("parent = %v, want a", d.ParentID)
	}
	if d.Plan != "retry smaller" {
		t.Errorf("plan = %q", d.Plan)
	}

	if _, err := reader.Node(j, "missing"); err == nil {
		t.Fatal("expected error for unknown id")
	}
}

func TestOpenStoreLocalPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grove.ckpt")
	store, err := reader.OpenStore(context.Background(), path, reader.S3Options{})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	fs, ok := store.(*checkpoint.FSStore)
	if !ok {
		t.Fatalf("store type = %T, want *checkpoint.FSStore", store)
	}
	if fs.Path() != path {
		t.Errorf("path = %q, want %q", fs.Path(), path)
	}
}

func TestOpenStoreRequiresPath(t *testing.T) {
	if _, err := reader.OpenStore(context.Background(), "", reader.S3Options{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
