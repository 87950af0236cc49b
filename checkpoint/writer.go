package checkpoint

import (
	"context"

	"github.com/pithecene-io/grove/journal"
	"github.com/pithecene-io/grove/types"
)

// Writer saves checkpoints on a configurable append cadence.
//
// Not safe for concurrent use: the driver's single committer goroutine
// owns it. All methods are nil-receiver safe so running without
// checkpointing requires no branching at call sites.
type Writer struct {
	store   Store
	every   int
	pending int
}

// NewWriter creates a writer saving every `every` appends.
// Values below 1 are treated as 1 (save after every append).
func NewWriter(store Store, every int) *Writer {
	if every < 1 {
		every = 1
	}
	return &Writer{store: store, every: every}
}

// AfterAppend records one completed append and saves a checkpoint when
// the cadence is reached.
func (w *Writer) AfterAppend(ctx context.Context, meta types.SearchMeta, snap *journal.Snapshot) error {
	if w == nil {
		return nil
	}
	w.pending++
	if w.pending < w.every {
		return nil
	}
	return w.Flush(ctx, meta, snap)
}

// Flush saves a checkpoint unconditionally and resets the cadence counter.
// Called on driver termination so the final journal state is always durable.
func (w *Writer) Flush(ctx context.Context, meta types.SearchMeta, snap *journal.Snapshot) error {
	if w == nil {
		return nil
	}
	data, err := Encode(meta, snap)
	if err != nil {
		return err
	}
	if err := w.store.Save(ctx, data); err != nil {
		return err
	}
	w.pending = 0
	return nil
}

// Close releases the underlying store.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	return w.store.Close()
}
