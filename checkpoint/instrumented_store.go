package checkpoint

import (
	"context"

	"github.com/pithecene-io/grove/metrics"
)

// InstrumentedStore wraps a Store and records save outcomes on a
// metrics.Collector. The collector may be nil (all increments are
// nil-safe), so wrapping is always harmless.
type InstrumentedStore struct {
	inner     Store
	collector *metrics.Collector
}

// NewInstrumentedStore wraps store with metrics instrumentation.
func NewInstrumentedStore(store Store, collector *metrics.Collector) *InstrumentedStore {
	return &InstrumentedStore{inner: store, collector: collector}
}

// Save implements Store.
func (s *InstrumentedStore) Save(ctx context.Context, data []byte) error {
	if err := s.inner.Save(ctx, data); err != nil {
		s.collector.IncCheckpointSaveFailure()
		return err
	}
	s.collector.IncCheckpointSave()
	return nil
}

// Load implements Store.
func (s *InstrumentedStore) Load(ctx context.Context) ([]byte, error) {
	return s.inner.Load(ctx)
}

// Close implements Store.
func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}
