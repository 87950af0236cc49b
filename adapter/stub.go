package adapter

import (
	"context"
	"sync"
)

// StubPublisher is an in-memory Publisher for testing.
type StubPublisher struct {
	mu     sync.Mutex
	events []SearchCompletedEvent
	closed bool

	// Err, when set, is returned by every Publish call.
	Err error
}

// NewStubPublisher creates an empty stub publisher.
func NewStubPublisher() *StubPublisher {
	return &StubPublisher{}
}

// Publish implements Publisher.
func (p *StubPublisher) Publish(_ context.Context, event *SearchCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, *event)
	return nil
}

// Events returns a copy of the published events in order.
func (p *StubPublisher) Events() []SearchCompletedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SearchCompletedEvent, len(p.events))
	copy(out, p.events)
	return out
}

// Close implements Publisher.
func (p *StubPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *StubPublisher) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

var _ Publisher = (*StubPublisher)(nil)
