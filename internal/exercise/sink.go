package exercise

import (
	"context"
	"sync"

	"go.uber.org/multierr"
)

// Sink receives completed repetitions in rep order. Implementations must not
// reorder or drop events.
type Sink interface {
	Record(ctx context.Context, ev RepEvent) error
}

// Clearer is implemented by sinks that can discard previously recorded events.
// It is called once at the start of an analysis run.
type Clearer interface {
	Clear(ctx context.Context) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev RepEvent) error

// Record calls f.
func (f SinkFunc) Record(ctx context.Context, ev RepEvent) error {
	return f(ctx, ev)
}

// MemorySink keeps recorded events in memory.
type MemorySink struct {
	mu     sync.Mutex
	events []RepEvent
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends ev.
func (s *MemorySink) Record(_ context.Context, ev RepEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Clear drops all events.
func (s *MemorySink) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	return nil
}

// Events returns a copy of the recorded events.
func (s *MemorySink) Events() []RepEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RepEvent, len(s.events))
	copy(out, s.events)
	return out
}

// MultiSink records every event to each of its sinks in order.
type MultiSink []Sink

// Record forwards ev to all sinks. Every sink is attempted; failures are combined.
func (m MultiSink) Record(ctx context.Context, ev RepEvent) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Record(ctx, ev))
	}
	return err
}

// Clear clears every sink that supports it.
func (m MultiSink) Clear(ctx context.Context) error {
	var err error
	for _, s := range m {
		if c, ok := s.(Clearer); ok {
			err = multierr.Append(err, c.Clear(ctx))
		}
	}
	return err
}
