package events

import "context"

// Sink receives events emitted during a turn. Implementations must be
// safe to call from multiple goroutines, since the runner emits from
// whichever goroutine is driving the graph for a given session.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// ChanSink sends events to a channel, blocking the producer until the
// consumer is ready. This is the channel's unbuffered-semantic default:
// the Event Channel backpressures the producer rather than drop events
// (spec §4.D), so Emit blocks on send except when ctx is cancelled.
type ChanSink struct {
	ch chan<- Event
}

// NewChanSink wraps ch. The caller owns the channel's lifecycle (creation
// and closing); ChanSink never closes it.
func NewChanSink(ch chan<- Event) *ChanSink {
	return &ChanSink{ch: ch}
}

func (s *ChanSink) Emit(ctx context.Context, e Event) {
	select {
	case s.ch <- e:
	case <-ctx.Done():
	}
}

// MultiSink fans one event stream out to several sinks, in order. A slow
// sink backpressures all the others, since Emit is called sequentially;
// callers that need independent pacing should wrap a sink in a buffered
// ChanSink of their own.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink builds a fan-out sink. Nil sinks are dropped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &MultiSink{sinks: filtered}
}

func (s *MultiSink) Emit(ctx context.Context, e Event) {
	for _, sink := range s.sinks {
		sink.Emit(ctx, e)
	}
}

// CallbackSink wraps a plain function as a Sink, for inline observation
// (tests, in-process trace recording).
type CallbackSink struct {
	fn func(ctx context.Context, e Event)
}

// NewCallbackSink builds a sink that invokes fn for every event.
func NewCallbackSink(fn func(ctx context.Context, e Event)) *CallbackSink {
	return &CallbackSink{fn: fn}
}

func (s *CallbackSink) Emit(ctx context.Context, e Event) {
	if s.fn != nil {
		s.fn(ctx, e)
	}
}

// NopSink discards every event. Useful where a Sink is required but the
// caller does not care to observe the stream (e.g. a headless batch run).
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}

// Recorder is a CallbackSink that additionally buffers every event it
// sees, for tests asserting on ordering invariants (I4, I5, I6).
type Recorder struct {
	events []Event
}

// NewRecorder returns a Sink that records every event in arrival order.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(_ context.Context, e Event) {
	r.events = append(r.events, e)
}

// Events returns the events recorded so far, in arrival order.
func (r *Recorder) Events() []Event {
	return r.events
}
