package agent

import (
	"sync"

	"github.com/m4xw311/pengy/logger"
)

// Sink receives events in emission order. Emit must not block the caller
// for long; slow consumers should sit behind a QueueSink.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// QueueSink decouples the emitting loop from its consumer. Emit never blocks
// on the consumer and never drops: events are buffered without bound and
// delivered on Events in order. Close after the last Emit; Events is closed
// once the buffer has drained. Events emitted after Close are dropped.
type QueueSink struct {
	in  chan Event
	out chan Event

	mu     sync.Mutex
	closed bool
}

func NewQueueSink() *QueueSink {
	q := &QueueSink{
		in:  make(chan Event),
		out: make(chan Event),
	}
	go q.pump()
	return q
}

func (q *QueueSink) Emit(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		logger.Warn("event emitted after sink close", "kind", e.Kind)
		return
	}
	q.in <- e
}

// Events returns the ordered output stream.
func (q *QueueSink) Events() <-chan Event { return q.out }

// Close signals that no more events will be emitted.
func (q *QueueSink) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.in)
	}
}

func (q *QueueSink) pump() {
	defer close(q.out)
	var pending []Event
	in := q.in
	for in != nil || len(pending) > 0 {
		var out chan Event
		var next Event
		if len(pending) > 0 {
			out = q.out
			next = pending[0]
		}
		select {
		case e, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			pending = append(pending, e)
		case out <- next:
			pending[0] = Event{}
			pending = pending[1:]
		}
	}
}

// Tee fans each event out to every sink in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			s.Emit(e)
		}
	})
}

// Recorder keeps every event it receives. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of what has been recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
