// Package eventqueue implements the unbounded FIFO of outbound protocol
// events the ConnectionDriver drains once per message-pump iteration.
//
// The queue is a single mutex guarding a slice, the same shape as the
// teacher's internal/transport.AsyncTx fan-in, adapted from "one goroutine
// consumes a channel" to "one goroutine drains a slice, releasing the lock
// across each event's own send call" per the spec's EventQueue design
// (§4.4): producers enqueuing from other goroutines must never block
// behind a slow network write. Waking the drain loop on a new enqueue is
// the driver's own wakeCh sleeper's job (Driver.wake), not this queue's —
// so there is no condition variable here, only mutual exclusion.
package eventqueue

import (
	"sync"
)

// Sender is implemented by whatever can actually put an event on the wire.
// The driver implements this by forwarding to its ProtocolAdapter/codec
// session.
type Sender interface {
	SendPointerEvent(x, y int, buttonMask uint8) error
	SendKeyEvent(keysym uint32, pressed bool) error
	SendClientCut(text string) error
	SendFormatAndEncodings() error
}

// Kind tags the variant carried by an Event.
type Kind int

const (
	KindPointerMove Kind = iota
	KindKey
	KindClientCut
	KindRefreshFormatAndEncodings
)

// Event is a tagged variant of outbound protocol event. Each event carries
// its own payload and is consumed — sent, then discarded — at most once.
type Event struct {
	Kind       Kind
	X, Y       int
	ButtonMask uint8
	Keysym     uint32
	Pressed    bool
	Text       string
}

// Send dispatches the event to sender. Events are owned exclusively by the
// queue until dequeued; the caller (the driver's drain loop) discards the
// event once Send returns, regardless of error — a failed send does not
// requeue, matching the "exactly once" delivery property.
func (e Event) Send(sender Sender) error {
	switch e.Kind {
	case KindPointerMove:
		return sender.SendPointerEvent(e.X, e.Y, e.ButtonMask)
	case KindKey:
		return sender.SendKeyEvent(e.Keysym, e.Pressed)
	case KindClientCut:
		return sender.SendClientCut(e.Text)
	case KindRefreshFormatAndEncodings:
		return sender.SendFormatAndEncodings()
	default:
		return nil
	}
}

// Queue is a thread-safe FIFO of Events.
type Queue struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

// New creates an empty, ready-to-use Queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends e to the tail of the queue. Callers are responsible for
// only enqueueing while the driver's connection state is Connected
// (invariant 2); the queue itself does not know about connection state
// and will happily accept events regardless — the state gate lives in the
// driver, which is the sole place that has a consistent view of
// "connected". Callers are also responsible for waking the drain loop
// (Driver.wake) after enqueueing; this queue does not do so itself.
func (q *Queue) Enqueue(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.events = append(q.events, e)
}

// DrainInto pops every currently queued event and calls sender's matching
// Send method for each, releasing the internal lock across the call so a
// slow network write never blocks a concurrent Enqueue. stopped is polled
// after each event is dequeued; if it returns true, DrainInto returns
// immediately, discarding (not sending) that event and leaving any later
// events queued until the next drain or Close — this is how Terminate
// wins over in-flight drains without blocking shutdown on a wedged socket.
func (q *Queue) DrainInto(sender Sender, stopped func() bool) {
	for {
		q.mu.Lock()
		if len(q.events) == 0 {
			q.mu.Unlock()
			return
		}
		e := q.events[0]
		q.events = q.events[1:]
		q.mu.Unlock()

		if stopped != nil && stopped() {
			return
		}
		_ = e.Send(sender)
	}
}

// Len reports the number of queued (undelivered) events, for metrics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close marks the queue closed and discards any still-undelivered events,
// so further Enqueue calls are silently dropped. Called once from the
// driver's finish() on loop exit (Driver.Stop triggers Terminate, which
// ends Run's outer loop and defers finish()) so queued-but-undelivered
// events are released deterministically at shutdown rather than lingering
// for the garbage collector to eventually reclaim.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.events = nil
}
