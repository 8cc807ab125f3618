// Package sendqueue implements the ordered outbound message queue and its
// scheduler-eligibility predicate: at most one outstanding AUTH/JOIN
// awaiting a REPLY, at most one UDP in-flight message, and a
// priority-clear operation that supersedes all queued work with a
// fixed closing sequence.
package sendqueue

import (
	"context"
	"sync"

	"github.com/malbeclabs/ipk24chat-client/internal/proto"
)

// Queue is the scheduler's owned state: a pending-message slice guarded by
// a mutex, plus the two gates that block dequeue (awaiting-REPLY and,
// for UDP, in-flight). Producers call Enqueue/PriorityClear; exactly one
// consumer goroutine calls Next in a loop.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []proto.Message
	awaiting bool
	inFlight bool
	stopped  bool
	byeSent  bool
}

// New returns an empty, unblocked Queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue validates msg and appends it to the tail of the queue. A message
// failing validation never enters the queue; the caller should surface
// the error as a local ERR line.
func (q *Queue) Enqueue(msg proto.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return nil
	}
	q.items = append(q.items, msg)
	q.cond.Broadcast()
	return nil
}

// SetAwaitingReply sets or clears the awaiting-REPLY gate and wakes the
// scheduler. It is set when an AUTH/JOIN is sent (TCP) or just before it
// is first transmitted (UDP, where the in-flight gate holds the scheduler
// until its CONFIRM), and cleared when the matching REPLY arrives.
func (q *Queue) SetAwaitingReply(v bool) {
	q.mu.Lock()
	q.awaiting = v
	q.cond.Broadcast()
	q.mu.Unlock()
}

// AwaitingReply reports the current state of the gate.
func (q *Queue) AwaitingReply() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.awaiting
}

// SetInFlight sets or clears the UDP in-flight gate and wakes the
// scheduler. TCP sessions never call this; it stays permanently false.
func (q *Queue) SetInFlight(v bool) {
	q.mu.Lock()
	q.inFlight = v
	q.cond.Broadcast()
	q.mu.Unlock()
}

// WatchContext arranges for Stop to be called once ctx is done, so any
// goroutine blocked in Next is released on cancellation without a direct
// reference to the context in the hot wait loop. Call this once per
// Queue lifetime.
func (q *Queue) WatchContext(ctx context.Context) {
	go func() {
		<-ctx.Done()
		q.Stop()
	}()
}

// Next blocks until the head of the queue is eligible to be scheduled —
// i.e. the queue is non-empty and neither gate is set — or until Stop is
// called. It returns (message, true) on success and (zero, false) once
// stopped with nothing left to deliver.
func (q *Queue) Next() (proto.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if len(q.items) > 0 && !q.awaiting && !q.inFlight {
			msg := q.items[0]
			q.items = q.items[1:]
			return msg, true
		}
		if q.stopped && len(q.items) == 0 {
			return proto.Message{}, false
		}
		q.cond.Wait()
	}
}

// ForceSequence atomically drains the queue, clears the awaiting-REPLY
// gate, and installs msgs as the entire remaining queue content, in
// order. It is idempotent: a call after the terminal BYE has already
// been delivered to the scheduler (byeSent) is a no-op, so applying it
// twice in succession is equivalent to applying it once.
func (q *Queue) ForceSequence(msgs ...proto.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.byeSent {
		return
	}
	q.items = append([]proto.Message(nil), msgs...)
	q.awaiting = false
	q.cond.Broadcast()
}

// PriorityClear drops all queued work and installs bye as the sole
// remaining item. See ForceSequence for the idempotence guarantee.
func (q *Queue) PriorityClear(bye proto.Message) {
	q.ForceSequence(bye)
}

// MarkByeSent records that the priority BYE has left the queue, making
// subsequent PriorityClear calls no-ops. Call this once the scheduler has
// dequeued the BYE produced by PriorityClear.
func (q *Queue) MarkByeSent() {
	q.mu.Lock()
	q.byeSent = true
	q.mu.Unlock()
}

// Stop unblocks any goroutine waiting in Next once the queue has drained.
// Already-queued messages are still returned by Next before it reports
// false.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Len reports the number of messages currently queued, for diagnostics and
// tests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
