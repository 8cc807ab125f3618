// Package reliability implements the UDP stop-and-wait layer: outbound
// id assignment, the single in-flight record with bounded
// retransmission, and inbound duplicate suppression.
package reliability

import (
	"sync"
	"time"

	"github.com/malbeclabs/ipk24chat-client/internal/proto"
)

// inFlight is the single outstanding unconfirmed outbound message.
type inFlight struct {
	msg       proto.Message
	id        uint16
	attempts  int // attempts remaining, including the one about to be sent
	lastSend  time.Time
	confirmed chan struct{} // closed exactly once, by a matching Confirm
}

// Reliability owns the per-session outbound id counter, the single
// in-flight record, and the inbound dedup set. All methods are safe for
// concurrent use: the scheduler calls Assign/StartInFlight/Retransmit,
// the receive flow calls Confirm/Deliver.
type Reliability struct {
	mu      sync.Mutex
	nextID  uint16
	retries int
	flight  *inFlight
	dedup   map[uint16]struct{}
}

// New creates a Reliability layer configured with retries attempts per
// logical message.
func New(retries int) *Reliability {
	if retries < 1 {
		retries = 1
	}
	return &Reliability{retries: retries, dedup: make(map[uint16]struct{})}
}

// Assign stamps msg as a new logical outbound message, returning the id it
// was given. It must not be called for retransmissions of an already
// in-flight message — those reuse the original id via Retransmit, so a
// message keeps one id across all of its retransmissions.
func (r *Reliability) Assign(msg proto.Message) (proto.Message, uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	return msg, id
}

// StartInFlight records msg/id as the (only) in-flight message, consuming
// one of its retries attempts. Call this when the scheduler transmits the
// queue head for the first time.
func (r *Reliability) StartInFlight(msg proto.Message, id uint16, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flight = &inFlight{msg: msg, id: id, attempts: r.retries - 1, lastSend: now, confirmed: make(chan struct{})}
}

// ConfirmedChan returns the channel that closes when the current in-flight
// record is confirmed, so a waiter can select on it instead of polling.
// The second return value is false if nothing is in flight right now.
func (r *Reliability) ConfirmedChan() (<-chan struct{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flight == nil {
		return nil, false
	}
	return r.flight.confirmed, true
}

// HasInFlight reports whether an unconfirmed message is outstanding.
func (r *Reliability) HasInFlight() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flight != nil
}

// InFlight returns a copy of the current in-flight message, if any.
func (r *Reliability) InFlight() (proto.Message, uint16, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flight == nil {
		return proto.Message{}, 0, false
	}
	return r.flight.msg, r.flight.id, true
}

// Retransmit consumes one retry attempt on the in-flight record and
// reports whether a retransmission should be sent. When it returns
// ok == false, the budget is exhausted and the record has been cleared;
// the caller decides how to handle exhaustion (terminate outright if the
// exhausted message was itself a BYE, otherwise tear the session down).
func (r *Reliability) Retransmit(now time.Time) (msg proto.Message, id uint16, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flight == nil {
		return proto.Message{}, 0, false
	}
	if r.flight.attempts <= 0 {
		r.flight = nil
		return proto.Message{}, 0, false
	}
	r.flight.attempts--
	r.flight.lastSend = now
	return r.flight.msg, r.flight.id, true
}

// DueAt returns the time the in-flight record will next need a
// retransmission decision, and whether one is outstanding at all.
func (r *Reliability) DueAt(timeout time.Duration) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flight == nil {
		return time.Time{}, false
	}
	return r.flight.lastSend.Add(timeout), true
}

// Confirm processes an inbound CONFIRM with the given ref_id. It returns
// true and clears the in-flight record if refID matches; otherwise it
// returns false and leaves the record untouched — a CONFIRM for a stale or
// unknown id is not acted on. The receive path ignores the false result;
// such a CONFIRM is dropped without a log line.
func (r *Reliability) Confirm(refID uint16) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flight == nil || r.flight.id != refID {
		return false
	}
	close(r.flight.confirmed)
	r.flight = nil
	return true
}

// Deliver applies the inbound dedup gate to a non-CONFIRM message
// identified by id. It returns true the first time id is seen (and
// records it for the remainder of the session) and false on every
// subsequent delivery of the same id. Ownership of the dedup set belongs
// to the receive flow; the method itself is safe to call concurrently
// with the scheduler-side methods above.
func (r *Reliability) Deliver(id uint16) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, seen := r.dedup[id]; seen {
		return false
	}
	r.dedup[id] = struct{}{}
	return true
}
