package session

import (
	"context"
	"time"

	"github.com/malbeclabs/ipk24chat-client/internal/proto"
	"github.com/malbeclabs/ipk24chat-client/internal/proto/tcpwire"
	"github.com/malbeclabs/ipk24chat-client/internal/proto/udpwire"
)

// RunScheduler dequeues admissible messages and transmits them, running
// the UDP stop-and-wait retry loop inline for the single message that may
// be in flight at a time. It returns once the queue has drained after
// Stop (normal shutdown) or a send fails.
func RunScheduler(ctx context.Context, s *Session) error {
	s.Queue.WatchContext(ctx)

	for {
		msg, ok := s.Queue.Next()
		if !ok {
			return nil
		}

		// ERR and BYE reach the queue only through Fail/Terminate, which
		// already move the state to its terminal value before enqueueing
		// the closing sequence — checking legality against the
		// post-transition state here would reject the very messages that
		// perform the transition, so only the user-driven kinds are gated.
		if msg.Kind != proto.KindErr && msg.Kind != proto.KindBye && !allowOutbound(s.State(), msg.Kind) {
			s.logger().Warn("session: discarding inadmissible queued message", "session", s.ID, "kind", msg.Kind, "state", s.State())
			continue
		}

		var err error
		if s.IsUDP() {
			err = sendUDP(s, msg)
		} else {
			err = sendTCP(s, msg)
		}
		if err != nil {
			s.logger().Error("session: send failed", "session", s.ID, "kind", msg.Kind, "err", err)
			s.IOError(err)
			return err
		}

		if msg.Kind == proto.KindBye {
			s.NoteByeSent()
			return nil
		}
	}
}

// sendTCP transmits msg as a CRLF line and, for AUTH/JOIN, sets the
// awaiting-REPLY gate immediately on send.
func sendTCP(s *Session, msg proto.Message) error {
	b, err := tcpwire.Encode(msg)
	if err != nil {
		return err
	}
	if err := s.Transport.Send(b); err != nil {
		return err
	}
	if msg.Kind == proto.KindAuth || msg.Kind == proto.KindJoin {
		s.NoteAwaiting(msg.Kind, 0)
	}
	return nil
}

// sendUDP runs the stop-and-wait send of one logical message: assign an
// id, transmit, then retransmit on timeout until the Reliability layer's
// attempt budget (the retries value it was built with) is used up. It
// blocks until the message is confirmed or the retry budget is
// exhausted.
func sendUDP(s *Session, msg proto.Message) error {
	rel := s.Reliability
	assigned, id := rel.Assign(msg)

	b, err := udpwire.Encode(assigned, id)
	if err != nil {
		return err
	}

	rel.StartInFlight(assigned, id, time.Now())
	s.Queue.SetInFlight(true)
	defer s.Queue.SetInFlight(false)

	// Record the outstanding AUTH/JOIN before the datagram goes out, not
	// after the retry loop returns: the receive goroutine can process the
	// server's CONFIRM and its REPLY back-to-back, reaching OnReply before
	// this goroutine would otherwise wake from the confirm/timeout select.
	// OnReply matches by ref_id regardless of how much of our own retry
	// bookkeeping has run, so there is no correctness cost to registering
	// it this early.
	if assigned.Kind == proto.KindAuth || assigned.Kind == proto.KindJoin {
		s.NoteAwaiting(assigned.Kind, id)
	}

	if err := s.Transport.Send(b); err != nil {
		return err
	}

retry:
	for {
		confirmed, has := rel.ConfirmedChan()
		if !has {
			// Confirmed between the send above and here.
			break
		}
		due, _ := rel.DueAt(s.Timeout)
		timer := time.NewTimer(time.Until(due))
		select {
		case <-confirmed:
			timer.Stop()
			break retry
		case <-timer.C:
		}
		if !rel.HasInFlight() {
			break // confirmed right as the timer fired
		}
		m, rid, ok := rel.Retransmit(time.Now())
		if !ok {
			// Retry budget exhausted.
			if assigned.Kind == proto.KindBye {
				s.logger().Info("session: BYE retry budget exhausted, terminating anyway", "session", s.ID)
				return nil
			}
			s.logger().Warn("session: retry budget exhausted, no response from server", "session", s.ID, "kind", assigned.Kind)
			s.Terminate()
			return nil
		}
		rb, err := udpwire.Encode(m, rid)
		if err != nil {
			return err
		}
		if err := s.Transport.Send(rb); err != nil {
			return err
		}
	}

	return nil
}
