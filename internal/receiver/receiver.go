// Package receiver runs the inbound half of a session: one goroutine per
// transport that turns received bytes into decoded messages and hands
// them to the Session for FSM dispatch.
package receiver

import (
	"context"
	"errors"
	"io"

	"github.com/malbeclabs/ipk24chat-client/internal/proto"
	"github.com/malbeclabs/ipk24chat-client/internal/proto/tcpwire"
	"github.com/malbeclabs/ipk24chat-client/internal/proto/udpwire"
	"github.com/malbeclabs/ipk24chat-client/internal/session"
	"github.com/malbeclabs/ipk24chat-client/internal/transport"
)

// dispatch applies one decoded inbound message to s, routing it to the
// matching Session handler. It is shared by both transport loops.
func dispatch(s *session.Session, msg proto.Message) {
	var err error
	switch msg.Kind {
	case proto.KindReply:
		err = s.OnReply(msg)
	case proto.KindMsg:
		err = s.OnMsg(msg)
	case proto.KindErr:
		err = s.OnErr(msg)
	case proto.KindBye:
		err = s.OnBye()
	default:
		err = errors.New("unexpected inbound message kind")
	}
	if err != nil {
		s.Fail(err.Error())
	}
}

// RunTCP reads the stream, reassembles CRLF lines, and dispatches each
// decoded message to s. When the connection closes or fails, or a line is
// malformed, it reports the outcome to s itself (IOError, or Fail for a
// malformed line) rather than leaving that to the caller; a closed stream
// ends the session without sending anything further.
func RunTCP(ctx context.Context, s *session.Session) error {
	var dec tcpwire.Decoder
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		chunk, err := s.Transport.Recv(ctx)
		if err != nil {
			if transport.IsTimeout(err) {
				continue
			}
			if errors.Is(err, io.EOF) {
				s.IOError(err)
				return nil
			}
			s.IOError(err)
			return err
		}
		msgs, err := dec.Append(chunk)
		if err != nil {
			s.Fail("malformed message: " + err.Error())
			return nil
		}
		for _, msg := range msgs {
			dispatch(s, msg)
		}
	}
}

// RunUDP reads one datagram at a time. Every non-CONFIRM datagram is
// CONFIRMed immediately, before the dedup check or FSM dispatch, so the
// peer is acknowledged even when this session has already seen the id. A
// datagram that doesn't parse, at any stage, is treated exactly like a
// malformed TCP frame: it fails the session via ERR-then-BYE rather than
// being silently dropped.
func RunUDP(ctx context.Context, s *session.Session) error {
	rel := s.Reliability
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		data, err := s.Transport.Recv(ctx)
		if err != nil {
			if transport.IsTimeout(err) {
				continue
			}
			s.IOError(err)
			return err
		}

		kind, err := udpwire.HeaderKind(data)
		if err != nil {
			s.Fail("malformed datagram: " + err.Error())
			return nil
		}

		if kind == proto.KindConfirm {
			id, err := udpwire.HeaderID(data)
			if err != nil {
				s.Fail("malformed datagram: " + err.Error())
				return nil
			}
			rel.Confirm(id)
			continue
		}

		id, err := udpwire.HeaderID(data)
		if err != nil {
			s.Fail("malformed datagram: " + err.Error())
			return nil
		}
		if err := s.Transport.Send(mustEncodeConfirm(id)); err != nil {
			s.IOError(err)
			return err
		}

		if !rel.Deliver(id) {
			continue // duplicate: already confirmed and already dispatched
		}

		msg, err := udpwire.Decode(data)
		if err != nil {
			s.Fail("malformed datagram: " + err.Error())
			return nil
		}
		dispatch(s, msg)
	}
}

func mustEncodeConfirm(id uint16) []byte {
	b, err := udpwire.Encode(proto.NewConfirm(id), id)
	if err != nil {
		// CONFIRM has no validated fields; encoding it can never fail.
		panic(err)
	}
	return b
}
