// Package session implements the transport-independent session FSM and
// the Session aggregate that owns the send queue, the UDP reliability
// layer (when present), and the transport handle — a single value under
// one mutex standing in for what the original client modeled as a
// transport-specific class hierarchy.
package session

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/malbeclabs/ipk24chat-client/internal/proto"
	"github.com/malbeclabs/ipk24chat-client/internal/reliability"
	"github.com/malbeclabs/ipk24chat-client/internal/sendqueue"
	"github.com/malbeclabs/ipk24chat-client/internal/transport"

	"log/slog"
)

// Sink receives the user-visible effects of inbound protocol events. A
// concrete implementation lives in internal/chatlog; tests use a
// recording fake.
type Sink interface {
	Reply(ok bool, text string)
	Chat(displayName, text string)
	PeerError(displayName, text string)
}

// pendingRequest is one outstanding AUTH/JOIN awaiting its REPLY.
type pendingRequest struct {
	kind proto.Kind
	id   uint16 // UDP only
}

// Session is the aggregate root: FSM state, the send queue, the UDP
// reliability layer (nil for TCP), and the transport handle. Exported
// fields are read by internal/session's own scheduler and by
// internal/receiver; FSM-relevant state is behind mu.
type Session struct {
	ID          uuid.UUID
	Transport   transport.Transport
	Queue       *sendqueue.Queue
	Reliability *reliability.Reliability // nil for TCP
	Retries     int
	Timeout     time.Duration

	log  *slog.Logger
	sink Sink

	mu          sync.Mutex
	state       State
	displayName string
	outstanding []pendingRequest
	exitCode    int

	doneOnce sync.Once
	doneCh   chan struct{}
}

// Config collects the construction parameters for New.
type Config struct {
	Transport   transport.Transport
	Reliability *reliability.Reliability // nil selects the TCP (no-reliability) variant
	Retries     int
	Timeout     time.Duration
	DisplayName string
	Sink        Sink
	Log         *slog.Logger
}

// New builds a Session in State START, with an empty send queue ready for
// the scheduler and receiver goroutines to be started against it.
func New(cfg Config) *Session {
	return &Session{
		ID:          uuid.New(),
		Transport:   cfg.Transport,
		Queue:       sendqueue.New(),
		Reliability: cfg.Reliability,
		Retries:     cfg.Retries,
		Timeout:     cfg.Timeout,
		log:         cfg.Log,
		sink:        cfg.Sink,
		state:       StateStart,
		displayName: cfg.DisplayName,
		doneCh:      make(chan struct{}),
	}
}

// IsUDP reports whether this session runs the reliability layer.
func (s *Session) IsUDP() bool { return s.Reliability != nil }

// State returns the current FSM state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DisplayName returns the current local display name.
func (s *Session) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayName
}

// ExitCode returns the process exit code this session has determined so
// far; 0 unless an unrecoverable I/O error occurred.
func (s *Session) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

// Done returns a channel closed once the session has fully terminated:
// the FSM reached END and either the scheduler has finished flushing the
// terminal BYE, or the session ended without one (peer BYE, transport
// error).
func (s *Session) Done() <-chan struct{} { return s.doneCh }

// finish closes Done exactly once.
func (s *Session) finish() {
	s.doneOnce.Do(func() { close(s.doneCh) })
}

// logger returns a non-nil logger, defaulting to a discard logger if none
// was configured (keeps call sites free of nil checks).
func (s *Session) logger() *slog.Logger {
	if s.log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.log
}

// Rename applies a local-only display name change. An invalid name is
// rejected and the current display name is left unchanged.
func (s *Session) Rename(newDisplayName string) error {
	if err := proto.ValidDisplayName(newDisplayName); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	s.mu.Lock()
	s.displayName = newDisplayName
	s.mu.Unlock()
	return nil
}

// Auth validates and enqueues an AUTH request, moving the FSM to AUTH.
// A second AUTH while already in AUTH (after a negative REPLY) is
// permitted.
func (s *Session) Auth(username, secret, displayName string) error {
	s.mu.Lock()
	if !allowOutbound(s.state, proto.KindAuth) {
		st := s.state
		s.mu.Unlock()
		return &ErrIllegalOutbound{State: st, Kind: proto.KindAuth}
	}
	s.mu.Unlock()

	msg, err := proto.NewAuth(username, displayName, secret)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state = StateAuth
	s.displayName = displayName
	s.mu.Unlock()

	return s.Queue.Enqueue(msg)
}

// Join validates and enqueues a JOIN request. Legal only in OPEN.
func (s *Session) Join(channelID string) error {
	s.mu.Lock()
	if !allowOutbound(s.state, proto.KindJoin) {
		st := s.state
		s.mu.Unlock()
		return &ErrIllegalOutbound{State: st, Kind: proto.KindJoin}
	}
	dn := s.displayName
	s.mu.Unlock()

	msg, err := proto.NewJoin(channelID, dn)
	if err != nil {
		return err
	}
	return s.Queue.Enqueue(msg)
}

// SendText validates and enqueues a chat MSG. Legal only in OPEN.
func (s *Session) SendText(content string) error {
	s.mu.Lock()
	if !allowOutbound(s.state, proto.KindMsg) {
		st := s.state
		s.mu.Unlock()
		return &ErrIllegalOutbound{State: st, Kind: proto.KindMsg}
	}
	dn := s.displayName
	s.mu.Unlock()

	msg, err := proto.NewMsg(dn, content)
	if err != nil {
		return err
	}
	return s.Queue.Enqueue(msg)
}

// Terminate drives the session to END via a priority BYE: used for stdin
// EOF, SIGINT, a peer ERR, and UDP retry exhaustion. It is idempotent.
func (s *Session) Terminate() {
	s.mu.Lock()
	if s.state == StateEnd {
		s.mu.Unlock()
		return
	}
	s.state = StateEnd
	s.mu.Unlock()
	s.Queue.PriorityClear(proto.NewBye())
}

// Fail drives the session to END via ERR-then-BYE: used for a protocol
// violation by the peer, or a local violation the caller has decided is
// unrecoverable. reason becomes the ERR content sent to the peer.
func (s *Session) Fail(reason string) {
	s.mu.Lock()
	if s.state == StateEnd {
		s.mu.Unlock()
		return
	}
	s.state = StateError
	dn := s.displayName
	s.mu.Unlock()

	errMsg, err := proto.NewErr(dn, reason)
	if err != nil {
		// reason failed content validation (e.g. empty); fall back to a
		// fixed diagnostic rather than silently dropping the ERR.
		errMsg, _ = proto.NewErr(dn, "protocol error")
	}
	s.logger().Warn("session: protocol failure", "session", s.ID, "reason", reason)
	s.mu.Lock()
	s.state = StateEnd
	s.mu.Unlock()
	s.Queue.ForceSequence(errMsg, proto.NewBye())
}

// IOError handles a fatal transport error: the session closes without
// attempting to send anything further, and the process will exit
// non-zero.
func (s *Session) IOError(err error) {
	s.mu.Lock()
	if s.state == StateEnd {
		s.mu.Unlock()
		return
	}
	s.state = StateEnd
	s.exitCode = 1
	s.mu.Unlock()
	s.logger().Error("session: transport error", "session", s.ID, "err", err)
	s.Queue.Stop()
	s.finish()
}

// NoteAwaiting records that kind (AUTH or JOIN) is now the outstanding
// request awaiting a REPLY, and sets the scheduler's awaiting-REPLY gate.
// TCP callers invoke this immediately after the message is sent; UDP
// callers invoke it just before the first transmission, so a REPLY that
// follows the CONFIRM closely always finds it recorded.
func (s *Session) NoteAwaiting(kind proto.Kind, id uint16) {
	s.mu.Lock()
	s.outstanding = append(s.outstanding, pendingRequest{kind: kind, id: id})
	s.mu.Unlock()
	s.Queue.SetAwaitingReply(true)
}

// NoteByeSent records that the terminal BYE has left the queue. Called by
// the scheduler once it has transmitted (and, for UDP, confirmed or
// exhausted retries on) the BYE produced by Terminate/Fail.
func (s *Session) NoteByeSent() {
	s.Queue.MarkByeSent()
	s.Queue.Stop()
	s.finish()
}

// OnReply processes an inbound REPLY, matching it FIFO (TCP) or by ref_id
// (UDP) against the outstanding AUTH/JOIN.
func (s *Session) OnReply(reply proto.Message) error {
	s.mu.Lock()
	if len(s.outstanding) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("REPLY with no outstanding request")
	}
	pending := s.outstanding[0]
	s.outstanding = s.outstanding[1:]
	isUDP := s.Reliability != nil
	s.mu.Unlock()

	if isUDP && reply.RefID != pending.id {
		return fmt.Errorf("REPLY ref_id %d does not match outstanding request id %d", reply.RefID, pending.id)
	}

	s.Queue.SetAwaitingReply(false)

	if pending.kind == proto.KindAuth && reply.Result {
		s.mu.Lock()
		s.state = StateOpen
		s.mu.Unlock()
	}

	s.sink.Reply(reply.Result, reply.Content)
	return nil
}

// OnMsg processes an inbound chat MSG. Legal only in OPEN.
func (s *Session) OnMsg(msg proto.Message) error {
	if s.State() != StateOpen {
		return fmt.Errorf("MSG received outside OPEN state")
	}
	s.sink.Chat(msg.DisplayName, msg.Content)
	return nil
}

// OnErr processes an inbound peer ERR: render it and terminate gracefully.
func (s *Session) OnErr(msg proto.Message) error {
	st := s.State()
	if st != StateAuth && st != StateOpen {
		return fmt.Errorf("ERR received outside AUTH/OPEN state")
	}
	s.sink.PeerError(msg.DisplayName, msg.Content)
	s.Terminate()
	return nil
}

// OnBye processes a peer-initiated BYE. Legal only in OPEN; moves straight
// to END with no reply of our own.
func (s *Session) OnBye() error {
	s.mu.Lock()
	if s.state != StateOpen {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("BYE received outside OPEN state (in %s)", st)
	}
	s.state = StateEnd
	s.mu.Unlock()
	s.Queue.Stop()
	s.finish()
	return nil
}
