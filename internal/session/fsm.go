package session

import (
	"fmt"

	"github.com/malbeclabs/ipk24chat-client/internal/proto"
)

// State is one of the five session lifecycle states.
type State uint8

const (
	StateStart State = iota
	StateAuth
	StateOpen
	StateError
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateAuth:
		return "AUTH"
	case StateOpen:
		return "OPEN"
	case StateError:
		return "ERROR"
	case StateEnd:
		return "END"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// ErrIllegalOutbound is returned by Session.Auth, Session.Join and
// Session.SendText when kind is not legal to send from the current state.
type ErrIllegalOutbound struct {
	State State
	Kind  proto.Kind
}

func (e *ErrIllegalOutbound) Error() string {
	return fmt.Sprintf("cannot send %s from state %s", e.Kind, e.State)
}

// allowOutbound reports whether kind may be sent from state s. It is a
// pure function of (state, kind); it does not mutate state — the caller
// (Session) applies the resulting transition, since some transitions
// (AUTH→AUTH on retry) are no-ops and others require coordinating the
// queue under the same critical section.
func allowOutbound(s State, k proto.Kind) bool {
	switch k {
	case proto.KindAuth:
		return s == StateStart || s == StateAuth
	case proto.KindJoin, proto.KindMsg:
		return s == StateOpen
	case proto.KindErr:
		return s == StateError
	case proto.KindBye:
		return s != StateEnd
	default:
		return false
	}
}
