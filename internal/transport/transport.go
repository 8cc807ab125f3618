// Package transport defines a small capability interface over "open a
// connection, send bytes, receive bytes, close", implemented once for
// TCP and once for UDP. internal/session is polymorphic over transport
// via this interface, never via a shared base type.
package transport

import "context"

// Kind distinguishes the two transport bindings, since a handful of
// higher-level decisions (framing, the reliability layer, retry policy)
// differ by binding even though the capability surface does not.
type Kind uint8

const (
	TCP Kind = iota
	UDP
)

func (k Kind) String() string {
	if k == TCP {
		return "tcp"
	}
	return "udp"
}

// Transport is the capability set a Session needs from the network. Open
// must be called exactly once before Send/Recv; Close must be called
// exactly once and must unblock any goroutine parked in Recv.
type Transport interface {
	Kind() Kind

	// Open dials addr ("host:port"). For TCP, ctx bounds only the dial
	// itself; the UDP implementation does not consult ctx.
	Open(ctx context.Context, addr string) error

	// Send writes one fully-framed message: a CRLF line for TCP, a single
	// datagram for UDP. No write deadline is set, so Send blocks for as
	// long as the underlying socket write does.
	Send(b []byte) error

	// Recv returns the next chunk of data: for TCP, whatever bytes a single
	// Read call yielded (the caller re-frames); for UDP, exactly one
	// datagram. ctx is checked before each blocking read but the method
	// relies primarily on the underlying socket's read deadline to return
	// promptly so Close/cancellation is observed.
	Recv(ctx context.Context) ([]byte, error)

	// Close releases the underlying socket. Safe to call once; subsequent
	// Send/Recv calls return an error.
	Close() error
}
