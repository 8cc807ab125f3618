package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

const maxDatagramSize = 1500

// UDPTransport is a Transport backed by a single connected *net.UDPConn.
// Each Recv returns exactly one datagram.
type UDPTransport struct {
	timeout time.Duration

	mu     sync.Mutex
	conn   *net.UDPConn
	closed bool
}

// NewUDP returns an unopened UDP transport that bounds each Recv by
// timeout.
func NewUDP(timeout time.Duration) *UDPTransport {
	return &UDPTransport{timeout: timeout}
}

func (t *UDPTransport) Kind() Kind { return UDP }

func (t *UDPTransport) Open(ctx context.Context, addr string) error {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("udp resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return fmt.Errorf("udp dial %s: %w", addr, err)
	}
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	return nil
}

func (t *UDPTransport) Send(b []byte) error {
	t.mu.Lock()
	conn, closed := t.conn, t.closed
	t.mu.Unlock()
	if closed || conn == nil {
		return net.ErrClosed
	}
	_, err := conn.Write(b)
	return err
}

func (t *UDPTransport) Recv(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	conn, closed := t.conn, t.closed
	t.mu.Unlock()
	if closed || conn == nil {
		return nil, net.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// conn.Read is served by the Go netpoller, which never issues a
	// blocking recv syscall — a socket-level SO_RCVTIMEO has no effect on
	// it. SetReadDeadline is the only mechanism that actually bounds this
	// read.
	_ = conn.SetReadDeadline(time.Now().Add(t.timeout))
	buf := make([]byte, maxDatagramSize)
	n, err := conn.Read(buf)
	if n > 0 {
		out := make([]byte, n)
		copy(out, buf[:n])
		return out, nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return nil, errTimeout
	}
	return nil, err
}

func (t *UDPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
