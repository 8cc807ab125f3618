package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// recvTimeout bounds each blocking Read so a cancelled context or a Close
// from another goroutine is observed promptly.
const recvTimeout = 1 * time.Second

// TCPTransport is a Transport backed by a single *net.TCPConn.
type TCPTransport struct {
	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// NewTCP returns an unopened TCP transport.
func NewTCP() *TCPTransport { return &TCPTransport{} }

func (t *TCPTransport) Kind() Kind { return TCP }

func (t *TCPTransport) Open(ctx context.Context, addr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("tcp dial %s: %w", addr, err)
	}
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	return nil
}

func (t *TCPTransport) Send(b []byte) error {
	t.mu.Lock()
	conn, closed := t.conn, t.closed
	t.mu.Unlock()
	if closed || conn == nil {
		return net.ErrClosed
	}
	_, err := conn.Write(b)
	return err
}

func (t *TCPTransport) Recv(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	conn, closed := t.conn, t.closed
	t.mu.Unlock()
	if closed || conn == nil {
		return nil, net.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Now().Add(recvTimeout))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return nil, errTimeout
	}
	return nil, err
}

func (t *TCPTransport) Close() error {
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

// errTimeout is returned by Recv on an ordinary read-deadline timeout, so
// callers can distinguish "no data yet, try again" from a genuine socket
// error.
var errTimeout = errors.New("transport: recv timeout")

// IsTimeout reports whether err is the benign recv-timeout sentinel above.
func IsTimeout(err error) bool { return errors.Is(err, errTimeout) }
