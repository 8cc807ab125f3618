package transport_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/malbeclabs/ipk24chat-client/internal/transport"
	"github.com/stretchr/testify/require"
)

func TestTCPTransport_OpenSendRecvRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		require.NoError(t, err)
		accepted <- conn
	}()

	tr := transport.NewTCP()
	require.Equal(t, transport.TCP, tr.Kind())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tr.Open(ctx, ln.Addr().String()))
	defer tr.Close()

	srvConn := <-accepted
	defer srvConn.Close()

	_, err = srvConn.Write([]byte("REPLY OK IS welcome\r\n"))
	require.NoError(t, err)

	recvCtx, recvCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer recvCancel()
	var got []byte
	require.Eventually(t, func() bool {
		b, err := tr.Recv(recvCtx)
		if err != nil {
			return false
		}
		got = b
		return true
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "REPLY OK IS welcome\r\n", string(got))

	require.NoError(t, tr.Send([]byte("BYE\r\n")))
	buf := make([]byte, 64)
	_ = srvConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := srvConn.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "BYE\r\n", string(buf[:n]))
}

func TestTCPTransport_RecvAfterCloseReturnsError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
		}
	}()

	tr := transport.NewTCP()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tr.Open(ctx, ln.Addr().String()))

	require.NoError(t, tr.Close())

	_, err = tr.Recv(context.Background())
	require.Error(t, err)

	err = tr.Send([]byte("x"))
	require.Error(t, err)
}

func TestTCPTransport_RecvTimesOutWithoutData(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(2 * time.Second)
		}
	}()

	tr := transport.NewTCP()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tr.Open(ctx, ln.Addr().String()))
	defer tr.Close()

	_, err = tr.Recv(context.Background())
	require.Error(t, err)
	require.True(t, transport.IsTimeout(err))
}
