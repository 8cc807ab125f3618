package tcpwire_test

import (
	"testing"

	"github.com/malbeclabs/ipk24chat-client/internal/proto"
	"github.com/malbeclabs/ipk24chat-client/internal/proto/tcpwire"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		msg  proto.Message
		want string
	}{
		{
			name: "AUTH",
			msg:  mustAuth(t, "alice", "Alice", "s3cret"),
			want: "AUTH alice AS Alice USING s3cret\r\n",
		},
		{
			name: "JOIN",
			msg:  mustJoin(t, "general", "Alice"),
			want: "JOIN general AS Alice\r\n",
		},
		{
			name: "MSG",
			msg:  mustMsg(t, "Alice", "hello there"),
			want: "MSG FROM Alice IS hello there\r\n",
		},
		{
			name: "REPLY OK",
			msg:  mustReply(t, true, "welcome"),
			want: "REPLY OK IS welcome\r\n",
		},
		{
			name: "REPLY NOK",
			msg:  mustReply(t, false, "bad secret"),
			want: "REPLY NOK IS bad secret\r\n",
		},
		{
			name: "BYE",
			msg:  proto.NewBye(),
			want: "BYE\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tcpwire.Encode(tt.msg)
			require.NoError(t, err)
			require.Equal(t, tt.want, string(got))
		})
	}

	t.Run("CONFIRM is unsupported on the TCP wire", func(t *testing.T) {
		_, err := tcpwire.Encode(proto.NewConfirm(1))
		require.ErrorIs(t, err, proto.ErrUnsupportedKind)
	})
}

func TestDecoder_Append(t *testing.T) {
	t.Run("decodes a complete line in one call", func(t *testing.T) {
		var d tcpwire.Decoder
		msgs, err := d.Append([]byte("JOIN general AS Alice\r\n"))
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		require.Equal(t, proto.KindJoin, msgs[0].Kind)
		require.Equal(t, "general", msgs[0].ChannelID)
	})

	t.Run("buffers a partial line across two Append calls", func(t *testing.T) {
		var d tcpwire.Decoder
		msgs, err := d.Append([]byte("MSG FROM Alice IS hel"))
		require.NoError(t, err)
		require.Empty(t, msgs)

		msgs, err = d.Append([]byte("lo\r\n"))
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		require.Equal(t, "hello", msgs[0].Content)
	})

	t.Run("decodes two lines delivered in one chunk", func(t *testing.T) {
		var d tcpwire.Decoder
		msgs, err := d.Append([]byte("BYE\r\nBYE\r\n"))
		require.NoError(t, err)
		require.Len(t, msgs, 2)
	})

	t.Run("rejects a malformed AUTH line", func(t *testing.T) {
		var d tcpwire.Decoder
		_, err := d.Append([]byte("AUTH alice\r\n"))
		require.ErrorIs(t, err, proto.ErrMalformedFrame)
	})

	t.Run("command token is case-insensitive", func(t *testing.T) {
		var d tcpwire.Decoder
		msgs, err := d.Append([]byte("bye\r\n"))
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		require.Equal(t, proto.KindBye, msgs[0].Kind)
	})
}

func mustAuth(t *testing.T, user, display, secret string) proto.Message {
	t.Helper()
	m, err := proto.NewAuth(user, display, secret)
	require.NoError(t, err)
	return m
}

func mustJoin(t *testing.T, channel, display string) proto.Message {
	t.Helper()
	m, err := proto.NewJoin(channel, display)
	require.NoError(t, err)
	return m
}

func mustMsg(t *testing.T, display, content string) proto.Message {
	t.Helper()
	m, err := proto.NewMsg(display, content)
	require.NoError(t, err)
	return m
}

func mustReply(t *testing.T, ok bool, content string) proto.Message {
	t.Helper()
	m, err := proto.NewReply(ok, 0, content)
	require.NoError(t, err)
	return m
}
