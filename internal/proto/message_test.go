package proto_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/malbeclabs/ipk24chat-client/internal/proto"
	"github.com/stretchr/testify/require"
)

func TestMessage_Validate(t *testing.T) {
	t.Run("NewAuth accepts valid fields", func(t *testing.T) {
		m, err := proto.NewAuth("alice", "Alice", "s3cret")
		require.NoError(t, err)
		require.Equal(t, proto.KindAuth, m.Kind)
	})

	t.Run("NewAuth rejects bad username charset", func(t *testing.T) {
		_, err := proto.NewAuth("ali ce", "Alice", "s3cret")
		require.ErrorIs(t, err, proto.ErrFieldCharset)
	})

	t.Run("NewAuth rejects empty secret", func(t *testing.T) {
		_, err := proto.NewAuth("alice", "Alice", "")
		require.ErrorIs(t, err, proto.ErrFieldTooShort)
	})

	t.Run("NewJoin rejects channel id over max length", func(t *testing.T) {
		_, err := proto.NewJoin(strings.Repeat("a", 21), "Alice")
		require.ErrorIs(t, err, proto.ErrFieldTooLong)
	})

	t.Run("NewMsg rejects content with non-printable byte", func(t *testing.T) {
		_, err := proto.NewMsg("Alice", "hello\x01world")
		require.ErrorIs(t, err, proto.ErrFieldCharset)
	})

	t.Run("NewBye is always valid", func(t *testing.T) {
		m := proto.NewBye()
		require.NoError(t, m.Validate())
	})

	t.Run("NewConfirm validates and carries its ref id", func(t *testing.T) {
		m := proto.NewConfirm(7)
		require.NoError(t, m.Validate())
		require.Equal(t, uint16(7), m.RefID)
	})

	t.Run("Kind.String handles unknown value", func(t *testing.T) {
		var k proto.Kind = 99
		if !strings.Contains(k.String(), "99") {
			t.Errorf("expected String() to mention the numeric value, got %q", k.String())
		}
	})

	t.Run("Validate rejects unknown kind directly", func(t *testing.T) {
		m := proto.Message{Kind: proto.Kind(200)}
		err := m.Validate()
		require.True(t, errors.Is(err, proto.ErrUnknownKind))
	})
}
