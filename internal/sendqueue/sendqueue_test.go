package sendqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/malbeclabs/ipk24chat-client/internal/proto"
	"github.com/malbeclabs/ipk24chat-client/internal/sendqueue"
	"github.com/stretchr/testify/require"
)

func TestEnqueue_rejectsInvalidMessage(t *testing.T) {
	q := sendqueue.New()
	err := q.Enqueue(proto.Message{Kind: proto.KindAuth}) // empty username/display/secret
	require.Error(t, err)
	require.Equal(t, 0, q.Len())
}

func TestNext_returnsInOrder(t *testing.T) {
	q := sendqueue.New()
	require.NoError(t, q.Enqueue(proto.NewBye()))

	msg, ok := q.Next()
	require.True(t, ok)
	require.Equal(t, proto.KindBye, msg.Kind)
	require.Equal(t, 0, q.Len())
}

func TestNext_blocksOnAwaitingReplyGate(t *testing.T) {
	q := sendqueue.New()
	q.SetAwaitingReply(true)
	require.NoError(t, q.Enqueue(proto.NewBye()))

	done := make(chan struct{})
	go func() {
		q.Next()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Next returned while awaiting-REPLY gate was set")
	case <-time.After(50 * time.Millisecond):
	}

	q.SetAwaitingReply(false)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock after clearing the gate")
	}
}

func TestStop_unblocksNextWithNothingQueued(t *testing.T) {
	q := sendqueue.New()

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Next()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Stop()

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock after Stop")
	}
}

func TestForceSequence_dropsQueuedWorkAndInstallsSequence(t *testing.T) {
	q := sendqueue.New()
	require.NoError(t, q.Enqueue(mustMsg(t)))
	q.SetAwaitingReply(true)

	errMsg := mustErr(t)
	q.ForceSequence(errMsg, proto.NewBye())

	require.False(t, q.AwaitingReply())
	require.Equal(t, 2, q.Len())

	first, ok := q.Next()
	require.True(t, ok)
	require.Equal(t, proto.KindErr, first.Kind)

	second, ok := q.Next()
	require.True(t, ok)
	require.Equal(t, proto.KindBye, second.Kind)
}

func TestPriorityClear_isIdempotentAfterByeSent(t *testing.T) {
	q := sendqueue.New()
	q.PriorityClear(proto.NewBye())
	_, ok := q.Next()
	require.True(t, ok)
	q.MarkByeSent()

	q.PriorityClear(proto.NewBye())
	require.Equal(t, 0, q.Len(), "a PriorityClear after the BYE was sent must be a no-op")
}

func TestWatchContext_stopsQueueOnCancel(t *testing.T) {
	q := sendqueue.New()
	ctx, cancel := context.WithCancel(context.Background())
	q.WatchContext(ctx)

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Next()
		done <- ok
	}()

	cancel()

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock after context cancellation")
	}
}

func mustMsg(t *testing.T) proto.Message {
	t.Helper()
	m, err := proto.NewMsg("Alice", "hello")
	require.NoError(t, err)
	return m
}

func mustErr(t *testing.T) proto.Message {
	t.Helper()
	m, err := proto.NewErr("Alice", "protocol error")
	require.NoError(t, err)
	return m
}
