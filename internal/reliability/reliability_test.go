package reliability_test

import (
	"testing"
	"time"

	"github.com/malbeclabs/ipk24chat-client/internal/proto"
	"github.com/malbeclabs/ipk24chat-client/internal/reliability"
	"github.com/stretchr/testify/require"
)

func TestAssign_incrementsID(t *testing.T) {
	r := reliability.New(3)
	msg := proto.NewBye()

	_, id1 := r.Assign(msg)
	_, id2 := r.Assign(msg)

	require.Equal(t, uint16(0), id1)
	require.Equal(t, uint16(1), id2)
}

func TestStartInFlight_and_Confirm(t *testing.T) {
	r := reliability.New(3)
	msg, id := r.Assign(proto.NewBye())
	r.StartInFlight(msg, id, time.Now())

	require.True(t, r.HasInFlight())

	ok := r.Confirm(id)
	require.True(t, ok)
	require.False(t, r.HasInFlight())
}

func TestConfirm_nonMatchingRefID_leavesRecordUntouched(t *testing.T) {
	r := reliability.New(3)
	msg, id := r.Assign(proto.NewBye())
	r.StartInFlight(msg, id, time.Now())

	ok := r.Confirm(id + 1)
	require.False(t, ok)
	require.True(t, r.HasInFlight())
}

func TestConfirm_closesConfirmedChannel(t *testing.T) {
	r := reliability.New(3)
	msg, id := r.Assign(proto.NewBye())
	r.StartInFlight(msg, id, time.Now())

	ch, ok := r.ConfirmedChan()
	require.True(t, ok)

	r.Confirm(id)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected confirmed channel to close")
	}
}

func TestRetransmit_reusesID_andConsumesAttempts(t *testing.T) {
	r := reliability.New(2) // one initial attempt consumed by StartInFlight, one retry left
	msg, id := r.Assign(proto.NewBye())
	r.StartInFlight(msg, id, time.Now())

	gotMsg, gotID, ok := r.Retransmit(time.Now())
	require.True(t, ok)
	require.Equal(t, id, gotID)
	require.Equal(t, msg.Kind, gotMsg.Kind)

	_, _, ok = r.Retransmit(time.Now())
	require.False(t, ok, "retry budget should be exhausted")
	require.False(t, r.HasInFlight())
}

func TestDeliver_dedup(t *testing.T) {
	r := reliability.New(3)

	require.True(t, r.Deliver(5), "first delivery of id 5 should be accepted")
	require.False(t, r.Deliver(5), "second delivery of id 5 should be rejected as a duplicate")
	require.True(t, r.Deliver(6), "a different id is independent")
}

func TestDueAt_reflectsTimeoutFromLastSend(t *testing.T) {
	r := reliability.New(3)
	msg, id := r.Assign(proto.NewBye())
	start := time.Now()
	r.StartInFlight(msg, id, start)

	due, ok := r.DueAt(250 * time.Millisecond)
	require.True(t, ok)
	require.WithinDuration(t, start.Add(250*time.Millisecond), due, 5*time.Millisecond)
}
