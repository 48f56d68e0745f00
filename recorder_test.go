package keybus

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecorderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rec := &Recorder{Dest: &buf}

	want := []RecordedEdge{
		{Edge: RisingEdge, Timestamp: fixedNow, Data: true, PC16: false},
		{Edge: FallingEdge, Timestamp: fixedNow.Add(time.Millisecond), Data: false, PC16: true},
	}
	for _, ev := range want {
		require.NoError(t, rec.Receive(ev))
	}

	out := make(chan RecordedEdge, len(want))
	require.NoError(t, ReadRecording(out, &buf))

	var got []RecordedEdge
	for ev := range out {
		got = append(got, ev)
	}
	require.Equal(t, want, got)
}

// RecordingBus forwards every edge from the wrapped Bus to the Recorder
// without altering what the caller observes.
func TestRecordingBusForwardsEdges(t *testing.T) {
	inner := NewSimBus()
	inner.PushEdge(RisingEdge, fixedNow, true, false)

	var buf bytes.Buffer
	rbus := NewRecordingBus(inner, &buf)

	ev, err := rbus.WaitClockEdge(context.Background())
	require.NoError(t, err)
	require.Equal(t, RisingEdge, ev.Edge)

	out := make(chan RecordedEdge, 1)
	require.NoError(t, ReadRecording(out, &buf))
	recorded := <-out
	require.Equal(t, RisingEdge, recorded.Edge)
	require.True(t, recorded.Data)
	require.False(t, recorded.PC16)
}

// ReplayBus plays scripted edges back and reports the line levels that
// came with each one until the channel is closed, at which point it
// reports io.EOF.
func TestReplayBusPlaysBackEdges(t *testing.T) {
	edges := make(chan RecordedEdge, 2)
	edges <- RecordedEdge{Edge: RisingEdge, Timestamp: fixedNow, Data: true, PC16: true}
	edges <- RecordedEdge{Edge: FallingEdge, Timestamp: fixedNow.Add(time.Millisecond), Data: false, PC16: false}
	close(edges)

	bus := NewReplayBus(edges)

	ev, err := bus.WaitClockEdge(context.Background())
	require.NoError(t, err)
	require.Equal(t, RisingEdge, ev.Edge)
	require.True(t, bus.ReadData())
	require.True(t, bus.ReadPC16())

	ev, err = bus.WaitClockEdge(context.Background())
	require.NoError(t, err)
	require.Equal(t, FallingEdge, ev.Edge)
	require.False(t, bus.ReadData())

	_, err = bus.WaitClockEdge(context.Background())
	require.Error(t, err)
}
