package keybus

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// RecordedEdge is one clock transition plus the data and PC16 line levels
// read as the edge was returned, as captured live or replayed from a file.
type RecordedEdge struct {
	Edge      Edge
	Timestamp time.Time
	Data      bool
	PC16      bool
}

// Recorder encodes a stream of RecordedEdge values with encoding/gob, the
// same codec the teacher's own recorder uses, so a captured bus trace can
// be replayed later through a fresh Interface without the original
// hardware.
type Recorder struct {
	Dest io.Writer

	enc  *gob.Encoder
	once sync.Once
}

// Receive encodes one recorded edge. It is safe to call concurrently with
// itself only insofar as the underlying gob.Encoder and Dest are.
func (r *Recorder) Receive(ev RecordedEdge) error {
	r.init()
	return r.enc.Encode(ev)
}

func (r *Recorder) init() {
	r.once.Do(func() {
		r.enc = gob.NewEncoder(r.Dest)
	})
}

// ReadRecording decodes a gob-encoded recording and sends each edge on
// out, closing it when the stream is exhausted.
func ReadRecording(out chan<- RecordedEdge, r io.Reader) error {
	defer close(out)

	dec := gob.NewDecoder(r)

	for {
		var ev RecordedEdge
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("keybus: decoding recording: %w", err)
		}
		out <- ev
	}
}

// RecordingBus wraps another Bus and forwards every edge it produces to a
// Recorder before returning it to the caller, so a live capture session
// can be recorded transparently.
type RecordingBus struct {
	Bus
	rec *Recorder
}

// NewRecordingBus returns a Bus that records every edge from inner to dest
// as it passes through.
func NewRecordingBus(inner Bus, dest io.Writer) *RecordingBus {
	return &RecordingBus{Bus: inner, rec: &Recorder{Dest: dest}}
}

func (b *RecordingBus) WaitClockEdge(ctx context.Context) (EdgeEvent, error) {
	ev, err := b.Bus.WaitClockEdge(ctx)
	if err != nil {
		return ev, err
	}
	_ = b.rec.Receive(RecordedEdge{
		Edge:      ev.Edge,
		Timestamp: ev.At,
		Data:      b.Bus.ReadData(),
		PC16:      b.Bus.ReadPC16(),
	})
	return ev, nil
}

// ReplayBus is a Bus driven entirely by a previously recorded edge stream,
// with no line-level polling of its own: ReadClock/ReadData/ReadPC16
// report the levels recorded alongside the most recently returned edge.
type ReplayBus struct {
	edges  <-chan RecordedEdge
	clock  bool
	data   bool
	pc16   bool
	closed bool
}

// NewReplayBus returns a Bus that plays back edges as they arrive on the
// channel (typically populated by ReadRecording run in its own goroutine).
func NewReplayBus(edges <-chan RecordedEdge) *ReplayBus {
	return &ReplayBus{edges: edges, clock: true, data: true, pc16: true}
}

func (b *ReplayBus) WaitClockEdge(ctx context.Context) (EdgeEvent, error) {
	if b.closed {
		return EdgeEvent{}, io.EOF
	}
	select {
	case ev, ok := <-b.edges:
		if !ok {
			return EdgeEvent{}, io.EOF
		}
		b.clock = ev.Edge == RisingEdge
		b.data = ev.Data
		b.pc16 = ev.PC16
		return EdgeEvent{Edge: ev.Edge, At: ev.Timestamp}, nil
	case <-ctx.Done():
		return EdgeEvent{}, ctx.Err()
	}
}

func (b *ReplayBus) ReadClock() bool { return b.clock }
func (b *ReplayBus) ReadData() bool  { return b.data }
func (b *ReplayBus) ReadPC16() bool  { return b.pc16 }
func (b *ReplayBus) SetWrite(bool) error { return nil }

func (b *ReplayBus) Close() error {
	b.closed = true
	return nil
}
