package keybus

import (
	"context"
	"sync"
	"time"
)

// SimBus is a scripted, in-process Bus for deterministic tests of the
// capture engine, frame segmenter and virtual keypad transmitter: no
// hardware, no network, just a slice of timestamped edges fed in through
// PushEdge and line levels read back through ReadClock/ReadData/ReadPC16.
// All state is guarded by one mutex, playing the same role the pack's
// simulated bus (omSquare-zen-bus's SimBus) gives its single dispatch
// goroutine, minus the networking this module has no need for.
type SimBus struct {
	mu       sync.Mutex
	clock    bool
	data     bool
	pc16     bool
	edges    []EdgeEvent
	writeLog []bool
	closed   bool
}

// NewSimBus returns a bus with both lines idle high (the keybus's resting
// state between frames).
func NewSimBus() *SimBus {
	return &SimBus{clock: true, data: true, pc16: true}
}

// PushEdge enqueues a clock transition and sets the line levels a reader
// should observe starting immediately after it, letting a test script a
// full frame: rising edge with data/pc16 bit, hold, falling edge, repeat.
func (b *SimBus) PushEdge(edge Edge, at time.Time, data, pc16 bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clock = edge == RisingEdge
	b.data = data
	b.pc16 = pc16
	b.edges = append(b.edges, EdgeEvent{Edge: edge, At: at})
}

// WaitClockEdge returns the next scripted edge, blocking until PushEdge
// supplies one or ctx is done.
func (b *SimBus) WaitClockEdge(ctx context.Context) (EdgeEvent, error) {
	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return EdgeEvent{}, context.Canceled
		}
		if len(b.edges) > 0 {
			ev := b.edges[0]
			b.edges = b.edges[1:]
			b.mu.Unlock()
			return ev, nil
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return EdgeEvent{}, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (b *SimBus) ReadClock() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clock
}

func (b *SimBus) ReadData() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

func (b *SimBus) ReadPC16() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pc16
}

// SetWrite records every write-pin assertion so a test can assert the
// virtual keypad transmitter pulled the data line low at the bit slots it
// expected.
func (b *SimBus) SetWrite(high bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeLog = append(b.writeLog, high)
	return nil
}

// WriteLog returns every SetWrite call recorded so far, oldest first.
func (b *SimBus) WriteLog() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]bool, len(b.writeLog))
	copy(out, b.writeLog)
	return out
}

func (b *SimBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
