package keybus

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.bug.st/serial"
)

// serialRecordSize is the wire size of one edge/sample record streamed by
// the edge bridge: a 1-byte tag (bit 0 = edge direction, bit 1 = data
// level, bit 2 = PC16 level) followed by an 8-byte big-endian Unix
// nanosecond timestamp taken by the bridge at the moment it observed the
// transition.
const serialRecordSize = 9

const (
	serialTagRising byte = 1 << 0
	serialTagData   byte = 1 << 1
	serialTagPC16   byte = 1 << 2
)

// SerialBusConfig configures the connection to an external microcontroller
// ("edge bridge") that samples the clock/data/PC16 lines itself and
// streams timestamped transition records over USB serial, for deployments
// where the host running this package isn't wired directly to the keybus.
type SerialBusConfig struct {
	Port     string
	Baud     int
	WritePin bool // whether this bridge exposes a write command at all
}

// SerialBus is a Bus backed by go.bug.st/serial, the teacher's own serial
// transport dependency, repointed from reading an LCD keypad's proprietary
// UART to reading a framed edge/sample stream. A dropped connection is
// retried with exponential backoff (github.com/cenkalti/backoff/v4, the
// retry library the pack's other alarm-panel repo uses for its own
// reconnect logic) rather than surfacing every transient I/O error to the
// capture loop.
type SerialBus struct {
	cfg  SerialBusConfig
	port serial.Port

	mu                sync.Mutex
	clock, data, pc16 bool
	closed            bool
}

// OpenSerialBus opens the named serial port (at 115200 baud when Baud is
// zero). It reads nothing from the bridge; the first record is read by the
// first WaitClockEdge call.
func OpenSerialBus(cfg SerialBusConfig) (*SerialBus, error) {
	if cfg.Baud == 0 {
		cfg.Baud = 115200
	}
	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.Baud})
	if err != nil {
		return nil, fmt.Errorf("keybus: opening serial bridge %s: %w", cfg.Port, err)
	}
	return &SerialBus{cfg: cfg, port: port}, nil
}

// WaitClockEdge reads the next edge/sample record from the bridge,
// reconnecting with exponential backoff (capped at 5s between attempts,
// given up on only when ctx is done) if the port errors out.
func (b *SerialBus) WaitClockEdge(ctx context.Context) (EdgeEvent, error) {
	rec := make([]byte, serialRecordSize)

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 0

	var ev EdgeEvent
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		if _, err := io.ReadFull(b.port, rec); err != nil {
			if reopenErr := b.reopen(); reopenErr != nil {
				return fmt.Errorf("keybus: serial bridge read: %w (reopen: %v)", err, reopenErr)
			}
			return fmt.Errorf("keybus: serial bridge read: %w", err)
		}

		tag := rec[0]
		nanos := int64(binary.BigEndian.Uint64(rec[1:]))
		edge := FallingEdge
		if tag&serialTagRising != 0 {
			edge = RisingEdge
		}
		b.mu.Lock()
		b.clock = edge == RisingEdge
		b.data = tag&serialTagData != 0
		b.pc16 = tag&serialTagPC16 != 0
		b.mu.Unlock()
		ev = EdgeEvent{Edge: edge, At: time.Unix(0, nanos)}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return EdgeEvent{}, err
	}
	return ev, nil
}

func (b *SerialBus) reopen() error {
	_ = b.port.Close()
	port, err := serial.Open(b.cfg.Port, &serial.Mode{BaudRate: b.cfg.Baud})
	if err != nil {
		return err
	}
	b.port = port
	return nil
}

// ReadClock reports the level implied by the most recently read record's
// edge direction, since the bridge streams transitions rather than a
// continuously-pollable line: the clock doesn't flip again inside the
// 250us sample window, so the level observed at the edge still holds when
// the deferred sampler calls this.
func (b *SerialBus) ReadClock() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clock
}

func (b *SerialBus) ReadData() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

func (b *SerialBus) ReadPC16() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pc16
}

// SetWrite sends a single-byte write command to the bridge if it was
// configured with WritePin; otherwise it is a documented no-op, since not
// every bridge wires up the virtual keypad's data line.
func (b *SerialBus) SetWrite(high bool) error {
	if !b.cfg.WritePin {
		return nil
	}
	cmd := byte(0x00)
	if high {
		cmd = 0x01
	}
	_, err := b.port.Write([]byte{cmd})
	if err != nil {
		return fmt.Errorf("keybus: serial bridge write command: %w", err)
	}
	return nil
}

func (b *SerialBus) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.port.Close()
}
