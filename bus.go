package keybus

import (
	"context"
	"time"
)

// Edge identifies the direction of a clock transition.
type Edge int

const (
	// RisingEdge is a clock transition from low to high.
	RisingEdge Edge = iota
	// FallingEdge is a clock transition from high to low.
	FallingEdge
)

func (e Edge) String() string {
	if e == RisingEdge {
		return "rising"
	}
	return "falling"
}

// EdgeEvent is a single clock transition, timestamped as close to the
// transition as the underlying transport allows.
type EdgeEvent struct {
	Edge Edge
	At   time.Time
}

// Bus is the timing façade the capture engine runs against: an edge-
// triggered clock line, two sampled input lines (data, PC16), and a single
// write-capable output line for the virtual keypad. Implementations are
// the hardware GPIO bus (bus_gpio.go), the serial capture bridge
// (bus_serial.go), and an in-memory scripted bus for tests (bus_sim.go).
type Bus interface {
	// WaitClockEdge blocks until the next clock transition, or ctx is
	// done. It stands in for the clock-pin interrupt in the original
	// firmware.
	WaitClockEdge(ctx context.Context) (EdgeEvent, error)

	// ReadClock samples the clock line's current level. The deferred
	// sampler uses this, not the edge that woke WaitClockEdge, since by
	// the time it fires the level may have settled differently than the
	// edge direction alone implies.
	ReadClock() bool

	// ReadData samples the data line's current level.
	ReadData() bool

	// ReadPC16 samples the PC16 line's current level.
	ReadPC16() bool

	// SetWrite drives the virtual keypad write line. high pulls the data
	// line low (the hardware is active-low through an open-collector or
	// transistor stage); the Bus implementation owns that inversion.
	SetWrite(high bool) error

	// Close releases any underlying hardware or transport resources.
	Close() error
}
