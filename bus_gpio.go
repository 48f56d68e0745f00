package keybus

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIOConfig names the four keybus lines by their periph.io pin names
// (e.g. "GPIO18"). WritePin is optional: leave it empty to run read-only.
type GPIOConfig struct {
	ClockPin string
	DataPin  string
	PC16Pin  string
	WritePin string
}

// GPIOBus is the production Bus backed by real hardware GPIO lines through
// periph.io, the same library and pin-lookup pattern the pack's Wiegand
// reader uses for Raspberry Pi GPIO. The clock pin is configured for
// both-edge interrupts; data, PC16 and write are plain digital I/O sampled
// or driven directly rather than through their own interrupts, mirroring
// how dscClassic.cpp only ever attaches an interrupt to the clock pin.
type GPIOBus struct {
	clock, data, pc16, write gpio.PinIO

	edges chan EdgeEvent
	stop  chan struct{}
	done  chan struct{}
}

// NewGPIOBus initializes the periph.io host (idempotent process-wide) and
// resolves and configures the named pins.
func NewGPIOBus(cfg GPIOConfig) (*GPIOBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("keybus: initializing periph host: %w", err)
	}

	clock := gpioreg.ByName(cfg.ClockPin)
	if clock == nil {
		return nil, fmt.Errorf("keybus: invalid clock pin %q", cfg.ClockPin)
	}
	data := gpioreg.ByName(cfg.DataPin)
	if data == nil {
		return nil, fmt.Errorf("keybus: invalid data pin %q", cfg.DataPin)
	}
	pc16 := gpioreg.ByName(cfg.PC16Pin)
	if pc16 == nil {
		return nil, fmt.Errorf("keybus: invalid PC16 pin %q", cfg.PC16Pin)
	}

	if err := clock.In(gpio.PullNoChange, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("keybus: configuring clock pin %s: %w", cfg.ClockPin, err)
	}
	if err := data.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("keybus: configuring data pin %s: %w", cfg.DataPin, err)
	}
	if err := pc16.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("keybus: configuring PC16 pin %s: %w", cfg.PC16Pin, err)
	}

	b := &GPIOBus{
		clock: clock, data: data, pc16: pc16,
		edges: make(chan EdgeEvent),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	if cfg.WritePin != "" {
		write := gpioreg.ByName(cfg.WritePin)
		if write == nil {
			return nil, fmt.Errorf("keybus: invalid write pin %q", cfg.WritePin)
		}
		if err := write.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("keybus: configuring write pin %s: %w", cfg.WritePin, err)
		}
		b.write = write
	}

	go b.watchClock()

	return b, nil
}

// clockWaitTimeout bounds each WaitForEdge call so watchClock can notice
// b.stop being closed instead of parking forever on a clock edge that may
// never arrive once the bus is being torn down, the same pattern the pack's
// Wiegand reader's watchPin uses for its own GPIO edge loop.
const clockWaitTimeout = 1 * time.Second

// watchClock loops waiting for clock transitions and forwards them to
// WaitClockEdge's callers over b.edges, stopping once b.stop is closed.
func (b *GPIOBus) watchClock() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		default:
		}

		if !b.clock.WaitForEdge(clockWaitTimeout) {
			continue
		}
		at := time.Now()
		edge := FallingEdge
		if b.clock.Read() == gpio.High {
			edge = RisingEdge
		}

		select {
		case b.edges <- EdgeEvent{Edge: edge, At: at}:
		case <-b.stop:
			return
		}
	}
}

// WaitClockEdge blocks until the clock watcher goroutine delivers the next
// transition, or ctx is done.
func (b *GPIOBus) WaitClockEdge(ctx context.Context) (EdgeEvent, error) {
	select {
	case <-ctx.Done():
		return EdgeEvent{}, ctx.Err()
	case ev := <-b.edges:
		return ev, nil
	}
}

func (b *GPIOBus) ReadClock() bool { return b.clock.Read() == gpio.High }
func (b *GPIOBus) ReadData() bool  { return b.data.Read() == gpio.High }
func (b *GPIOBus) ReadPC16() bool  { return b.pc16.Read() == gpio.High }

// SetWrite drives the write pin high to pull the keybus data line low
// through the interface hardware's open-collector stage, or low to
// release it. A nil write pin (read-only configuration) is a no-op.
func (b *GPIOBus) SetWrite(high bool) error {
	if b.write == nil {
		return nil
	}
	level := gpio.Low
	if high {
		level = gpio.High
	}
	return b.write.Out(level)
}

// Close stops the clock watcher goroutine and waits for it to exit. Pins
// themselves are owned by periph.io's host-wide registry for the life of
// the process, so there's nothing else for Close to release.
func (b *GPIOBus) Close() error {
	close(b.stop)
	<-b.done
	return nil
}
