package keybus

import (
	"testing"
	"time"
)

// sampleBit appends one bit per call, MSB-first, to the active byte of
// both channels.
func TestSampleBitAccumulatesFrame(t *testing.T) {
	i := newTestInterface()
	bus := NewSimBus()
	i.bus = bus

	// 0xA5 = 10100101 on data, 0x5A = 01011010 on PC16.
	dataBits := []bool{true, false, true, false, false, true, false, true}
	pc16Bits := []bool{false, true, false, true, true, false, true, false}

	for idx := range dataBits {
		bus.data = dataBits[idx]
		bus.pc16 = pc16Bits[idx]
		i.sampleBit()
	}

	if i.isrPanelData[0] != 0xA5 {
		t.Errorf("isrPanelData[0] = %#02x, want 0xA5", i.isrPanelData[0])
	}
	if i.isrPC16Data[0] != 0x5A {
		t.Errorf("isrPC16Data[0] = %#02x, want 0x5A", i.isrPC16Data[0])
	}
	if i.isrPanelByteCount != 1 || i.isrPanelBitCount != 0 {
		t.Errorf("byteCount=%d bitCount=%d, want 1/0 after a full byte", i.isrPanelByteCount, i.isrPanelBitCount)
	}
	if i.isrPanelBitTotal != 8 {
		t.Errorf("isrPanelBitTotal = %d, want 8", i.isrPanelBitTotal)
	}
}

// sampleClockLow, once the clock has been high longer than interFrameGap,
// publishes the just-finished frame onto the ring and resets the ISR
// counters for the next one.
func TestSampleClockLowPublishesFrame(t *testing.T) {
	i := newTestInterface()
	bus := NewSimBus()
	i.bus = bus

	i.isrPanelData[0] = 0x80
	i.isrPC16Data[0] = 0x00
	i.isrPanelBitTotal = 8
	i.isrPanelByteCount = 1
	i.clockHighTime = interFrameGap + time.Millisecond

	i.sampleClockLow()

	if i.ring.length != 1 {
		t.Fatalf("ring.length = %d, want 1", i.ring.length)
	}
	frame, ok := i.ring.drainOne()
	if !ok || frame.PanelData[0] != 0x80 {
		t.Errorf("drained frame PanelData[0] = %#02x, want 0x80", frame.PanelData[0])
	}
	if i.isrPanelBitTotal != 0 || i.isrPanelByteCount != 0 {
		t.Error("ISR counters should reset once the frame is published")
	}
}

// A second frame identical to the first on both channels is suppressed by
// the redundancy filters rather than queued again.
func TestSampleClockLowSkipsRedundantFrame(t *testing.T) {
	i := newTestInterface()
	bus := NewSimBus()
	i.bus = bus

	publish := func(panel byte) {
		i.isrPanelData[0] = panel
		i.isrPanelBitTotal = 8
		i.isrPanelByteCount = 1
		i.clockHighTime = interFrameGap + time.Millisecond
		i.sampleClockLow()
	}

	publish(0x80)
	publish(0x80)

	if i.ring.length != 1 {
		t.Errorf("ring.length = %d, want 1 (second identical frame suppressed)", i.ring.length)
	}
}

// Once the ring is saturated, further frames set BufferOverflow instead of
// blocking or panicking.
func TestSampleClockLowSetsBufferOverflow(t *testing.T) {
	i := newTestInterface()
	bus := NewSimBus()
	i.bus = bus

	for n := 0; n <= BufferSize; n++ {
		i.isrPanelData[0] = byte(n + 1) // vary the frame so it is never redundant
		i.isrPanelBitTotal = 8
		i.isrPanelByteCount = 1
		i.clockHighTime = interFrameGap + time.Millisecond
		i.sampleClockLow()
	}

	if !i.BufferOverflow {
		t.Error("expected BufferOverflow once more than BufferSize frames were queued")
	}
	if i.ring.length != BufferSize {
		t.Errorf("ring.length = %d, want capped at %d", i.ring.length, BufferSize)
	}
}
