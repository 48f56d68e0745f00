package keybus

import (
	"testing"
	"time"
)

func TestBlinkDetectorSteadyOn(t *testing.T) {
	b := newBlinkDetector()
	base := time.Now()

	if b.update(true, base) {
		t.Error("first observation (no prior OFF) should not read as blinking")
	}
	if b.update(true, base.Add(500*time.Millisecond)) {
		t.Error("sustained ON with no OFF samples should never read as blinking")
	}
}

func TestBlinkDetectorDetectsAlternation(t *testing.T) {
	b := newBlinkDetector()
	base := time.Now()

	steps := []struct {
		lit bool
		at  time.Duration
	}{
		{true, 0},
		{false, 300 * time.Millisecond},
		{true, 600 * time.Millisecond},
		{false, 900 * time.Millisecond},
		{true, 1200 * time.Millisecond},
	}
	var on bool
	for _, s := range steps {
		on = b.update(s.lit, base.Add(s.at))
	}
	if !on {
		t.Error("a repeating sub-600ms on/off pattern should read as blinking")
	}
}

func TestBlinkDetectorSettlesToSteadyOn(t *testing.T) {
	b := newBlinkDetector()
	base := time.Now()

	// Establish a blink, then hold the light on well past the on-window
	// with no further OFF samples — the light has stopped blinking.
	b.update(true, base)
	b.update(false, base.Add(300*time.Millisecond))
	b.update(true, base.Add(600*time.Millisecond))
	if on := b.update(true, base.Add(1300*time.Millisecond)); on {
		t.Error("steady ON for longer than the on-window should clear blinking")
	}
}

func TestBlinkDetectorSettlesToSteadyOff(t *testing.T) {
	b := newBlinkDetector()
	base := time.Now()

	b.update(true, base)
	b.update(false, base.Add(300*time.Millisecond))
	b.update(true, base.Add(600*time.Millisecond))
	if on := b.update(false, base.Add(700*time.Millisecond)); !on {
		t.Fatal("setup: expected blinking still latched right after the last ON")
	}
	if on := b.update(false, base.Add(2*time.Second)); on {
		t.Error("sustained OFF past the off-window should clear blinking")
	}
}
