package keybus

import "time"

// blinkDetector consolidates the four near-identical static-timestamp
// blocks in dscClassic.cpp (memory/armed/bypass/trouble light blink
// detection) into one generic detector, instantiated once per light. A
// light is blinking once an ON observation has occurred within 600ms of
// the most recent OFF observation, and stops blinking once 1200ms pass
// with the light continuously off.
type blinkDetector struct {
	timeOn  time.Time
	timeOff time.Time
	on      bool
}

const (
	blinkOnWindow  = 600 * time.Millisecond
	blinkOffWindow = 1200 * time.Millisecond
)

func newBlinkDetector() blinkDetector {
	return blinkDetector{}
}

// update feeds the light's current level at time now and returns whether
// it is currently considered to be blinking.
func (b *blinkDetector) update(lit bool, now time.Time) bool {
	if lit {
		b.timeOn = now
		if !b.timeOff.IsZero() && now.Sub(b.timeOff) < blinkOnWindow {
			b.on = true
		} else {
			b.on = false
		}
	} else {
		b.timeOff = now
		if !b.timeOn.IsZero() && now.Sub(b.timeOn) > blinkOffWindow {
			b.on = false
		}
	}
	return b.on
}
