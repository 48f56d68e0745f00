package keybus

import (
	"context"
	"time"
)

// runCapture is the capture goroutine: it plays the role of the clock-edge
// ISR in dscClassic.cpp, waiting for clock transitions and scheduling the
// deferred sample exactly sampleDelay later. There is no real interrupt
// context in Go, so i.mu below stands in for noInterrupts()/interrupts():
// it is held only for the brief read-modify-write of shared capture state,
// never across a blocking wait.
func (i *Interface) runCapture(ctx context.Context) {
	defer i.wg.Done()

	for {
		ev, err := i.bus.WaitClockEdge(ctx)
		if err != nil {
			return
		}
		i.handleClockEdge(ev)
	}
}

// handleClockEdge mirrors dscClockInterrupt(): on every edge it arms the
// deferred sampler sampleDelay out. On the rising edge it also releases
// the write line and stamps the start of the high period; on the falling
// edge it computes clockHighTime and continues any in-progress virtual
// keypad write.
func (i *Interface) handleClockEdge(ev EdgeEvent) {
	i.mu.Lock()

	if ev.Edge == RisingEdge {
		i.previousClockHigh = ev.At
		i.mu.Unlock()
		// Restores the data line after a virtual keypad write; done
		// outside the lock since SetWrite talks to hardware.
		_ = i.bus.SetWrite(false)
	} else {
		i.clockHighTime = ev.At.Sub(i.previousClockHigh)
		i.continueWrite(ev.At)
		i.mu.Unlock()
	}

	time.AfterFunc(sampleDelay, i.handleDeferredSample)
}

// handleDeferredSample mirrors dscDataInterrupt(): sampleDelay after a
// clock edge, read the clock line to see which half of the cycle it
// settled into. While high, the panel is driving data/PC16 and one bit is
// appended to each channel. While low, keypads/modules may be driving, and
// once the clock has been high for at least interFrameGap this is also
// the cue that the previous frame is complete.
func (i *Interface) handleDeferredSample() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.bus.ReadClock() {
		i.sampleBit()
		return
	}
	i.sampleClockLow()
}

// sampleBit appends one bit, MSB-first, to the current byte of each
// channel and advances the bit/byte counters.
func (i *Interface) sampleBit() {
	if i.isrPanelByteCount >= DataSize {
		return
	}

	if i.isrPanelBitCount < 8 {
		i.isrPanelData[i.isrPanelByteCount] <<= 1
		i.isrPC16Data[i.isrPanelByteCount] <<= 1
		if i.bus.ReadData() {
			i.isrPanelData[i.isrPanelByteCount] |= 1
		}
		if i.bus.ReadPC16() {
			i.isrPC16Data[i.isrPanelByteCount] |= 1
		}
	}

	if i.isrPanelBitCount < 7 {
		i.isrPanelBitCount++
	} else {
		i.isrPanelBitCount = 0
		i.isrPanelByteCount++
	}
	i.isrPanelBitTotal++
}

// sampleClockLow handles the clock-low half of a cycle: keypad/module
// capture, and, once clockHighTime exceeds interFrameGap, publishing the
// just-finished frame and resetting the per-frame counters.
func (i *Interface) sampleClockLow() {
	if i.clockHighTime > interFrameGap {
		i.keybusTime = time.Now()

		skip := i.isrPanelBitTotal < 8
		if !skip {
			if i.LightBlink && i.readyLight {
				skip = false
			} else {
				panelRedundant := i.panelFilter.check(i.isrPanelData[:], i.isrPanelByteCount)
				pc16Redundant := i.pc16Filter.check(i.isrPC16Data[:], i.isrPanelByteCount)
				skip = panelRedundant && pc16Redundant
			}
		}

		if !skip {
			if !i.ring.push(i.isrPanelData, i.isrPC16Data, i.isrPanelBitTotal, i.isrPanelByteCount) {
				i.BufferOverflow = true
			}
		}

		if i.cfg.ProcessModuleData {
			if i.moduleDataDetected {
				i.moduleDataDetected = false
				i.moduleDataCaptured = true
				i.moduleData = i.isrModuleData
				i.moduleBitCount = i.isrModuleBitTotal
				i.moduleByteCount = i.isrModuleByteCount
			}
			i.isrModuleData = [DataSize]byte{}
			i.isrModuleBitTotal = 0
			i.isrModuleBitCount = 0
			i.isrModuleByteCount = 0
		}

		i.isrPanelData = [DataSize]byte{}
		i.isrPC16Data = [DataSize]byte{}
		i.isrPanelBitTotal = 0
		i.isrPanelBitCount = 0
		i.isrPanelByteCount = 0
	}

	if i.cfg.ProcessModuleData && i.isrModuleByteCount < DataSize && i.ring.length <= 1 {
		if i.isrModuleBitCount < 8 {
			i.isrModuleData[i.isrModuleByteCount] <<= 1
			if i.bus.ReadData() {
				i.isrModuleData[i.isrModuleByteCount] |= 1
			} else {
				i.moduleDataDetected = true
			}
		}

		if i.isrModuleBitCount == 7 {
			i.isrModuleBitCount = 0
			i.isrModuleByteCount++
			if i.moduleDataDetected && i.isrModuleData[0] == keyStar {
				i.starKeyDetected = true
			}
		} else {
			i.isrModuleBitCount++
		}
		i.isrModuleBitTotal++
	}
}
