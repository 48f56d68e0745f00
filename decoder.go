package keybus

import "time"

// ExitState values, matching the PowerSeries compatibility vocabulary this
// decoder emits.
const (
	ExitStateNone int = iota
	ExitStateStay
	ExitStateAway
	ExitStateNoEntryDelay
)

const (
	keybusTimeout       = 3 * time.Second
	writeCooldown       = 500 * time.Millisecond
	writeInterKeyWait   = 50 * time.Millisecond
	exitDelayDelatch    = 400 * time.Millisecond
	armedStayRetainTime = 2 * time.Second
	keypadAlarmDebounce = 1 * time.Second

	beepNormalMax     = 90 * time.Millisecond
	beepLockoutMax    = 800 * time.Millisecond
	beepInvalidMax    = 1200 * time.Millisecond
)

// Loop drains at most one queued frame, updates liveness, advances any
// pending multi-key write, and — once a frame has been decoded — runs the
// status decoder. It must be called frequently (well under the keybus's
// own timing, in practice every few milliseconds) for timely decoding and
// write progress, mirroring the cooperative-loop model in dscClassic.cpp.
// Loop reports whether new state was decoded this call.
func (i *Interface) Loop() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := time.Now()
	i.keybusConnected = now.Sub(i.keybusTime) <= keybusTimeout
	if i.previousKeybus != i.keybusConnected {
		i.previousKeybus = i.keybusConnected
		i.KeybusChanged = true
		if !i.PauseStatus {
			i.StatusChanged = true
		}
		if !i.keybusConnected {
			return true
		}
	}

	if i.writeKeysPending {
		i.advanceWriteKeys()
	}

	frame, ok := i.ring.drainOne()
	if !ok {
		return false
	}

	i.panelData = frame.PanelData
	i.pc16Data = frame.PC16Data
	i.panelBitCount = frame.BitCount
	i.panelByteCount = frame.ByteCount

	if i.startupCycle {
		if i.panelByteCount < 2 || i.pc16Data[0] == 0xFF {
			return false
		}
		i.startupCycle = false
		i.WriteReady = true
		if i.panelByteCount == 3 {
			i.statusByte = 2
		}
	}

	i.WriteReady = !i.writeKeyPending && !i.writeKeysPending

	i.processPanelStatus(now)
	return true
}

// processPanelStatus is the foreground decode step, mirroring
// processPanelStatus() in dscClassic.cpp: it lifts the keypad lights and
// PC16 bits out of the latched statusByte, updates blink and beep
// tracking, and derives ready/armed/alarm/exit-delay/zone state.
func (i *Interface) processPanelStatus(now time.Time) {
	sb := i.statusByte

	i.readyLight = bitRead(i.panelData[sb], 7)
	i.armedLight = bitRead(i.panelData[sb], 6)
	i.memoryLight = bitRead(i.panelData[sb], 5)
	i.bypassLight = bitRead(i.panelData[sb], 4)
	i.troubleLight = bitRead(i.panelData[sb], 3)
	i.programLight = bitRead(i.panelData[sb], 2)
	i.fireLight = bitRead(i.panelData[sb], 1)
	i.beep = bitRead(i.panelData[sb], 0)

	var lights byte
	lights = setBit(lights, 0, i.readyLight)
	lights = setBit(lights, 1, i.armedLight)
	lights = setBit(lights, 2, i.memoryLight)
	lights = setBit(lights, 3, i.bypassLight)
	lights = setBit(lights, 4, i.troubleLight)
	lights = setBit(lights, 5, i.programLight)
	lights = setBit(lights, 6, i.fireLight)
	i.Lights = lights
	if lights != i.previousLights {
		i.previousLights = lights
		i.markStatusChanged()
	}

	i.troubleBit = bitRead(i.pc16Data[sb], 7)
	i.armedBypassBit = bitRead(i.pc16Data[sb], 6)
	i.armedBitA = bitRead(i.pc16Data[sb], 5)
	i.armedBitB = bitRead(i.pc16Data[sb], 4)
	i.alarmBit = bitRead(i.pc16Data[sb], 0)

	i.memoryBlink = i.memoryBlinkDet.update(i.memoryLight, now)
	i.armedBlink = i.armedBlinkDet.update(i.armedLight, now)
	i.bypassBlink = i.bypassBlinkDet.update(i.bypassLight, now)
	i.troubleBlink = i.troubleBlinkDet.update(i.troubleLight, now)
	i.LightBlink = i.memoryBlink || i.armedBlink || i.bypassBlink || i.troubleBlink

	i.processBeep(now)
	i.processArmed(now)
	i.processReady(now)
	i.processZones()
	i.processAlarmZones()
	i.processAlarm()
	i.processTrouble()
	i.processFire()
	i.processKeypadAlarms(now)

	i.Status = deriveStatus(i.Status, statusInputs{
		lights:             lights,
		memoryBlink:        i.memoryBlink,
		bypassBlink:        i.bypassBlink,
		troubleBlink:       i.troubleBlink,
		readyChanged:       i.ReadyChanged,
		ready:              i.Ready,
		openZonesChanged:   i.OpenZonesStatusChanged,
		anyOpenZone:        i.OpenZones[0] != 0 || i.OpenZones[1] != 0,
		armedChanged:       i.ArmedChanged,
		armed:              i.Armed,
		armedAway:          i.ArmedAway,
		armedStay:          i.ArmedStay,
		noEntryDelay:       i.NoEntryDelay,
		alarmChanged:       i.AlarmChanged,
		alarm:              i.Alarm,
		exitDelayChanged:   i.ExitDelayChanged,
		exitDelay:          i.ExitDelay,
	})
	if i.Status != i.previousStatus {
		i.previousStatus = i.Status
		i.markStatusChanged()
	}
}

// processBeep buckets a completed beep into the PowerSeries-compatible
// status code, per dscClassic.cpp's beep handling.
func (i *Interface) processBeep(now time.Time) {
	if i.beep {
		i.beepTimeStart = now
		i.beepOn = true
		return
	}
	if !i.beepOn {
		return
	}
	i.beepOn = false
	d := now.Sub(i.beepTimeStart)
	switch {
	case d <= beepNormalMax:
		if i.Status == 0x0E {
			i.ReadyChanged = true
		}
	case d <= beepLockoutMax:
		if i.Lights == 0 {
			i.Status = 0x10
			i.ReadyChanged = false
		}
	case d < beepInvalidMax:
		if i.Lights == 0 {
			i.Status = 0x8F
		} else {
			i.Status = 0x0E
		}
		i.ReadyChanged = false
	}
}

// processArmed mirrors the "Armed status" block of processPanelStatus().
func (i *Interface) processArmed(now time.Time) {
	if i.armedBitA {
		i.Armed = true
		i.exitDelayArmed = true

		if i.bypassLight || i.armedBypassBit {
			i.ArmedStay = true
			i.armedStayTriggered = true
			i.ArmedAway = false
		} else if i.armedStayTriggered {
			// The original firmware compares against a beepTimeOff that
			// is never reassigned along this path, so in practice this
			// guard degenerates to "more than 2s since boot," a latch
			// rather than a real debounce on the last beep. Preserved
			// as-is; see DESIGN.md Open Questions.
			if !i.beep && !i.alarmBit && now.Sub(i.bootTime) > armedStayRetainTime {
				i.ArmedStay = false
				i.ArmedAway = true
			}
		} else {
			i.ArmedStay = false
			i.ArmedAway = true
		}

		if i.armedBlink && i.armedBitA == i.armedBitB {
			i.NoEntryDelay = true
			i.setExitState(ExitStateNoEntryDelay)
		}

		i.setReady(false)
	} else {
		i.armedStayTriggered = false
		i.setArmed(false)
		i.setAlarm(false)
	}

	if i.Armed != i.previousArmed || i.ArmedStay != i.previousArmedStay || i.ArmedAway != i.previousArmedAway {
		i.previousArmed = i.Armed
		i.previousArmedStay = i.ArmedStay
		i.previousArmedAway = i.ArmedAway
		i.ArmedChanged = true
		i.markStatusChanged()
	}
}

// processReady mirrors the "Ready status" block.
func (i *Interface) processReady(now time.Time) {
	if i.readyLight && !i.armedBitA {
		i.setReady(true)
		i.setArmed(false)
		i.setAlarm(false)
		i.exitDelayArmed = false
		i.previousAlarmTriggered = false
		i.starKeyDetected = false
		if !i.armedBlink {
			i.NoEntryDelay = false
		}

		if i.armedLight {
			i.setExitDelay(true)
			i.exitDelayTriggered = true
			if i.ExitState != ExitStateNoEntryDelay {
				if i.bypassLight {
					i.setExitState(ExitStateStay)
				} else {
					i.setExitState(ExitStateAway)
				}
			}
		} else if !i.exitDelayArmed && !i.armedBlink && now.Sub(i.armedBlinkDet.timeOn) > exitDelayDelatch {
			i.setExitDelay(false)
			i.setExitState(ExitStateNone)
		}
		return
	}

	sb := i.statusByte
	if i.panelData[sb-1] != 0 || (sb == 3 && (i.panelData[sb-1] != 0 || i.panelData[sb-2] != 0)) {
		i.setReady(false)
	}
	if i.exitDelayArmed && !i.armedBitA {
		i.setReady(false)
		i.exitDelayArmed = false
	}
	if i.ExitDelay && i.armedBitA {
		i.setExitDelay(false)
	}
}

// processZones mirrors the "Zones status" block: zone-light bits below
// statusByte are copied into OpenZones, bit-reversed from the panel's
// MSB-first layout into zone order. A bit is left untouched (carrying its
// previous value forward) when that zone is flagged in zonesTriggered or
// the PC16 alarm bit is set, unless we are in exit delay.
func (i *Interface) processZones() {
	if i.previousAlarmTriggered || i.memoryBlink || i.bypassBlink || i.troubleBlink || i.starKeyDetected {
		return
	}

	sb := i.statusByte
	triggeredByte := i.zonesTriggered[sb-1]
	for grp := 1; grp <= sb; grp++ {
		idx := grp - 1
		zones := i.OpenZones[idx]
		for bit := 7; bit >= 0; bit-- {
			if (!bitRead(triggeredByte, uint(bit)) && !i.alarmBit) || i.ExitDelay {
				zones = setBit(zones, uint(7-bit), bitRead(i.panelData[sb-grp], uint(bit)))
			}
		}

		changed := zones ^ i.previousOpenZones[idx]
		i.OpenZones[idx] = zones
		if changed != 0 {
			i.previousOpenZones[idx] = zones
			i.OpenZonesStatusChanged = true
			i.markStatusChanged()
			i.OpenZonesChanged[idx] |= changed
		}
	}
}

// processAlarmZones mirrors the "Alarm zones status" block: bits 7..2 of
// the byte below statusByte in the PC16 channel form AlarmZones[0], and
// feed back into OpenZones while the alarm is active so callers see those
// zones appear to open.
func (i *Interface) processAlarmZones() {
	sb := i.statusByte
	var zones byte
	for bit := 7; bit > 1; bit-- {
		if bitRead(i.pc16Data[sb-1], uint(bit)) {
			zones = setBit(zones, uint(7-bit), true)
			i.zonesTriggered[0] = setBit(i.zonesTriggered[0], uint(7-bit), true)
		}
	}
	changed := zones ^ i.previousAlarmZones[0]
	i.AlarmZones[0] = zones
	if changed == 0 {
		return
	}
	i.previousAlarmZones[0] = zones
	i.AlarmZonesStatusChanged = true
	i.markStatusChanged()
	i.AlarmZonesChanged[0] |= changed

	if !i.alarmBit {
		return
	}
	for bit := uint(0); bit < 8; bit++ {
		if changed&(1<<bit) == 0 {
			continue
		}
		lit := bitRead(i.AlarmZones[0], bit)
		i.OpenZones[0] = setBit(i.OpenZones[0], bit, lit)
		i.OpenZonesChanged[0] |= 1 << bit
		i.OpenZonesStatusChanged = true
	}
	i.previousOpenZones[0] = i.OpenZones[0]
}

// processAlarm mirrors the "Alarm status" block, including the dead-code
// looking `panelData[statusByte] & 0xFE` gate preserved from the original
// firmware (see DESIGN.md Open Questions).
func (i *Interface) processAlarm() {
	if i.panelData[i.statusByte]&0xFE == 0 {
		return
	}
	if i.alarmBit && !i.memoryBlink {
		i.setReady(false)
		i.setAlarm(true)
		i.alarmTriggered = true
	} else if !i.memoryBlink && !i.ArmedChanged {
		i.setAlarm(false)
		if i.alarmTriggered {
			i.alarmTriggered = false
			i.previousAlarmTriggered = true
		}
	}
}

func (i *Interface) processTrouble() {
	i.Trouble = i.troubleBit
	if i.Trouble != i.previousTrouble {
		i.previousTrouble = i.Trouble
		i.TroubleChanged = true
		i.markStatusChanged()
	}
}

func (i *Interface) processFire() {
	i.Fire = bitRead(i.pc16Data[i.statusByte-1], 0)
	if i.Fire != i.previousFire {
		i.previousFire = i.Fire
		i.FireChanged = true
		i.markStatusChanged()
	}
}

// processKeypadAlarms latches the keypad fire/aux/panic flags, rate-
// limited to one latch per second each.
func (i *Interface) processKeypadAlarms(now time.Time) {
	sb := i.statusByte
	if bitRead(i.pc16Data[sb], 1) && now.Sub(i.previousFireAlarmTime) > keypadAlarmDebounce {
		i.KeypadFireAlarm = true
		i.previousFireAlarmTime = now
		i.markStatusChanged()
	}
	if bitRead(i.pc16Data[sb], 2) && now.Sub(i.previousAuxAlarmTime) > keypadAlarmDebounce {
		i.KeypadAuxAlarm = true
		i.previousAuxAlarmTime = now
		i.markStatusChanged()
	}
	if bitRead(i.pc16Data[sb], 3) && now.Sub(i.previousPanicAlarmTime) > keypadAlarmDebounce {
		i.KeypadPanicAlarm = true
		i.previousPanicAlarmTime = now
		i.markStatusChanged()
	}
}

func (i *Interface) setReady(v bool) {
	i.Ready = v
	if i.Ready != i.previousReady {
		i.previousReady = i.Ready
		i.ReadyChanged = true
		i.markStatusChanged()
	}
}

func (i *Interface) setAlarm(v bool) {
	i.Alarm = v
	if i.Alarm != i.previousAlarm {
		i.previousAlarm = i.Alarm
		i.AlarmChanged = true
		i.markStatusChanged()
	}
}

func (i *Interface) setExitDelay(v bool) {
	i.ExitDelay = v
	if i.ExitDelay != i.previousExitDelay {
		i.previousExitDelay = i.ExitDelay
		i.ExitDelayChanged = true
		i.markStatusChanged()
	}
}

func (i *Interface) setExitState(v int) {
	if v != i.previousExitState {
		i.previousExitState = v
		i.ExitDelayChanged = true
		i.markStatusChanged()
	}
	i.ExitState = v
}

// setArmed mirrors processArmedStatus(): a single boolean drives armed,
// armedStay and armedAway together when disarming outright.
func (i *Interface) setArmed(v bool) {
	i.ArmedStay = v
	i.ArmedAway = v
	i.Armed = v
	if i.Armed != i.previousArmed {
		i.previousArmed = i.Armed
		i.ArmedChanged = true
		i.markStatusChanged()
	}
}

func (i *Interface) markStatusChanged() {
	if !i.PauseStatus {
		i.StatusChanged = true
	}
}

// HandleModule reports whether a keypad/module transmission was captured
// since the last call, consuming the flag. It returns false if fewer than
// 8 module bits were seen; no decoding beyond the `*`-key check in the ISR
// is performed here, matching handleModule() in dscClassic.cpp.
func (i *Interface) HandleModule() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.moduleDataCaptured {
		return false
	}
	i.moduleDataCaptured = false
	return i.moduleBitCount >= 8
}

func bitRead(b byte, bit uint) bool {
	return (b>>bit)&1 == 1
}

func setBit(b byte, bit uint, v bool) byte {
	if v {
		return b | (1 << bit)
	}
	return b &^ (1 << bit)
}
