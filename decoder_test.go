package keybus

import (
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestInterface() *Interface {
	return New(Config{})
}

// Scenario 1 from the status-decoder test properties: a PC1500/PC1550
// frame with only the ready light lit decodes to a ready, disarmed
// partition and status code 0x01.
func TestDecodeReadyIdle(t *testing.T) {
	i := newTestInterface()
	i.panelData[0], i.panelData[1] = 0x00, 0x80
	i.pc16Data[0], i.pc16Data[1] = 0x00, 0x00

	i.processPanelStatus(fixedNow)

	if !i.Ready {
		t.Error("expected Ready")
	}
	if i.Armed {
		t.Error("expected not Armed")
	}
	if i.Lights != 0x01 {
		t.Errorf("Lights = %#02x, want 0x01", i.Lights)
	}
	if i.Status != StatusPartitionReady {
		t.Errorf("Status = %#02x, want %#02x", i.Status, StatusPartitionReady)
	}
}

// Scenario 2 picks up right after scenario 1: the ready light drops (a
// different light stays lit so Lights is still nonzero) and a zone lights
// up. The zones-open status code is only derived while ready is false,
// here through the ready *change*; with the ready light still lit on an
// isolated frame, ready wins outright regardless of open zones, mirroring
// the unconditional
// "readyLight && !armedBitA" branch in the Ready-status block.
func TestDecodeZoneOpenAfterReady(t *testing.T) {
	i := newTestInterface()
	i.panelData[0], i.panelData[1] = 0x00, 0x80
	i.pc16Data[0], i.pc16Data[1] = 0x00, 0x00
	i.processPanelStatus(fixedNow)

	// Ready light off, fire light on (keeps Lights nonzero), zone 3 lit.
	i.panelData[0], i.panelData[1] = 0x20, 0x02
	i.processPanelStatus(fixedNow)

	if bit := i.OpenZones[0] & (1 << 2); bit == 0 {
		t.Errorf("OpenZones[0] = %#08b, want bit 2 set", i.OpenZones[0])
	}
	if i.Status != StatusZonesOpen {
		t.Errorf("Status = %#02x, want %#02x", i.Status, StatusZonesOpen)
	}
}

// Scenario 3: armed stay, with the panel's Bypass light and PC16's
// ArmedSideA/ArmedBypass bits set.
func TestDecodeArmedStay(t *testing.T) {
	i := newTestInterface()
	i.panelData[0], i.panelData[1] = 0x00, 0x50 // Armed + Bypass lights
	i.pc16Data[0], i.pc16Data[1] = 0x00, 0x60    // ArmedBitA + ArmedBypassBit

	i.processPanelStatus(fixedNow)

	if !i.Armed || !i.ArmedStay || i.ArmedAway {
		t.Errorf("Armed=%v ArmedStay=%v ArmedAway=%v, want true/true/false", i.Armed, i.ArmedStay, i.ArmedAway)
	}
	if i.Status != StatusArmedStay {
		t.Errorf("Status = %#02x, want %#02x", i.Status, StatusArmedStay)
	}
}

// Scenario 4 continues from scenario 3: the bypass light goes out and,
// once the stay-retention window has elapsed with no beep, the partition
// reports armed away instead.
func TestDecodeArmedAwayAfterStay(t *testing.T) {
	i := newTestInterface()
	i.panelData[0], i.panelData[1] = 0x00, 0x50
	i.pc16Data[0], i.pc16Data[1] = 0x00, 0x60
	i.processPanelStatus(fixedNow)

	i.panelData[0], i.panelData[1] = 0x00, 0x40 // Armed light only
	i.pc16Data[0], i.pc16Data[1] = 0x00, 0x20    // ArmedBitA only
	later := i.bootTime.Add(3 * armedStayRetainTime)
	i.processPanelStatus(later)

	if i.ArmedStay || !i.ArmedAway {
		t.Errorf("ArmedStay=%v ArmedAway=%v, want false/true", i.ArmedStay, i.ArmedAway)
	}
	if i.Status != StatusArmedAway {
		t.Errorf("Status = %#02x, want %#02x", i.Status, StatusArmedAway)
	}
}

// Scenario 5: an alarm on zone 2, signalled over PC16 rather than the
// panel lights.
func TestDecodeAlarmZone2(t *testing.T) {
	i := newTestInterface()
	i.panelData[0], i.panelData[1] = 0x00, 0x40 // Armed light, satisfies the 0xFE gate
	i.pc16Data[0], i.pc16Data[1] = 0x40, 0x01    // bit 6 (zone 2) + AlarmBit

	i.processPanelStatus(fixedNow)

	if !i.Alarm {
		t.Error("expected Alarm")
	}
	if bit := i.AlarmZones[0] & (1 << 1); bit == 0 {
		t.Errorf("AlarmZones[0] = %#08b, want bit 1 set", i.AlarmZones[0])
	}
	if bit := i.OpenZones[0] & (1 << 1); bit == 0 {
		t.Errorf("OpenZones[0] = %#08b, want bit 1 set", i.OpenZones[0])
	}
	if i.Status != StatusAlarm {
		t.Errorf("Status = %#02x, want %#02x", i.Status, StatusAlarm)
	}
}

// resetStatus() followed by decoding no new frame must leave every
// *Changed flag as resetStatus set them, with the raw decoded fields
// untouched.
func TestResetStatusIdempotence(t *testing.T) {
	i := newTestInterface()
	i.panelData[0], i.panelData[1] = 0x00, 0x80
	i.processPanelStatus(fixedNow)

	i.ResetStatus()

	if !i.ReadyChanged || !i.ArmedChanged || !i.AlarmChanged || !i.TroubleChanged || !i.FireChanged || !i.StatusChanged {
		t.Error("ResetStatus should force every *Changed flag true")
	}
	ready := i.Ready
	i.ResetStatus()
	if i.Ready != ready {
		t.Error("ResetStatus must not touch raw decoded state")
	}
}
