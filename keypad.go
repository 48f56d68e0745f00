package keybus

import (
	"time"
)

// continueWrite mirrors the virtual keypad block of dscClockInterrupt():
// called on every falling clock edge, it asserts the write line for the
// current bit of writeKey during the first 8 bit slots of a frame, timed
// off the long idle that precedes each panel transmission. It is called
// with i.mu already held, so i.bus.SetWrite is invoked under that lock;
// the rising-edge handler's release of the line happens after it unlocks.
func (i *Interface) continueWrite(at time.Time) {
	if i.writeKeyPending && i.writeKeyWait && at.Sub(i.writeCompleteTime) > writeInterKeyWait {
		i.writeKeyWait = false
	}

	if !i.writeKeyPending || i.writeKeyWait {
		return
	}

	if i.clockHighTime > interFrameGap {
		if bitRead(i.writeKey, 7) {
			_ = i.bus.SetWrite(false)
		} else {
			_ = i.bus.SetWrite(true)
		}
		i.writeStart = true
		return
	}

	if !i.writeStart || i.isrPanelBitTotal > 7 {
		return
	}

	bit := uint(7 - i.isrPanelBitCount)
	if bitRead(i.writeKey, bit) {
		_ = i.bus.SetWrite(false)
	} else {
		_ = i.bus.SetWrite(true)
	}

	if i.isrPanelBitTotal == 7 {
		i.writeKeyPending = false
		i.writeKeyWait = true
		i.writeCompleteTime = at
		i.writeStart = false
	}
}

// advanceWriteKeys mirrors writeKeys(): once the current key has cleared
// (writeKeyPending false), it sets up the next character of writeKeysArray,
// or clears writeKeysPending once the array is exhausted.
func (i *Interface) advanceWriteKeys() {
	if i.writeKeyPending || !i.writeKeysPending || i.writeCounter >= len(i.writeKeysArray) {
		return
	}

	i.setWriteKeyLocked(i.writeKeysArray[i.writeCounter])
	i.writeCounter++
	if i.writeCounter >= len(i.writeKeysArray) {
		i.writeKeysPending = false
		i.writeCounter = 0
	}
}

// writePollInterval is how often Write/WriteKeys recheck for a previous
// write to clear, standing in for the original's `while(...) loop();`
// busy-wait. Write/WriteKeys never call Loop themselves: the caller keeps
// calling Loop from another goroutine while they wait.
const writePollInterval = 2 * time.Millisecond

// waitWriteClear blocks until no write is pending, without holding mu
// while it waits, then returns with mu held.
func (i *Interface) waitWriteClear() {
	i.mu.Lock()
	for i.writeKeyPending || i.writeKeysPending {
		i.mu.Unlock()
		time.Sleep(writePollInterval)
		i.mu.Lock()
	}
}

// Write queues a single virtual keypad key for transmission, blocking
// until any write already in progress clears first. A digit, '*' or '#'
// is sent as-is; 'F'/'A'/'P' (case-insensitive) send the keypad
// fire/auxiliary/panic alarm keys and start a 500ms cooldown before any
// following key is accepted, matching setWriteKey()'s rationale for
// avoiding transmission errors right after an alarm key. S/W/N expand to
// the stay/away/night access code when the configured access code has at
// least four characters, mirroring write(char).
func (i *Interface) Write(key byte) error {
	i.waitWriteClear()
	defer i.mu.Unlock()

	if len(i.cfg.AccessCodeStay) >= 4 {
		switch key {
		case 's', 'S':
			return i.writeKeysLocked(i.cfg.AccessCodeStay)
		case 'w', 'W':
			return i.writeKeysLocked(i.accessCodeAway)
		case 'n', 'N':
			return i.writeKeysLocked(i.accessCodeNight)
		}
	}
	return i.setWriteKeyLocked(key)
}

// WriteKeys queues a sequence of keys, advanced one per Loop call via
// advanceWriteKeys, blocking first until any write already in progress
// clears. A single-character sequence is dispatched through the same path
// as Write. If blocking is true, WriteKeys also waits until the last key
// of a multi-key sequence has been handed to the transmitter, mirroring
// write(const char*, bool)'s blockingWrite parameter; it does not wait for
// that last key's bits to be clocked out, and a single-key write returns
// at once.
func (i *Interface) WriteKeys(keys string, blocking bool) error {
	i.waitWriteClear()

	var err error
	if len(keys) == 1 {
		if len(i.cfg.AccessCodeStay) >= 4 {
			switch keys[0] {
			case 's', 'S':
				err = i.writeKeysLocked(i.cfg.AccessCodeStay)
			case 'w', 'W':
				err = i.writeKeysLocked(i.accessCodeAway)
			case 'n', 'N':
				err = i.writeKeysLocked(i.accessCodeNight)
			default:
				err = i.setWriteKeyLocked(keys[0])
			}
		} else {
			err = i.setWriteKeyLocked(keys[0])
		}
	} else {
		err = i.writeKeysLocked(keys)
	}
	i.mu.Unlock()
	if err != nil || !blocking {
		return err
	}

	for {
		i.mu.Lock()
		pending := i.writeKeysPending
		i.mu.Unlock()
		if !pending {
			return nil
		}
		time.Sleep(writePollInterval)
	}
}

func (i *Interface) writeKeysLocked(keys string) error {
	if keys == "" {
		return nil
	}
	i.writeKeysArray = keys
	i.writeCounter = 0
	i.writeKeysPending = true
	i.WriteReady = false
	return nil
}

// setWriteKeyLocked mirrors setWriteKey(): it validates and latches the
// single key to be clocked out by continueWrite, starting the post-alarm
// cooldown when the key is one of the keypad alarm keys. A key that
// resolveWriteKey doesn't recognize is discarded silently, matching
// write(char)'s behavior in dscClassic.cpp, which has no error return at all.
func (i *Interface) setWriteKeyLocked(key byte) error {
	if i.writeKeyPending {
		return nil
	}
	now := time.Now()
	if !(now.Sub(i.previousAlarmKeyTime) > writeCooldown || now.Sub(i.bootTime) <= writeCooldown) {
		return nil
	}

	code, alarm, ok := resolveWriteKey(key)
	if !ok {
		return nil
	}
	if alarm {
		i.previousAlarmKeyTime = now
		i.WriteAlarm = true
	}

	i.writeKey = code
	i.writeKeyPending = true
	i.WriteReady = false
	return nil
}

func resolveWriteKey(key byte) (code byte, alarm bool, ok bool) {
	if c, found := keyCodes[key]; found {
		return c, false, true
	}
	if c, found := alarmKeyCodes[key]; found {
		return c, true, true
	}
	return 0, false, false
}
