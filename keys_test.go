package keybus

import "testing"

// Each code is two BCD-style nibbles; the wire encoding is one-cold per
// nibble (exactly one zero bit in the high nibble, one in the low nibble).
func TestKeyCodesHaveOneZeroBitPerNibble(t *testing.T) {
	for key, code := range keyCodes {
		highZeros, lowZeros := 0, 0
		for bit := 0; bit < 4; bit++ {
			if !bitRead(code, uint(bit)) {
				lowZeros++
			}
			if !bitRead(code, uint(bit+4)) {
				highZeros++
			}
		}
		if highZeros != 1 || lowZeros != 1 {
			t.Errorf("key %q code %#x has %d/%d zero bits in high/low nibble, want exactly 1/1", key, code, highZeros, lowZeros)
		}
	}
}

func TestAlarmKeyCodesCaseInsensitive(t *testing.T) {
	pairs := []struct{ lower, upper byte }{
		{'f', 'F'}, {'a', 'A'}, {'p', 'P'},
	}
	for _, p := range pairs {
		if alarmKeyCodes[p.lower] != alarmKeyCodes[p.upper] {
			t.Errorf("expected %q and %q to map to the same code", p.lower, p.upper)
		}
	}
}

func TestResolveWriteKey(t *testing.T) {
	code, alarm, ok := resolveWriteKey('5')
	if !ok || alarm || code != key5 {
		t.Errorf("resolveWriteKey('5') = (%#x, %v, %v), want (%#x, false, true)", code, alarm, ok, key5)
	}

	code, alarm, ok = resolveWriteKey('F')
	if !ok || !alarm || code != keyFire {
		t.Errorf("resolveWriteKey('F') = (%#x, %v, %v), want (%#x, true, true)", code, alarm, ok, keyFire)
	}

	if _, _, ok := resolveWriteKey('x'); ok {
		t.Error("resolveWriteKey('x') should not resolve")
	}
}
