package keybus

// Virtual keypad key codes: 8-bit, active-low. A zero bit means "pull the
// data line low during that bit slot." Digits and * / # map to fixed
// codes; F/A/P are the keypad fire/auxiliary/panic alarm keys and start
// the post-write cooldown in setWriteKey.
const (
	key0 byte = 0xD7
	key1 byte = 0xBE
	key2 byte = 0xDE
	key3 byte = 0xEE
	key4 byte = 0xBD
	key5 byte = 0xDD
	key6 byte = 0xED
	key7 byte = 0xBB
	key8 byte = 0xDB
	key9 byte = 0xEB
	keyStar  byte = 0xB7
	keyPound byte = 0xE7
	keyFire  byte = 0x3F
	keyAux   byte = 0x5F
	keyPanic byte = 0x6F
)

// keyCodes maps every digit and * / # to its wire code, for table-driven
// lookups (and for the invariant test that checks each code has exactly
// one zero bit per nibble).
var keyCodes = map[byte]byte{
	'0': key0, '1': key1, '2': key2, '3': key3, '4': key4,
	'5': key5, '6': key6, '7': key7, '8': key8, '9': key9,
	'*': keyStar, '#': keyPound,
}

// alarmKeyCodes maps the keypad alarm keys, case-insensitively.
var alarmKeyCodes = map[byte]byte{
	'F': keyFire, 'f': keyFire,
	'A': keyAux, 'a': keyAux,
	'P': keyPanic, 'p': keyPanic,
}
