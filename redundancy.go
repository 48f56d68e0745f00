package keybus

// redundancyFilter suppresses a frame that is byte-for-byter identical to
// the last one forwarded on this channel, mirroring redundantPanelData()
// in dscClassic.cpp. Two independent instances are kept, one per channel
// (panel data, PC16); both must report redundant for the frame to be
// dropped, which is decided by the caller.
type redundancyFilter struct {
	previous [DataSize]byte
}

// check compares the leading checkedBytes of current against the last
// accepted data. If they differ, current becomes the new baseline and
// check reports false (not redundant); if they match, the baseline is
// left untouched and check reports true.
func (f *redundancyFilter) check(current []byte, checkedBytes int) bool {
	for i := 0; i < checkedBytes; i++ {
		if f.previous[i] != current[i] {
			copy(f.previous[:], current[:DataSize])
			return false
		}
	}
	return true
}
