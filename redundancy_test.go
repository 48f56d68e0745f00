package keybus

import "testing"

func TestRedundancyFilter(t *testing.T) {
	var f redundancyFilter

	first := []byte{1, 2, 3, 0, 0, 0, 0, 0}
	if f.check(first, 3) {
		t.Error("first observation must never be reported redundant")
	}

	same := []byte{1, 2, 3, 9, 9, 9, 9, 9}
	if !f.check(same, 3) {
		t.Error("identical leading bytes should be reported redundant")
	}

	different := []byte{1, 2, 4, 0, 0, 0, 0, 0}
	if f.check(different, 3) {
		t.Error("differing leading byte should not be reported redundant")
	}

	if !f.check(different, 3) {
		t.Error("baseline should have updated to the differing frame")
	}
}
