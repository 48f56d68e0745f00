package keybus

import (
	"fmt"
	"io"
)

// PrintPanelMessage writes a human-readable decode of the most recently
// processed frame's keypad lights, PC16 status bits, open zones and alarm
// zones to the configured output, mirroring printPanelMessage().
func (i *Interface) PrintPanelMessage() {
	i.mu.Lock()
	defer i.mu.Unlock()

	sb := i.statusByte

	fmt.Fprint(i.output, "Lights: ")
	if i.panelData[sb] != 0 {
		for _, f := range []struct {
			bit  uint
			name string
		}{
			{7, "Ready "}, {6, "Armed "}, {5, "Memory "}, {4, "Bypass "},
			{3, "Trouble "}, {2, "Program "}, {1, "Fire "},
		} {
			if bitRead(i.panelData[sb], f.bit) {
				fmt.Fprint(i.output, f.name)
			}
		}
	} else {
		fmt.Fprint(i.output, "none ")
	}

	if bitRead(i.panelData[sb], 0) {
		fmt.Fprint(i.output, "| Beep ")
	}

	fmt.Fprint(i.output, "| Status: ")
	if i.pc16Data[sb] != 0 {
		for _, f := range []struct {
			bit  uint
			name string
		}{
			{7, "Trouble "}, {6, "Bypassed zones "}, {5, "Armed (Side A) "},
			{4, "Armed (Side B) "}, {3, "Keypad Panic alarm "}, {2, "Keypad Aux alarm "},
			{1, "Keypad Fire alarm "}, {0, "Alarm "},
		} {
			if bitRead(i.pc16Data[sb], f.bit) {
				fmt.Fprint(i.output, f.name)
			}
		}
	} else {
		fmt.Fprint(i.output, "none ")
	}

	fmt.Fprint(i.output, "| Zone lights: ")
	noZones := (sb == 1 && i.panelData[sb-1] == 0) || (sb == 2 && i.panelData[sb-1] == 0 && i.panelData[sb-2] == 0)
	if noZones {
		fmt.Fprint(i.output, "none ")
	} else {
		for grp := 1; grp <= sb; grp++ {
			for bit := 7; bit >= 0; bit-- {
				if bitRead(i.panelData[sb-grp], uint(bit)) {
					fmt.Fprintf(i.output, "%d ", (8-bit)+(grp-1)*8)
				}
			}
		}
	}

	if i.pc16Data[sb-1]&0xFE != 0 {
		fmt.Fprint(i.output, "| Zone alarm: ")
		for bit := 7; bit > 1; bit-- {
			if bitRead(i.pc16Data[sb-1], uint(bit)) {
				switch {
				case sb == 2 && bit == 3:
					fmt.Fprint(i.output, "5-8 ")
				case sb == 2 && bit == 2:
					fmt.Fprint(i.output, "9-16 ")
				default:
					fmt.Fprintf(i.output, "%d ", 8-bit)
				}
			}
		}
	}

	if bitRead(i.pc16Data[sb-1], 0) {
		fmt.Fprint(i.output, "| Fire alarm")
	}
}

// moduleKeyLabel maps a single captured keypad/module byte to its label,
// used by both PrintModuleMessage and PrintModuleBinary's digit-masking.
var moduleKeyLabel = map[byte]string{
	key1: "1", key2: "2", key3: "3", key4: "4", key5: "5",
	key6: "6", key7: "7", key8: "8", key9: "9", key0: "0",
	keyStar: "*", keyPound: "#",
	keyFire: "Fire alarm", keyAux: "Aux alarm", keyPanic: "Panic alarm",
}

func isModuleDigit(b byte) bool {
	switch b {
	case key0, key1, key2, key3, key4, key5, key6, key7, key8, key9:
		return true
	}
	return false
}

// PrintModuleMessage writes the decoded keypad/module transmission
// captured by HandleModule, mirroring printModuleMessage(). If
// HideKeypadDigits is set, any digit key is printed as "[Digit]" rather
// than its value.
func (i *Interface) PrintModuleMessage() {
	i.mu.Lock()
	defer i.mu.Unlock()

	fmt.Fprint(i.output, "[Keypad] ")
	b := i.moduleData[0]
	if i.cfg.HideKeypadDigits && isModuleDigit(b) {
		fmt.Fprint(i.output, "[Digit]")
		return
	}
	if label, ok := moduleKeyLabel[b]; ok {
		fmt.Fprint(i.output, label)
	}
}

// PrintPanelBinary writes panelData and pc16Data for the captured frame as
// two runs of bits, optionally space-separated per byte and between the
// two channels, mirroring printPanelBinary().
func (i *Interface) PrintPanelBinary(printSpaces bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	writeBinaryRun(i.output, i.panelData[:i.panelByteCount], printSpaces)
	if printSpaces {
		fmt.Fprint(i.output, " ")
	}
	writeBinaryRun(i.output, i.pc16Data[:i.panelByteCount], printSpaces)
}

// PrintModuleBinary writes the captured module transmission as bits,
// masking the first byte with dots when it is a digit key and
// HideKeypadDigits is set, mirroring printModuleBinary().
func (i *Interface) PrintModuleBinary(printSpaces bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	keypadDigit := i.cfg.HideKeypadDigits && isModuleDigit(i.moduleData[0])

	for b := 0; b < i.moduleByteCount; b++ {
		if keypadDigit && b == 0 {
			fmt.Fprint(i.output, "........")
		} else {
			writeBinaryByte(i.output, i.moduleData[b])
		}
		if printSpaces && b != i.panelByteCount-1 {
			fmt.Fprint(i.output, " ")
		}
	}
}

// PrintPanelCommand writes a static label identifying the message source,
// mirroring printPanelCommand(); DSC Classic frames carry no separate
// command byte to decode.
func (i *Interface) PrintPanelCommand() {
	i.mu.Lock()
	defer i.mu.Unlock()
	fmt.Fprint(i.output, "Panel")
}

func writeBinaryRun(w io.Writer, data []byte, printSpaces bool) {
	for idx, b := range data {
		writeBinaryByte(w, b)
		if printSpaces && idx != len(data)-1 {
			fmt.Fprint(w, " ")
		}
	}
}

func writeBinaryByte(w io.Writer, b byte) {
	for mask := byte(0x80); mask != 0; mask >>= 1 {
		if mask&b != 0 {
			fmt.Fprint(w, "1")
		} else {
			fmt.Fprint(w, "0")
		}
	}
}
