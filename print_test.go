package keybus

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintPanelMessageReadyIdle(t *testing.T) {
	i := newTestInterface()
	var buf bytes.Buffer
	i.SetOutput(&buf)

	i.panelData[0], i.panelData[1] = 0x00, 0x80
	i.pc16Data[0], i.pc16Data[1] = 0x00, 0x00
	i.processPanelStatus(fixedNow)

	i.PrintPanelMessage()
	out := buf.String()

	if !strings.Contains(out, "Ready") {
		t.Errorf("output %q should mention Ready", out)
	}
	if !strings.Contains(out, "Zone lights: none") {
		t.Errorf("output %q should report no zone lights", out)
	}
}

func TestPrintModuleMessageDigit(t *testing.T) {
	i := newTestInterface()
	var buf bytes.Buffer
	i.SetOutput(&buf)

	i.moduleData[0] = key5
	i.PrintModuleMessage()

	if got := buf.String(); got != "[Keypad] 5" {
		t.Errorf("PrintModuleMessage = %q, want %q", got, "[Keypad] 5")
	}
}

func TestPrintModuleMessageHidesDigitsWhenConfigured(t *testing.T) {
	i := New(Config{HideKeypadDigits: true})
	var buf bytes.Buffer
	i.SetOutput(&buf)

	i.moduleData[0] = key5
	i.PrintModuleMessage()

	if got := buf.String(); got != "[Keypad] [Digit]" {
		t.Errorf("PrintModuleMessage = %q, want %q", got, "[Keypad] [Digit]")
	}
}

func TestPrintPanelBinary(t *testing.T) {
	i := newTestInterface()
	var buf bytes.Buffer
	i.SetOutput(&buf)

	i.panelData[0] = 0xA5
	i.panelByteCount = 1
	i.PrintPanelBinary(false)

	if got := buf.String(); got != "10100101"+"00000000" {
		t.Errorf("PrintPanelBinary = %q, want %q", got, "1010010100000000")
	}
}
