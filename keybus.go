// Package keybus implements a sniffer and decoder for the DSC Classic
// series two-wire keybus: the clock-synchronous serial link between a
// Classic panel (PC1500/PC1550/PC3000) and its keypads.
//
// It samples the clock, data and PC16 lines through a Bus, reassembles the
// panel's per-cycle status frames, decodes them into a PowerSeries-style
// partition status, and can optionally drive the data line to inject
// virtual keypad keystrokes.
package keybus

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// DataSize is the maximum number of bytes captured per channel in a single
// frame (PC1500/PC1550/PC3000 never exceed three).
const DataSize = 8

// BufferSize is the number of completed frames the capture engine holds
// before the foreground drains them; overflow sets BufferOverflow.
const BufferSize = 10

// interFrameGap is the minimum clock-high duration that marks the boundary
// between two panel transmissions.
const interFrameGap = 2000 * time.Microsecond

// sampleDelay is how long after a clock edge the data/PC16 lines are
// sampled, chosen to clear the panel's and keypads' output settling time.
const sampleDelay = 250 * time.Microsecond

// Config configures an Interface's access codes and feature toggles.
// Pins and transport belong to the Bus implementation, not here.
type Config struct {
	// AccessCodeStay is the up-to-6-digit arm/disarm code for Stay mode.
	// Away is derived as AccessCodeStay+"*1", Night as "*9"+AccessCodeStay.
	AccessCodeStay string

	// HideKeypadDigits suppresses individual digits in printModuleMessage
	// and printModuleBinary, printing a placeholder instead.
	HideKeypadDigits bool

	// ProcessModuleData enables capture of keypad/module transmissions
	// during the clock-low half of each cycle.
	ProcessModuleData bool
}

// Interface is the public façade: construct with New, drive with Begin and
// repeated calls to Loop, inject keys with Write/WriteKeys, and read the
// exported status fields (or call Snapshot for a race-free read+clear).
type Interface struct {
	cfg Config

	accessCodeAway  string
	accessCodeNight string

	bus    Bus
	output io.Writer

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// ISR-owned capture state, guarded by mu once shared with the
	// foreground. See capture.go.
	isrPanelData    [DataSize]byte
	isrPC16Data     [DataSize]byte
	isrModuleData   [DataSize]byte
	isrPanelBitCount  int
	isrPanelByteCount int
	isrPanelBitTotal  int
	isrModuleBitCount  int
	isrModuleByteCount int
	isrModuleBitTotal  int
	moduleDataDetected bool

	previousClockHigh time.Time
	clockHighTime     time.Duration

	writeStart bool

	// Frame ring, drained by Loop. See frame.go.
	ring ringBuffer

	panelFilter redundancyFilter
	pc16Filter  redundancyFilter

	moduleData       [DataSize]byte
	moduleBitCount   int
	moduleByteCount  int
	moduleDataCaptured bool
	starKeyDetected    bool

	keybusTime      time.Time
	keybusConnected bool
	previousKeybus  bool
	KeybusChanged   bool

	BufferOverflow bool

	// Decoded per-cycle input, latched once from the first valid frame.
	statusByte    int
	startupCycle  bool
	WriteReady    bool

	panelData [DataSize]byte
	pc16Data  [DataSize]byte
	panelBitCount  int
	panelByteCount int

	// Decoded partition state. See decoder.go and statuscode.go.
	Lights        byte
	previousLights byte

	readyLight, armedLight, memoryLight, bypassLight bool
	troubleLight, programLight, fireLight            bool
	beep                                              bool

	troubleBit, armedBypassBit, armedBitA, armedBitB, alarmBit bool

	memoryBlinkDet  blinkDetector
	armedBlinkDet   blinkDetector
	bypassBlinkDet  blinkDetector
	troubleBlinkDet blinkDetector

	memoryBlink, armedBlink, bypassBlink, troubleBlink, LightBlink bool

	beepOn        bool
	beepTimeStart time.Time

	armedStayTriggered bool
	exitDelayArmed     bool
	exitDelayTriggered bool

	Ready, previousReady   bool
	ReadyChanged           bool
	Armed, previousArmed   bool
	ArmedStay, previousArmedStay bool
	ArmedAway, previousArmedAway bool
	ArmedChanged           bool
	NoEntryDelay           bool

	ExitDelay, previousExitDelay bool
	ExitDelayChanged             bool
	ExitState, previousExitState int

	Alarm, previousAlarm     bool
	AlarmChanged              bool
	alarmTriggered            bool
	previousAlarmTriggered    bool

	Trouble, previousTrouble bool
	TroubleChanged           bool

	Fire, previousFire bool
	FireChanged        bool

	KeypadFireAlarm, KeypadAuxAlarm, KeypadPanicAlarm bool
	previousFireAlarmTime, previousAuxAlarmTime, previousPanicAlarmTime time.Time

	OpenZones, previousOpenZones   [DataSize - 1]byte
	OpenZonesChanged               [DataSize - 1]byte
	OpenZonesStatusChanged         bool
	AlarmZones, previousAlarmZones [1]byte
	AlarmZonesChanged              [1]byte
	AlarmZonesStatusChanged        bool
	// zonesTriggered is only ever written at index 0 (see processAlarmZones);
	// on PC3000 frames (statusByte==2), processZones reads index 1, which
	// stays permanently zero. Preserved from the original firmware as-is;
	// see DESIGN.md Open Questions.
	zonesTriggered [DataSize - 1]byte

	bootTime time.Time

	Status         byte
	previousStatus byte

	PauseStatus   bool
	StatusChanged bool

	writeKeyPending bool
	writeKeyWait    bool
	writeKey        byte
	WriteAlarm      bool
	writeCompleteTime time.Time
	previousAlarmKeyTime time.Time

	writeKeysPending bool
	writeKeysArray   string
	writeCounter     int

	// writePartition mirrors the original's partition-selection field for
	// a multi-partition write target. The Classic protocol this library
	// targets is single-partition, so it is retained only for source
	// fidelity and always reads 1; there is no setter.
	writePartition byte
}

// New constructs an Interface. Pins belong to the Bus passed to Begin, not
// to the constructor, since the same Interface can run against a real GPIO
// bus, a serial bridge, or a simulated bus in tests.
func New(cfg Config) *Interface {
	i := &Interface{
		cfg:            cfg,
		output:         io.Discard,
		statusByte:     1, // PC1500/PC1550 default until the first frame latches it
		startupCycle:   true,
		accessCodeAway: cfg.AccessCodeStay + "*1",
		bootTime:       time.Now(),
		writePartition: 1,
	}
	i.accessCodeNight = "*9" + cfg.AccessCodeStay
	i.memoryBlinkDet = newBlinkDetector()
	i.armedBlinkDet = newBlinkDetector()
	i.bypassBlinkDet = newBlinkDetector()
	i.troubleBlinkDet = newBlinkDetector()
	return i
}

// SetOutput sets the sink used by PrintPanelMessage and friends.
func (i *Interface) SetOutput(w io.Writer) {
	i.output = w
}

// Status reports a consistent view of the decoded partition status and
// clears every *Changed flag atomically, so a polling consumer never
// observes a value update without its corresponding changed flag, or vice
// versa, no matter how it interleaves with Loop.
type Status struct {
	Ready, ReadyChanged               bool
	Armed, ArmedStay, ArmedAway       bool
	ArmedChanged, NoEntryDelay        bool
	ExitDelay, ExitDelayChanged       bool
	ExitState                         int
	Alarm, AlarmChanged               bool
	Trouble, TroubleChanged           bool
	Fire, FireChanged                 bool
	KeybusConnected, KeybusChanged    bool
	OpenZones, OpenZonesChanged       [DataSize - 1]byte
	OpenZonesStatusChanged            bool
	AlarmZones, AlarmZonesChanged     [1]byte
	AlarmZonesStatusChanged           bool
	StatusCode, PreviousStatusCode    byte
	StatusChanged                     bool
	BufferOverflow                    bool
}

// Snapshot returns the current decoded status and clears the Changed
// flags that it read, under a single lock acquisition.
func (i *Interface) Snapshot() Status {
	i.mu.Lock()
	defer i.mu.Unlock()

	s := Status{
		Ready: i.Ready, ReadyChanged: i.ReadyChanged,
		Armed: i.Armed, ArmedStay: i.ArmedStay, ArmedAway: i.ArmedAway,
		ArmedChanged: i.ArmedChanged, NoEntryDelay: i.NoEntryDelay,
		ExitDelay: i.ExitDelay, ExitDelayChanged: i.ExitDelayChanged, ExitState: i.ExitState,
		Alarm: i.Alarm, AlarmChanged: i.AlarmChanged,
		Trouble: i.Trouble, TroubleChanged: i.TroubleChanged,
		Fire: i.Fire, FireChanged: i.FireChanged,
		KeybusConnected: i.keybusConnected, KeybusChanged: i.KeybusChanged,
		OpenZones: i.OpenZones, OpenZonesChanged: i.OpenZonesChanged, OpenZonesStatusChanged: i.OpenZonesStatusChanged,
		AlarmZones: i.AlarmZones, AlarmZonesChanged: i.AlarmZonesChanged, AlarmZonesStatusChanged: i.AlarmZonesStatusChanged,
		StatusCode: i.Status, PreviousStatusCode: i.previousStatus, StatusChanged: i.StatusChanged,
		BufferOverflow: i.BufferOverflow,
	}

	i.ReadyChanged = false
	i.ArmedChanged = false
	i.AlarmChanged = false
	i.TroubleChanged = false
	i.FireChanged = false
	i.KeybusChanged = false
	i.OpenZonesStatusChanged = false
	i.OpenZonesChanged = [DataSize - 1]byte{}
	i.AlarmZonesStatusChanged = false
	i.AlarmZonesChanged = [1]byte{}
	i.StatusChanged = false
	i.ExitDelayChanged = false
	i.BufferOverflow = false

	return s
}

// Begin starts the capture engine against the given Bus: one goroutine
// waits for clock edges, and a deferred timer fires sampleDelay after each
// edge to read the data/PC16 lines, mirroring the ISR pair in the original
// firmware. Begin returns once the capture goroutine is running.
func (i *Interface) Begin(bus Bus) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cancel != nil {
		return fmt.Errorf("keybus: Begin called while already running")
	}

	i.bus = bus
	ctx, cancel := context.WithCancel(context.Background())
	i.cancel = cancel

	i.wg.Add(1)
	go i.runCapture(ctx)

	return nil
}

// Stop detaches from the Bus, zeros ISR-owned buffers and counters, and
// waits for the capture goroutine to exit. A following Begin resumes
// cleanly; foreground state (decoded status, Changed flags) is untouched.
func (i *Interface) Stop() {
	i.mu.Lock()
	cancel := i.cancel
	i.cancel = nil
	i.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	i.wg.Wait()

	i.mu.Lock()
	defer i.mu.Unlock()

	i.isrPanelData = [DataSize]byte{}
	i.isrPC16Data = [DataSize]byte{}
	i.isrModuleData = [DataSize]byte{}
	i.isrPanelBitTotal = 0
	i.isrPanelBitCount = 0
	i.isrPanelByteCount = 0
	i.isrModuleBitTotal = 0
	i.isrModuleBitCount = 0
	i.isrModuleByteCount = 0
	i.ring = ringBuffer{}

	if i.bus != nil {
		_ = i.bus.Close()
		i.bus = nil
	}
}

// ResetStatus forces every *Changed flag true on the next Loop call without
// altering the underlying decoded state, so a freshly (re)subscribed
// consumer can be given the full current status.
func (i *Interface) ResetStatus() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.StatusChanged = true
	i.KeybusChanged = true
	i.TroubleChanged = true
	i.ReadyChanged = true
	i.ArmedChanged = true
	i.AlarmChanged = true
	i.FireChanged = true
	i.ExitDelayChanged = true
	i.OpenZonesStatusChanged = true
	i.AlarmZonesStatusChanged = true
	for idx := range i.OpenZonesChanged {
		i.OpenZonesChanged[idx] = 0xFF
	}
	i.AlarmZonesChanged[0] = 0xFF
}
