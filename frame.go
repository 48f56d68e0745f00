package keybus

// Frame is a single completed panel transmission: up to DataSize bytes on
// each of the panel-data and PC16 channels, plus how many bits and full
// bytes were actually received before the inter-frame idle closed it out.
type Frame struct {
	PanelData [DataSize]byte
	PC16Data  [DataSize]byte
	BitCount  int
	ByteCount int
}

// ringBuffer is the fixed-capacity, single-producer/single-consumer frame
// queue handed from the capture goroutine to Loop, mirroring
// panelBuffer/pc16Buffer/panelBufferLength in dscClassic.cpp. It must be
// accessed only while holding Interface.mu.
type ringBuffer struct {
	frames [BufferSize]Frame
	length int
}

// push appends a completed frame. It reports false if the ring was already
// full, in which case the frame is dropped and the caller should set
// BufferOverflow.
func (r *ringBuffer) push(panelData, pc16Data [DataSize]byte, bitCount, byteCount int) bool {
	if r.length >= BufferSize {
		return false
	}
	r.frames[r.length] = Frame{
		PanelData: panelData,
		PC16Data:  pc16Data,
		BitCount:  bitCount,
		ByteCount: byteCount,
	}
	r.length++
	return true
}

// drainOne removes and returns the oldest queued frame. It reports false
// if the ring is empty.
func (r *ringBuffer) drainOne() (Frame, bool) {
	if r.length == 0 {
		return Frame{}, false
	}
	f := r.frames[0]
	copy(r.frames[:r.length-1], r.frames[1:r.length])
	r.length--
	return f, true
}
