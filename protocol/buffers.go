package protocol

// ScratchOutput is a fixed-size buffer used to assemble one outgoing
// characteristic payload without allocating.
type ScratchOutput struct {
	buf [MessageMax]byte
	pos int
}

// NewScratchOutput creates a new ScratchOutput
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{pos: 0}
}

// Output appends data, truncating at capacity.
func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
}

// OutputByte appends a single byte if there is room.
func (s *ScratchOutput) OutputByte(b byte) {
	if s.pos < len(s.buf) {
		s.buf[s.pos] = b
		s.pos++
	}
}

// Tail returns the unused part of the buffer for in-place encoding.
// Call Advance with the number of bytes written.
func (s *ScratchOutput) Tail() []byte {
	return s.buf[s.pos:]
}

// Advance commits n bytes written through Tail.
func (s *ScratchOutput) Advance(n int) {
	s.pos += n
	if s.pos > len(s.buf) {
		s.pos = len(s.buf)
	}
}

func (s *ScratchOutput) CurPosition() int {
	return s.pos
}

// Result returns the accumulated output data
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Reset clears the buffer
func (s *ScratchOutput) Reset() {
	s.pos = 0
}

// FifoBuffer is a circular byte buffer. The firmware uses it to queue
// debug log lines until the main loop drains them to the UART.
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifoBuffer creates a new FifoBuffer with the specified capacity
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write appends data to the FIFO buffer
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		nextWrite := (f.write + 1) % f.size
		if nextWrite == f.read {
			// Buffer full
			break
		}
		f.buf[f.write] = b
		f.write = nextWrite
		written++
	}
	return written
}

// WriteLine appends s and a newline only if both fit, so a full buffer
// drops whole lines rather than truncating them.
func (f *FifoBuffer) WriteLine(s string) bool {
	if len(s)+1 > f.Free() {
		return false
	}
	for i := 0; i < len(s); i++ {
		f.buf[f.write] = s[i]
		f.write = (f.write + 1) % f.size
	}
	f.buf[f.write] = '\n'
	f.write = (f.write + 1) % f.size
	return true
}

// Read reads up to len(data) bytes from the FIFO buffer
func (f *FifoBuffer) Read(data []byte) int {
	read := 0
	for i := range data {
		if f.read == f.write {
			// Buffer empty
			break
		}
		data[i] = f.buf[f.read]
		f.read = (f.read + 1) % f.size
		read++
	}
	return read
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return f.size - f.Available() - 1
}

// Data returns available data as a slice
// When wrapped, this copies data into a contiguous slice
func (f *FifoBuffer) Data() []byte {
	if f.read <= f.write {
		return f.buf[f.read:f.write]
	}
	avail := f.Available()
	result := make([]byte, avail)

	firstLen := f.size - f.read
	copy(result, f.buf[f.read:])
	copy(result[firstLen:], f.buf[:f.write])

	return result
}

// Pop removes n bytes from the front
func (f *FifoBuffer) Pop(n int) {
	for i := 0; i < n && f.read != f.write; i++ {
		f.read = (f.read + 1) % f.size
	}
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read == f.write
}

// Reset clears the buffer
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}
