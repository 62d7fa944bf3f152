package core

import (
	"errors"
	"sync/atomic"

	"skoobot/protocol"
)

// SendState tracks the single in-flight stream notification.
type SendState uint32

const (
	SendIdle SendState = iota
	SendPending
	SendRetry
)

var (
	ErrOutOfOrder = errors.New("stream offset does not match cursor")
	ErrStreamDone = errors.New("stream already complete")
)

// Sink hands one payload to the transport.
type Sink func(data []byte) error

// Streamer drains a recording as fixed-size chunks. The cursor only moves
// when the transport accepted a chunk, so a transient failure resends the
// same bytes and nothing is skipped or duplicated. After the last chunk
// exactly one sentinel is sent.
type Streamer struct {
	samples []int16
	total   uint32 // bytes
	chunk   uint32

	cursor   uint32
	state    uint32
	sentinel uint32
	active   uint32

	retries uint32
	scratch protocol.ScratchOutput
}

// NewStreamer creates a Streamer sending chunkBytes per payload.
func NewStreamer(chunkBytes int) *Streamer {
	return &Streamer{chunk: uint32(protocol.ClampChunk(chunkBytes))}
}

// Begin starts draining samples from the first byte.
func (s *Streamer) Begin(samples []int16) {
	state := disableInterrupts()
	s.samples = samples
	s.total = uint32(len(samples) * protocol.BytesPerSample)
	atomic.StoreUint32(&s.cursor, 0)
	atomic.StoreUint32(&s.state, uint32(SendIdle))
	atomic.StoreUint32(&s.sentinel, 0)
	atomic.StoreUint32(&s.retries, 0)
	atomic.StoreUint32(&s.active, 1)
	restoreInterrupts(state)
}

// Abort ends the session; further sends are rejected.
func (s *Streamer) Abort() {
	state := disableInterrupts()
	atomic.StoreUint32(&s.active, 0)
	atomic.StoreUint32(&s.state, uint32(SendIdle))
	restoreInterrupts(state)
}

// Active reports whether a drain session is open.
func (s *Streamer) Active() bool {
	return atomic.LoadUint32(&s.active) == 1
}

// Cursor returns the number of bytes acknowledged by the transport.
func (s *Streamer) Cursor() uint32 {
	return atomic.LoadUint32(&s.cursor)
}

// Total returns the size of the recording in bytes.
func (s *Streamer) Total() uint32 {
	return s.total
}

// State returns the send state.
func (s *Streamer) State() SendState {
	return SendState(atomic.LoadUint32(&s.state))
}

// Retries returns the transient failures seen in this session.
func (s *Streamer) Retries() uint32 {
	return atomic.LoadUint32(&s.retries)
}

// Finished reports whether every byte has been sent.
func (s *Streamer) Finished() bool {
	return s.Cursor() >= s.total
}

// SentinelSent reports whether the end marker went out.
func (s *Streamer) SentinelSent() bool {
	return atomic.LoadUint32(&s.sentinel) == 1
}

// SendChunk sends the chunk starting at byte offset, which must equal the
// cursor. On success the cursor advances past it. A transient error
// leaves the cursor in place and is returned for the caller to retry; any
// other error is returned as fatal.
func (s *Streamer) SendChunk(offset uint32, sink Sink) error {
	if !s.Active() {
		return ErrStreamDone
	}
	if offset != s.Cursor() {
		return ErrOutOfOrder
	}
	if offset >= s.total {
		return ErrStreamDone
	}

	end := offset + s.chunk
	if end > s.total {
		end = s.total
	}
	s.scratch.Reset()
	n := protocol.PackSamples(s.scratch.Tail(), s.samples[offset/protocol.BytesPerSample:end/protocol.BytesPerSample])
	s.scratch.Advance(n)

	atomic.StoreUint32(&s.state, uint32(SendPending))
	err := sink(s.scratch.Result())
	switch {
	case err == nil:
		atomic.StoreUint32(&s.cursor, offset+uint32(n))
		atomic.StoreUint32(&s.state, uint32(SendIdle))
	case IsTransient(err):
		atomic.AddUint32(&s.retries, 1)
		atomic.StoreUint32(&s.state, uint32(SendRetry))
	default:
		atomic.StoreUint32(&s.state, uint32(SendIdle))
	}
	return err
}

// Next sends the chunk at the cursor.
func (s *Streamer) Next(sink Sink) error {
	return s.SendChunk(s.Cursor(), sink)
}

// SendSentinel sends marker once the last chunk has been accepted. It
// is a no-op after the first success.
func (s *Streamer) SendSentinel(marker byte, sink Sink) error {
	if !s.Finished() {
		return ErrOutOfOrder
	}
	if s.SentinelSent() {
		return nil
	}
	s.scratch.Reset()
	s.scratch.OutputByte(marker)
	err := sink(s.scratch.Result())
	if err == nil {
		atomic.StoreUint32(&s.sentinel, 1)
		atomic.StoreUint32(&s.active, 0)
	} else if IsTransient(err) {
		atomic.AddUint32(&s.retries, 1)
	}
	return err
}
