package protocol

import "errors"

var (
	ErrDrainAborted = errors.New("device aborted the drain")
	ErrOddLength    = errors.New("recording has a partial sample")
)

// Reassembler rebuilds a recording from stream chunks received in order.
type Reassembler struct {
	data     []byte
	chunks   int
	captured bool
	done     bool
	err      error
}

// NewReassembler creates a Reassembler sized for an expected number of
// samples. The hint only affects the initial allocation.
func NewReassembler(sampleHint int) *Reassembler {
	return &Reassembler{data: make([]byte, 0, sampleHint*BytesPerSample)}
}

// AddChunk appends one stream payload. Chunks arriving after the drain
// completed are ignored.
func (r *Reassembler) AddChunk(chunk []byte) {
	if r.done {
		return
	}
	r.data = append(r.data, chunk...)
	r.chunks++
}

// AddMarker feeds a status marker and reports whether the recording is
// finished (successfully or not).
func (r *Reassembler) AddMarker(m byte) bool {
	switch m {
	case MarkerRecordingComplete:
		r.captured = true
	case MarkerDrainComplete:
		r.done = true
		if len(r.data)%BytesPerSample != 0 {
			r.err = ErrOddLength
		}
	case MarkerDrainAborted:
		r.done = true
		r.err = ErrDrainAborted
	}
	return r.done
}

// Captured reports whether the device finished capturing.
func (r *Reassembler) Captured() bool { return r.captured }

// Done reports whether the sentinel has been seen.
func (r *Reassembler) Done() bool { return r.done }

// Chunks returns how many chunks were added.
func (r *Reassembler) Chunks() int { return r.chunks }

// Len returns the number of payload bytes received so far.
func (r *Reassembler) Len() int { return len(r.data) }

// Samples returns the decoded recording once complete.
func (r *Reassembler) Samples() ([]int16, error) {
	if r.err != nil {
		return nil, r.err
	}
	return UnpackSamples(r.data), nil
}
