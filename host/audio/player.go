package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// Player plays 16-bit mono recordings on the default output device.
type Player struct {
	ctx *malgo.AllocatedContext
}

// NewPlayer creates a new audio player. Call Close() when done.
func NewPlayer() (*Player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}
	return &Player{ctx: ctx}, nil
}

// Play blocks until samples have been played or ctx is done.
func (p *Player) Play(ctx context.Context, samples []int16, sampleRate uint32) error {
	if len(samples) == 0 {
		return nil
	}

	src := &sampleSource{samples: samples, done: make(chan struct{})}

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceCfg.Playback.Format = malgo.FormatS16
	deviceCfg.Playback.Channels = 1
	deviceCfg.SampleRate = sampleRate

	callbacks := malgo.DeviceCallbacks{
		Data: src.onData,
	}

	device, err := malgo.InitDevice(p.ctx.Context, deviceCfg, callbacks)
	if err != nil {
		return fmt.Errorf("initializing playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("starting playback device: %w", err)
	}

	select {
	case <-src.done:
	case <-ctx.Done():
	}
	device.Stop()
	return ctx.Err()
}

// Close releases all audio resources.
func (p *Player) Close() error {
	if p.ctx == nil {
		return nil
	}
	if err := p.ctx.Uninit(); err != nil {
		return fmt.Errorf("uninitializing audio context: %w", err)
	}
	p.ctx.Free()
	p.ctx = nil
	return nil
}

// sampleSource feeds the playback callback.
type sampleSource struct {
	mu      sync.Mutex
	samples []int16
	pos     int
	done    chan struct{}
	closed  bool
}

// onData is the malgo callback that fills pOutput with the next frames
// as little-endian int16. Frames past the end are silence.
func (s *sampleSource) onData(pOutput, _ []byte, frameCount uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.fill(pOutput, int(frameCount))
	for i := n * 2; i < len(pOutput); i++ {
		pOutput[i] = 0
	}
	if s.pos >= len(s.samples) && !s.closed {
		s.closed = true
		close(s.done)
	}
}

// fill copies up to frames samples into out and returns how many.
func (s *sampleSource) fill(out []byte, frames int) int {
	n := 0
	for n < frames && s.pos < len(s.samples) && (n+1)*2 <= len(out) {
		binary.LittleEndian.PutUint16(out[n*2:], uint16(s.samples[s.pos]))
		s.pos++
		n++
	}
	return n
}
