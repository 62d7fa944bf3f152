package core

import (
	"errors"
	"sync/atomic"
)

var ErrToneFrequency = errors.New("tone frequency out of range")

// Tone counter limits: the PWM COUNTERTOP register is 15 bits and must
// be at least 3.
const (
	toneTopMin = 3
	toneTopMax = 0x7FFF
)

// ToneTable holds the buzzer frequencies selectable by the buzzer command
// argument.
var ToneTable = [8]uint32{440, 460, 470, 480, 2600, 2300, 2100, 1800}

// Tone plays square-wave tones on the buzzer and tracks completion.
type Tone struct {
	driver WaveformDriver
	baseHz uint32

	playing     uint32
	done        uint32
	completions uint32
}

// NewTone creates a Tone on driver with the given PWM base clock.
func NewTone(driver WaveformDriver, baseHz uint32) *Tone {
	if baseHz == 0 {
		baseHz = PWMBaseHz
	}
	t := &Tone{driver: driver, baseHz: baseHz, done: 1}
	driver.SetDoneHandler(t.SequenceDone)
	return t
}

// TopFor returns the PWM counter top for freqHz, clamped to the counter
// range.
func (t *Tone) TopFor(freqHz uint32) uint16 {
	top := t.baseHz / freqHz
	if top < toneTopMin {
		top = toneTopMin
	}
	if top > toneTopMax {
		top = toneTopMax
	}
	return uint16(top)
}

// Play starts a tone of cycles periods at freqHz. A tone already playing
// is stopped first. Each loop plays two periods, so cycles/2 loops are
// programmed.
func (t *Tone) Play(freqHz, cycles uint32) error {
	if freqHz == 0 || freqHz > t.baseHz {
		return ErrToneFrequency
	}
	t.Stop()

	loops := cycles / 2
	if loops < 1 {
		loops = 1
	}
	if loops > 0xFFFF {
		loops = 0xFFFF
	}

	atomic.StoreUint32(&t.done, 0)
	atomic.StoreUint32(&t.playing, 1)
	if err := t.driver.Play(t.TopFor(freqHz), uint16(loops)); err != nil {
		t.finish()
		return err
	}
	return nil
}

// Stop halts playback. Repeated calls have no further effect.
func (t *Tone) Stop() {
	if atomic.LoadUint32(&t.playing) == 0 {
		return
	}
	t.driver.Stop()
	t.finish()
}

// SequenceDone is the loops-done interrupt callback.
func (t *Tone) SequenceDone() {
	t.finish()
}

func (t *Tone) finish() {
	if atomic.CompareAndSwapUint32(&t.playing, 1, 0) {
		atomic.AddUint32(&t.completions, 1)
		atomic.StoreUint32(&t.done, 1)
	}
}

// IsDone reports whether the last tone has finished.
func (t *Tone) IsDone() bool {
	return atomic.LoadUint32(&t.done) == 1
}

// Completions returns how many tones have finished since boot.
func (t *Tone) Completions() uint32 {
	return atomic.LoadUint32(&t.completions)
}

// Wait polls for completion for up to timeoutMs, stopping the tone if it
// overruns. It reports whether the tone finished on its own.
func (t *Tone) Wait(timeoutMs uint32) bool {
	start := Millis()
	for !t.IsDone() {
		if elapsedSince(start) >= timeoutMs {
			DebugPrintln("[TONE] timeout, forcing stop")
			t.Stop()
			return false
		}
		DelayMs(1)
	}
	return true
}

// DurationMs returns how long cycles periods at freqHz take.
func DurationMs(freqHz, cycles uint32) uint32 {
	if freqHz == 0 {
		return 0
	}
	return cycles * 1000 / freqHz
}
