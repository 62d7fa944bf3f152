package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"skoobot/protocol"
)

func TestSaveLoadWAV(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 1234, -293}
	path := filepath.Join(t.TempDir(), "rec.wav")

	if err := SaveWAV(path, samples, protocol.SampleRate); err != nil {
		t.Fatalf("SaveWAV() error = %v", err)
	}

	got, rate, err := LoadWAV(path)
	if err != nil {
		t.Fatalf("LoadWAV() error = %v", err)
	}
	if rate != protocol.SampleRate {
		t.Errorf("sample rate = %d, want %d", rate, protocol.SampleRate)
	}
	if len(got) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestWAVHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.wav")
	if err := SaveWAV(path, make([]int16, 100), protocol.SampleRate); err != nil {
		t.Fatalf("SaveWAV() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if dec.NumChans != 1 {
		t.Errorf("NumChans = %d, want 1", dec.NumChans)
	}
	if dec.BitDepth != 16 {
		t.Errorf("BitDepth = %d, want 16", dec.BitDepth)
	}
	if dec.WavAudioFormat != 1 {
		t.Errorf("WavAudioFormat = %d, want 1 (PCM)", dec.WavAudioFormat)
	}
}

func TestLoadInvalidWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("definitely not a wav file"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadWAV(path); err != ErrInvalidWAV {
		t.Errorf("expected ErrInvalidWAV, got %v", err)
	}
}

func TestSampleSourceFill(t *testing.T) {
	src := &sampleSource{samples: []int16{1, -2, 3}, done: make(chan struct{})}
	out := make([]byte, 4)

	src.onData(out, nil, 2)
	if out[0] != 1 || out[1] != 0 || out[2] != 0xFE || out[3] != 0xFF {
		t.Errorf("first frames = %v, want [1 0 254 255]", out)
	}
	select {
	case <-src.done:
		t.Fatal("done before the last sample")
	default:
	}

	src.onData(out, nil, 2)
	if out[0] != 3 || out[2] != 0 || out[3] != 0 {
		t.Errorf("tail frames = %v, want [3 0 0 0]", out)
	}
	select {
	case <-src.done:
	default:
		t.Fatal("expected done after the last sample")
	}

	// Further callbacks play silence without closing twice.
	src.onData(out, nil, 2)
}
