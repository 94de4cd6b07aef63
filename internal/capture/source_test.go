// ABOUTME: Tests for the synthetic tone source
// ABOUTME: Verifies framing, amplitude bounds, and phase continuity
package capture

import (
	"math"
	"testing"
)

func TestToneSourceFillsFrames(t *testing.T) {
	src := NewToneSource(440)
	defer src.Close()

	frame := make([]float32, DefaultFrameSize)
	if err := src.Read(frame); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	nonzero := 0
	for _, s := range frame {
		if s != 0 {
			nonzero++
		}
	}
	if nonzero == 0 {
		t.Error("Expected nonzero samples from the tone source")
	}
}

func TestToneSourceAmplitudeBounded(t *testing.T) {
	src := NewToneSource(440)
	defer src.Close()

	frame := make([]float32, DefaultFrameSize)
	for i := 0; i < 100; i++ {
		if err := src.Read(frame); err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		for j, s := range frame {
			if math.Abs(float64(s)) > 0.5 {
				t.Fatalf("Sample %d out of bounds: %f", j, s)
			}
		}
	}
}

func TestToneSourcePhaseContinuity(t *testing.T) {
	src := NewToneSource(440)
	defer src.Close()

	a := make([]float32, DefaultFrameSize)
	b := make([]float32, DefaultFrameSize)
	if err := src.Read(a); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if err := src.Read(b); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	// The second frame continues where the first ended: within one sample
	// of a 440Hz tone the signal cannot jump across its full range.
	last := float64(a[len(a)-1])
	next := float64(b[0])
	if math.Abs(next-last) > 0.2 {
		t.Errorf("Phase discontinuity between frames: %f -> %f", last, next)
	}
}

func TestToneSourceSampleRate(t *testing.T) {
	src := NewToneSource(440)
	if src.SampleRate() != DefaultSampleRate {
		t.Errorf("SampleRate = %d, want %d", src.SampleRate(), DefaultSampleRate)
	}
}
