// ABOUTME: Audio frame source abstraction and synthetic tone source
// ABOUTME: Fixed-size mono float32 frames at a fixed sample rate
package capture

import (
	"math"
	"sync"
)

const (
	// DefaultSampleRate and DefaultFrameSize match the capture contract:
	// 1024-sample mono float32 frames at 44.1kHz.
	DefaultSampleRate = 44100
	DefaultFrameSize  = 1024
)

// Source produces fixed-size mono float frames. Read fills the frame or
// returns an error; errors terminate the audio loop and are logged, not
// propagated as process failures.
type Source interface {
	Read(frame []float32) error
	SampleRate() int
	Close() error
}

// ToneSource synthesizes a sine wave with a slow amplitude envelope.
// Used when no microphone is available and by tests.
type ToneSource struct {
	sampleIndex uint64
	sampleMu    sync.Mutex
	frequency   float64
	sampleRate  int
}

// NewToneSource creates a tone source at the given frequency.
func NewToneSource(frequency float64) *ToneSource {
	return &ToneSource{
		frequency:  frequency,
		sampleRate: DefaultSampleRate,
	}
}

func (s *ToneSource) Read(frame []float32) error {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	for i := range frame {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.sampleRate)
		// Amplitude swells at 0.5Hz so the pipeline sees dynamics.
		envelope := 0.5 + 0.5*math.Sin(2*math.Pi*0.5*t)
		frame[i] = float32(envelope * 0.5 * math.Sin(2*math.Pi*s.frequency*t))
	}
	s.sampleIndex += uint64(len(frame))

	return nil
}

func (s *ToneSource) SampleRate() int { return s.sampleRate }
func (s *ToneSource) Close() error    { return nil }
