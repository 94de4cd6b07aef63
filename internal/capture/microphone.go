// ABOUTME: Microphone frame source backed by portaudio
// ABOUTME: Opens the default input device for mono float32 capture
package capture

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// paInit tracks the process-wide portaudio initialization.
var (
	paInitOnce sync.Once
	paInitErr  error
)

// Microphone reads mono float32 frames from the default input device.
type Microphone struct {
	stream     *portaudio.Stream
	buffer     []float32
	sampleRate int

	mu     sync.Mutex
	closed bool
}

// OpenMicrophone opens the default input device for frameSize-sample
// mono capture at the given rate.
func OpenMicrophone(sampleRate, frameSize int) (*Microphone, error) {
	paInitOnce.Do(func() {
		paInitErr = portaudio.Initialize()
	})
	if paInitErr != nil {
		return nil, fmt.Errorf("portaudio init failed: %w", paInitErr)
	}

	m := &Microphone{
		buffer:     make([]float32, frameSize),
		sampleRate: sampleRate,
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), frameSize, m.buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start input stream: %w", err)
	}

	m.stream = stream
	return m, nil
}

// Read blocks until one frame of capture data is available and copies it
// into frame. frame must match the configured frame size.
func (m *Microphone) Read(frame []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("microphone closed")
	}
	if len(frame) != len(m.buffer) {
		return fmt.Errorf("frame size mismatch: got %d, want %d", len(frame), len(m.buffer))
	}

	if err := m.stream.Read(); err != nil {
		// Overflow means capture outpaced us; the frame is still usable.
		if err != portaudio.InputOverflowed {
			return fmt.Errorf("capture read failed: %w", err)
		}
	}
	copy(frame, m.buffer)

	return nil
}

func (m *Microphone) SampleRate() int { return m.sampleRate }

// Close stops and releases the input stream.
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if err := m.stream.Stop(); err != nil {
		m.stream.Close()
		return err
	}
	return m.stream.Close()
}
