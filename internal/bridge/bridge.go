// ABOUTME: Cross-thread state bridge between UI and producer loops
// ABOUTME: Snapshot cell for parameters, bounded queue for presentation
package bridge

import (
	"sync/atomic"

	"github.com/muchfun/muchfun-go/internal/dsp"
	"github.com/muchfun/muchfun-go/internal/pattern"
)

// Params is the full set of UI-origin parameters consumed by producer
// loops. Published as an immutable snapshot: the UI composes a new value
// and stores it whole, producers read whichever snapshot is current.
// Staleness of at most one UI update is acceptable by contract.
type Params struct {
	Sensitivity float64 // 1..100
	Focus       float64 // -1..1, bass to treble
	Verbose     bool

	ManualIntensity float64 // 0..1

	AudioEnabled      bool
	PatternEnabled    bool
	VisualizerEnabled bool

	Smoothing dsp.SmootherConfig
	Pattern   pattern.Config
}

// DefaultParams mirrors the controller's startup configuration.
func DefaultParams() Params {
	return Params{
		Sensitivity:       50,
		Focus:             0,
		VisualizerEnabled: true,
		Smoothing: dsp.SmootherConfig{
			Mode:     dsp.SmoothAdaptive,
			Strength: 0.3,
			Attack:   0.05,
			Decay:    0.1,
		},
		Pattern: pattern.Config{
			Waveform:     pattern.Wave,
			MaxIntensity: 0.5,
			Rate:         0.5,
			Randomness:   0,
		},
	}
}

// AudioLevels carries the audio channel's presentation values.
type AudioLevels struct {
	Bass     float64 // percent
	Mids     float64
	Treble   float64
	Mixed    float64
	Smoothed float64
	Spectrum [dsp.SpectrumBins]float64
}

// Stats carries the periodic statistics rollup.
type Stats struct {
	CommandsSent   int64
	CommandsPerSec float64
}

// Update is one presentation tick. Producers set the groups they own;
// nil groups and empty status leave the presentation state untouched.
type Update struct {
	Audio        *AudioLevels
	PatternLevel *float64
	Stats        *Stats
	Status       string
}

// Bridge connects UI-origin parameters to producer loops and producer
// output back to the presentation layer without shared locks.
type Bridge struct {
	params  atomic.Pointer[Params]
	updates chan Update
	dropped atomic.Int64
}

// New creates a bridge with the given update queue capacity.
func New(queueSize int) *Bridge {
	b := &Bridge{
		updates: make(chan Update, queueSize),
	}
	p := DefaultParams()
	b.params.Store(&p)
	return b
}

// Store publishes a new parameter snapshot. Single writer: only the
// presentation side calls this.
func (b *Bridge) Store(p Params) {
	b.params.Store(&p)
}

// Load returns the current parameter snapshot.
func (b *Bridge) Load() Params {
	return *b.params.Load()
}

// Publish offers an update to the presentation queue. If the queue is
// full the update is dropped rather than blocking the producer.
func (b *Bridge) Publish(u Update) {
	select {
	case b.updates <- u:
	default:
		b.dropped.Add(1)
	}
}

// Updates returns the presentation drain channel. Only the presentation
// side receives from it.
func (b *Bridge) Updates() <-chan Update {
	return b.updates
}

// Dropped returns how many updates were discarded on a full queue.
func (b *Bridge) Dropped() int64 {
	return b.dropped.Load()
}
