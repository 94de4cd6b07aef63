// ABOUTME: Synthetic waveform generator for pattern-driven intensity
// ABOUTME: Six deterministic waveforms with optional bounded randomness
package pattern

import (
	"math"
	"math/rand"
)

// Waveform is the closed set of synthetic pattern shapes.
type Waveform int

const (
	Wave Waveform = iota
	Pulse
	Ramp
	Steady
	Chaos
	Heartbeat
)

// Waveforms lists all shapes in UI order.
var Waveforms = []Waveform{Wave, Pulse, Ramp, Steady, Chaos, Heartbeat}

// String returns the waveform name as shown in the UI.
func (w Waveform) String() string {
	switch w {
	case Wave:
		return "wave"
	case Pulse:
		return "pulse"
	case Ramp:
		return "ramp"
	case Steady:
		return "steady"
	case Chaos:
		return "chaos"
	case Heartbeat:
		return "heartbeat"
	}
	return "unknown"
}

// ParseWaveform maps a name to a waveform, defaulting to Wave for
// unrecognized input rather than failing.
func ParseWaveform(s string) Waveform {
	switch s {
	case "wave":
		return Wave
	case "pulse":
		return Pulse
	case "ramp":
		return Ramp
	case "steady":
		return Steady
	case "chaos":
		return Chaos
	case "heartbeat":
		return Heartbeat
	}
	return Wave
}

// fallbackLevel is returned for waveform values outside the closed set.
const fallbackLevel = 0.5

// Config holds the live-tunable pattern parameters.
type Config struct {
	Waveform     Waveform
	MaxIntensity float64 // 0..1 output ceiling
	Rate         float64 // time scale factor
	Randomness   float64 // 0..1 perturbation amount
}

// Generator produces a time-parameterized intensity independent of audio.
type Generator struct {
	config  Config
	elapsed float64
	rng     *rand.Rand
}

// NewGenerator creates a generator. The rand source is injectable so
// randomness is reproducible in tests; pass nil for a default source.
func NewGenerator(config Config, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Generator{config: config, rng: rng}
}

// Configure updates pattern parameters. Changing the waveform resets
// elapsed time to zero so the new shape takes effect immediately.
func (g *Generator) Configure(config Config) {
	if config.Waveform != g.config.Waveform {
		g.elapsed = 0
	}
	g.config = config
}

// Elapsed returns the accumulated pattern time in seconds.
func (g *Generator) Elapsed() float64 {
	return g.elapsed
}

// Reset zeroes the pattern clock.
func (g *Generator) Reset() {
	g.elapsed = 0
}

// Advance moves the pattern clock forward by dt seconds and returns the
// current intensity in [0, MaxIntensity].
func (g *Generator) Advance(dt float64) float64 {
	g.elapsed += dt

	base := Value(g.config.Waveform, g.elapsed*g.config.Rate)

	// Randomness perturbs after the base waveform, bounded to ±30% of
	// the randomness setting, then clamped before scaling.
	if g.config.Randomness > 0 {
		offset := (g.rng.Float64() - 0.5) * 2 * g.config.Randomness * 0.3
		base = clamp01(base + offset)
	}

	return base * g.config.MaxIntensity
}

// Value evaluates a waveform at the given adjusted time. Pure function;
// all shapes return values in [0, 1].
func Value(w Waveform, t float64) float64 {
	switch w {
	case Wave:
		return (math.Sin(t) + 1) / 2

	case Pulse:
		if math.Mod(t, 2*math.Pi) < math.Pi {
			return 1.0
		}
		return 0.0

	case Ramp:
		return math.Mod(t, 2*math.Pi) / (2 * math.Pi)

	case Steady:
		return 0.7 + 0.1*math.Sin(t*0.5)

	case Chaos:
		return (math.Sin(t)*math.Cos(t*1.618) + 1) / 2

	case Heartbeat:
		cycle := math.Mod(t, 2*math.Pi)
		switch {
		case cycle < 0.3:
			s := math.Sin(cycle * 10)
			return s * s
		case cycle < 0.8:
			s := math.Sin((cycle - 0.3) * 12)
			return s * s
		default:
			return 0.0
		}
	}

	return fallbackLevel
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
