// ABOUTME: Temporal smoothing filters for intensity values
// ABOUTME: Four modes with distinct stability/responsiveness trade-offs
package dsp

import "math"

// SmoothingMode selects the temporal filter applied to raw intensities.
type SmoothingMode int

const (
	SmoothNone SmoothingMode = iota
	SmoothSimple
	SmoothAdaptive
	SmoothMomentum
)

// String returns the mode name as shown in the UI.
func (m SmoothingMode) String() string {
	switch m {
	case SmoothNone:
		return "none"
	case SmoothSimple:
		return "simple"
	case SmoothAdaptive:
		return "adaptive"
	case SmoothMomentum:
		return "momentum"
	}
	return "unknown"
}

// ParseSmoothingMode maps a name to a mode, defaulting to adaptive for
// unrecognized input rather than failing.
func ParseSmoothingMode(s string) SmoothingMode {
	switch s {
	case "none":
		return SmoothNone
	case "simple":
		return SmoothSimple
	case "adaptive":
		return SmoothAdaptive
	case "momentum":
		return SmoothMomentum
	}
	return SmoothAdaptive
}

const (
	// Values below the cutoff decay to exactly zero once the target hits
	// zero, preventing an infinite exponential tail.
	cutoffThreshold = 0.005

	// SafetyCap bounds smoother output regardless of mode or input.
	SafetyCap = 0.8

	// Momentum tuning. Conservative settings: oscillation is worse than
	// sluggishness when the output drives a physical actuator.
	momentumFactor = 0.5
	dampingFactor  = 0.4
	responsiveness = 2.0
	nearTarget     = 0.1
	extraDamping   = 0.8
)

// SmootherConfig holds the live-tunable filter parameters.
type SmootherConfig struct {
	Mode     SmoothingMode
	Strength float64 // 0..1, simple mode blend factor
	Attack   float64 // seconds, adaptive rise time
	Decay    float64 // seconds, adaptive fall time
}

// Smoother converts raw target intensities into temporally stable output.
// One instance per logical channel; state is never shared. All state
// fields exist from construction so concurrent readers never observe a
// partially initialized filter.
type Smoother struct {
	config   SmootherConfig
	value    float64
	velocity float64 // momentum mode only
}

// NewSmoother creates a smoother with the given initial configuration.
func NewSmoother(config SmootherConfig) *Smoother {
	return &Smoother{config: config}
}

// Configure updates filter parameters live. Switching modes keeps the
// accumulated value; momentum velocity carries over as-is.
func (s *Smoother) Configure(config SmootherConfig) {
	s.config = config
}

// Value returns the current smoothed level.
func (s *Smoother) Value() float64 {
	return s.value
}

// Reset zeroes accumulated value and velocity.
func (s *Smoother) Reset() {
	s.value = 0
	s.velocity = 0
}

// Step advances the filter by dt seconds toward target and returns the
// new smoothed value. Output is always in [0, SafetyCap].
func (s *Smoother) Step(target, dt float64) float64 {
	var result float64

	switch s.config.Mode {
	case SmoothNone:
		result = target

	case SmoothSimple:
		result = s.config.Strength*s.value + (1-s.config.Strength)*target
		if result < cutoffThreshold && target == 0 {
			result = 0
		}

	case SmoothAdaptive:
		result = s.stepAdaptive(target, dt)

	case SmoothMomentum:
		result = s.stepMomentum(target, dt)

	default:
		result = target
	}

	result = clamp01(result)
	if result > SafetyCap {
		result = SafetyCap
	}
	s.value = result

	return result
}

// stepAdaptive rises linearly against attack time and falls either
// exponentially (target zero) or linearly (target nonzero) against decay
// time. Fast attack, controlled decay: the percussive feel.
func (s *Smoother) stepAdaptive(target, dt float64) float64 {
	var result float64

	if target > s.value {
		attack := min1(dt / atLeast(s.config.Attack, 0.01))
		result = s.value + (target-s.value)*attack
	} else if target == 0 {
		decayRate := 1.0 / atLeast(s.config.Decay, 0.01)
		factor := 1.0 - minf(0.95, dt*decayRate)
		result = s.value * factor
	} else {
		decay := min1(dt / atLeast(s.config.Decay, 0.01))
		result = s.value + (target-s.value)*decay
	}

	if result < cutoffThreshold && target == 0 {
		return 0
	}
	return clamp01(result)
}

// stepMomentum maintains a velocity term for an inertial, bouncy feel.
func (s *Smoother) stepMomentum(target, dt float64) float64 {
	desired := target - s.value

	s.velocity = momentumFactor*s.velocity + (1-momentumFactor)*desired*responsiveness
	s.velocity *= 1 - dampingFactor*dt

	result := s.value + s.velocity*dt

	// Extra damping near the target prevents overshoot oscillation.
	if math.Abs(target-s.value) < nearTarget {
		s.velocity *= 1 - extraDamping*dt
	}

	if result < cutoffThreshold && target == 0 {
		s.velocity = 0
		return 0
	}
	return clamp01(result)
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

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func atLeast(v, floor float64) float64 {
	if v < floor {
		return floor
	}
	return v
}

