// ABOUTME: Tests for the pattern waveform generator
// ABOUTME: Covers shape bounds, elapsed reset, randomness, and scaling
package pattern

import (
	"math"
	"math/rand"
	"testing"
)

func TestValueBounds(t *testing.T) {
	for _, w := range Waveforms {
		for i := 0; i < 1000; i++ {
			v := Value(w, float64(i)*0.01)
			if v < 0 || v > 1 {
				t.Fatalf("Value(%s, %f) = %f out of [0,1]", w, float64(i)*0.01, v)
			}
		}
	}
}

func TestValueShapes(t *testing.T) {
	tests := []struct {
		name string
		w    Waveform
		t    float64
		want float64
	}{
		{"wave at zero", Wave, 0, 0.5},
		{"wave peak", Wave, math.Pi / 2, 1.0},
		{"pulse high", Pulse, 0.5, 1.0},
		{"pulse low", Pulse, math.Pi + 0.5, 0.0},
		{"ramp start", Ramp, 0, 0},
		{"ramp midpoint", Ramp, math.Pi, 0.5},
		{"steady at zero", Steady, 0, 0.7},
		{"heartbeat rest", Heartbeat, 1.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Value(tt.w, tt.t); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Value(%s, %f) = %f, want %f", tt.w, tt.t, got, tt.want)
			}
		})
	}
}

func TestValuePeriodicity(t *testing.T) {
	for _, w := range []Waveform{Wave, Pulse, Ramp, Heartbeat} {
		a := Value(w, 1.0)
		b := Value(w, 1.0+2*math.Pi)
		if math.Abs(a-b) > 1e-9 {
			t.Errorf("%s not periodic over 2π: %f vs %f", w, a, b)
		}
	}
}

func TestValueFallback(t *testing.T) {
	if got := Value(Waveform(42), 1.0); got != fallbackLevel {
		t.Errorf("Unknown waveform = %f, want %f", got, fallbackLevel)
	}
}

func TestHeartbeatDoublePulse(t *testing.T) {
	// First beat peaks inside [0, 0.3), second inside [0.3, 0.8)
	if Value(Heartbeat, 0.157) < 0.9 {
		t.Error("Expected first beat near peak at t=0.157")
	}
	if Value(Heartbeat, 0.43) < 0.9 {
		t.Error("Expected second beat near peak at t=0.43")
	}
}

func TestAdvanceScalesByMaxIntensity(t *testing.T) {
	g := NewGenerator(Config{Waveform: Steady, MaxIntensity: 0.5, Rate: 1.0}, rand.New(rand.NewSource(1)))

	got := g.Advance(0.01)
	want := Value(Steady, 0.01) * 0.5
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Advance = %f, want %f", got, want)
	}
}

func TestAdvanceRateScalesTime(t *testing.T) {
	g := NewGenerator(Config{Waveform: Ramp, MaxIntensity: 1.0, Rate: 2.0}, rand.New(rand.NewSource(1)))

	got := g.Advance(0.5)
	want := Value(Ramp, 1.0)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Advance with rate 2 = %f, want %f", got, want)
	}
}

func TestAdvanceRandomnessBounded(t *testing.T) {
	g := NewGenerator(Config{
		Waveform:     Steady,
		MaxIntensity: 1.0,
		Rate:         1.0,
		Randomness:   1.0,
	}, rand.New(rand.NewSource(42)))

	for i := 0; i < 1000; i++ {
		base := Value(Steady, g.Elapsed()+0.01)
		got := g.Advance(0.01)
		if math.Abs(got-base) > 0.3+1e-9 {
			t.Fatalf("Randomness offset exceeded ±0.3: got %f, base %f", got, base)
		}
		if got < 0 || got > 1 {
			t.Fatalf("Perturbed output out of [0,1]: %f", got)
		}
	}
}

func TestConfigureResetsElapsedOnWaveformChange(t *testing.T) {
	g := NewGenerator(Config{Waveform: Wave, MaxIntensity: 1.0, Rate: 1.0}, rand.New(rand.NewSource(1)))
	g.Advance(1.0)

	if g.Elapsed() == 0 {
		t.Fatal("Expected nonzero elapsed after advancing")
	}

	g.Configure(Config{Waveform: Pulse, MaxIntensity: 1.0, Rate: 1.0})
	if g.Elapsed() != 0 {
		t.Errorf("Expected elapsed reset on waveform change, got %f", g.Elapsed())
	}
}

func TestConfigureKeepsElapsedOnParamChange(t *testing.T) {
	g := NewGenerator(Config{Waveform: Wave, MaxIntensity: 1.0, Rate: 1.0}, rand.New(rand.NewSource(1)))
	g.Advance(1.0)

	g.Configure(Config{Waveform: Wave, MaxIntensity: 0.5, Rate: 2.0})
	if g.Elapsed() != 1.0 {
		t.Errorf("Expected elapsed preserved on parameter change, got %f", g.Elapsed())
	}
}

func TestParseWaveform(t *testing.T) {
	tests := []struct {
		input string
		want  Waveform
	}{
		{"wave", Wave},
		{"pulse", Pulse},
		{"ramp", Ramp},
		{"steady", Steady},
		{"chaos", Chaos},
		{"heartbeat", Heartbeat},
		{"bogus", Wave},
		{"", Wave},
	}

	for _, tt := range tests {
		if got := ParseWaveform(tt.input); got != tt.want {
			t.Errorf("ParseWaveform(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
