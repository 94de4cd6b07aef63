// ABOUTME: Tests for the engine's producer loops and emergency stop
// ABOUTME: Uses the synthetic tone source and a fake actuator sink
package engine

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muchfun/muchfun-go/internal/bridge"
	"github.com/muchfun/muchfun-go/internal/capture"
	"github.com/muchfun/muchfun-go/internal/dispatch"
)

// testSink records commands and stops.
type testSink struct {
	mu       sync.Mutex
	commands []float64
	stops    int
}

func (s *testSink) Command(level float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, level)
	return nil
}

func (s *testSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

func (s *testSink) commandCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commands)
}

func (s *testSink) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

func newTestEngine(t *testing.T, openSource func() (capture.Source, error)) (*Engine, *bridge.Bridge, *testSink) {
	t.Helper()

	sink := &testSink{}
	br := bridge.New(256)
	d := dispatch.New(sink, dispatch.DefaultInterval, nil)
	t.Cleanup(d.Close)

	if openSource == nil {
		openSource = func() (capture.Source, error) {
			return capture.NewToneSource(440), nil
		}
	}

	e := New(Config{
		Bridge:     br,
		Dispatcher: d,
		OpenSource: openSource,
	})
	return e, br, sink
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestEngineStartStop(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)

	e.Start()
	time.Sleep(100 * time.Millisecond)
	e.Stop()
}

func TestPatternLoopDispatches(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping timing test in short mode")
	}

	e, br, sink := newTestEngine(t, nil)

	params := br.Load()
	params.PatternEnabled = true
	params.Pattern.MaxIntensity = 0.8
	br.Store(params)

	e.Start()
	defer e.Stop()

	waitFor(t, 2*time.Second, func() bool {
		return sink.commandCount() > 0
	}, "Pattern loop never dispatched a command")

	// Disabling the flag stops the loop and zeroes the presentation level
	params.PatternEnabled = false
	br.Store(params)

	waitFor(t, 2*time.Second, func() bool {
		for {
			select {
			case u := <-br.Updates():
				if u.PatternLevel != nil && *u.PatternLevel == 0 {
					return true
				}
			default:
				return false
			}
		}
	}, "Pattern loop never published its zero level")
}

func TestDisablingPatternZeroesDevice(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping timing test in short mode")
	}

	e, br, sink := newTestEngine(t, nil)

	params := br.Load()
	params.PatternEnabled = true
	params.Pattern.MaxIntensity = 0.8
	params.Pattern.MinIntensity = 0.5
	br.Store(params)

	e.Start()
	defer e.Stop()

	waitFor(t, 2*time.Second, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		for _, c := range sink.commands {
			if c > 0 {
				return true
			}
		}
		return false
	}, "Pattern loop never dispatched a nonzero level")

	// Turning the loop off must not strand the device at its last level
	params.PatternEnabled = false
	br.Store(params)

	waitFor(t, 2*time.Second, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.commands) > 0 && sink.commands[len(sink.commands)-1] == 0
	}, "Device was left at a nonzero level after the pattern loop stopped")
}

func TestAudioLoopDispatchesFromTone(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping timing test in short mode")
	}

	e, br, sink := newTestEngine(t, nil)

	params := br.Load()
	params.AudioEnabled = true
	br.Store(params)

	e.Start()
	defer e.Stop()

	waitFor(t, 2*time.Second, func() bool {
		return sink.commandCount() > 0
	}, "Audio loop never dispatched a command")

	// Audio updates carry band levels for presentation
	waitFor(t, 2*time.Second, func() bool {
		for {
			select {
			case u := <-br.Updates():
				if u.Audio != nil && u.Audio.Smoothed > 0 {
					return true
				}
			default:
				return false
			}
		}
	}, "Audio loop never published nonzero levels")
}

func TestAudioSourceFailureKillsOnlyAudio(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping timing test in short mode")
	}

	e, br, sink := newTestEngine(t, func() (capture.Source, error) {
		return nil, errors.New("no input device")
	})

	params := br.Load()
	params.AudioEnabled = true
	params.PatternEnabled = true
	br.Store(params)

	e.Start()
	defer e.Stop()

	waitFor(t, 2*time.Second, func() bool {
		for {
			select {
			case u := <-br.Updates():
				if strings.Contains(u.Status, "Audio input failed") {
					return true
				}
			default:
				return false
			}
		}
	}, "Audio failure never surfaced as status")

	// Pattern channel keeps dispatching after the audio failure
	waitFor(t, 2*time.Second, func() bool {
		return sink.commandCount() > 0
	}, "Pattern loop stopped alongside the audio failure")
}

func TestEmergencyStop(t *testing.T) {
	e, br, sink := newTestEngine(t, nil)

	e.EmergencyStop()

	if sink.stopCount() != 1 {
		t.Errorf("Stop count = %d, want 1", sink.stopCount())
	}

	found := false
	for {
		select {
		case u := <-br.Updates():
			if strings.Contains(u.Status, "EMERGENCY STOP") {
				found = true
			}
			continue
		default:
		}
		break
	}
	if !found {
		t.Error("Emergency stop never surfaced as status")
	}
}

func TestManualDispatchWhileIdle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping timing test in short mode")
	}

	e, br, sink := newTestEngine(t, nil)

	e.Start()
	defer e.Stop()

	params := br.Load()
	params.ManualIntensity = 0.4
	br.Store(params)

	waitFor(t, 2*time.Second, func() bool {
		return sink.commandCount() > 0
	}, "Manual change never dispatched while idle")

	sink.mu.Lock()
	got := sink.commands[0]
	sink.mu.Unlock()
	if got != 0.4 {
		t.Errorf("Dispatched %f, want 0.4", got)
	}
}
