// ABOUTME: Tests for the cross-thread state bridge
// ABOUTME: Covers snapshot semantics and the bounded presentation queue
package bridge

import (
	"sync"
	"testing"

	"github.com/muchfun/muchfun-go/internal/dsp"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()

	if p.Sensitivity != 50 {
		t.Errorf("Default sensitivity = %f, want 50", p.Sensitivity)
	}
	if p.Smoothing.Mode != dsp.SmoothAdaptive {
		t.Errorf("Default smoothing mode = %v, want adaptive", p.Smoothing.Mode)
	}
	if p.AudioEnabled || p.PatternEnabled {
		t.Error("Channels should start disabled")
	}
	if !p.VisualizerEnabled {
		t.Error("Visualizer should start enabled")
	}
}

func TestStoreLoadSnapshot(t *testing.T) {
	b := New(8)

	p := b.Load()
	p.Sensitivity = 75
	p.AudioEnabled = true
	b.Store(p)

	got := b.Load()
	if got.Sensitivity != 75 || !got.AudioEnabled {
		t.Errorf("Snapshot not visible after store: %+v", got)
	}
}

func TestLoadIsolation(t *testing.T) {
	b := New(8)

	p := b.Load()
	p.Sensitivity = 99

	// Mutating a loaded copy must not leak into the bridge
	if got := b.Load().Sensitivity; got != 50 {
		t.Errorf("Loaded copy mutation leaked: sensitivity = %f", got)
	}
}

func TestConcurrentLoads(t *testing.T) {
	b := New(8)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				p := b.Load()
				if p.Sensitivity < 1 || p.Sensitivity > 100 {
					t.Errorf("Torn snapshot: sensitivity = %f", p.Sensitivity)
					return
				}
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		p := b.Load()
		p.Sensitivity = float64(1 + i%100)
		b.Store(p)
	}
	wg.Wait()
}

func TestPublishDropsWhenFull(t *testing.T) {
	b := New(2)

	for i := 0; i < 5; i++ {
		b.Publish(Update{Status: "tick"})
	}

	if got := b.Dropped(); got != 3 {
		t.Errorf("Dropped = %d, want 3", got)
	}

	// Queued updates are still intact
	for i := 0; i < 2; i++ {
		select {
		case u := <-b.Updates():
			if u.Status != "tick" {
				t.Errorf("Unexpected update: %+v", u)
			}
		default:
			t.Fatal("Expected queued update")
		}
	}
}

func TestPublishGroupOwnership(t *testing.T) {
	b := New(8)

	level := 0.42
	b.Publish(Update{PatternLevel: &level})

	u := <-b.Updates()
	if u.Audio != nil || u.Stats != nil {
		t.Error("Unset groups should stay nil")
	}
	if u.PatternLevel == nil || *u.PatternLevel != 0.42 {
		t.Errorf("Pattern level lost: %+v", u)
	}
}
