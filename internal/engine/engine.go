// ABOUTME: Producer loop orchestration for audio and pattern channels
// ABOUTME: Supervises loops, arbitration, emergency stop, and statistics
package engine

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/muchfun/muchfun-go/internal/bridge"
	"github.com/muchfun/muchfun-go/internal/capture"
	"github.com/muchfun/muchfun-go/internal/dispatch"
	"github.com/muchfun/muchfun-go/internal/dsp"
	"github.com/muchfun/muchfun-go/internal/pattern"
)

const (
	audioInterval   = 20 * time.Millisecond // ~50Hz processing cadence
	patternInterval = 50 * time.Millisecond // 20Hz pattern cadence
	superviseEvery  = 50 * time.Millisecond
	statsEvery      = time.Second

	// rmsGain converts frame RMS into a 0..1 level before the focus mix;
	// sensitivity (0..1) scales it further.
	rmsGain = 500.0
)

// Config wires the engine's collaborators.
type Config struct {
	Bridge     *bridge.Bridge
	Dispatcher *dispatch.Dispatcher
	// OpenSource opens the audio frame source when the audio channel is
	// enabled. Called once per enable; the source is closed on disable.
	OpenSource func() (capture.Source, error)
	// HasDevice gates dispatch; nil means always dispatch.
	HasDevice func() bool
	// SampleRate and FrameSize fix the analyzer's contract.
	SampleRate int
	FrameSize  int
}

// Engine runs the two producer loops and the statistics rollup. Each
// loop polls its enable flag from the bridge snapshot and exits within
// one sleep interval of the flag clearing.
type Engine struct {
	config Config

	analyzer *dsp.Analyzer

	// smootherMu guards the audio channel's smoother, which the audio
	// loop steps and EmergencyStop resets.
	smootherMu sync.Mutex
	smoother   *dsp.Smoother

	generator *pattern.Generator

	// Latest per-channel intensities for arbitration. Plain values
	// behind loopMu: both producer loops read the other's level.
	loopMu           sync.Mutex
	audioIntensity   float64
	patternIntensity float64

	audioRunning   bool
	patternRunning bool
	audioFailed    bool // set on SourceError, cleared when the flag drops

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an engine. All per-channel state is initialized up front;
// no field materializes on first use.
func New(config Config) *Engine {
	if config.SampleRate == 0 {
		config.SampleRate = capture.DefaultSampleRate
	}
	if config.FrameSize == 0 {
		config.FrameSize = capture.DefaultFrameSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	params := config.Bridge.Load()

	return &Engine{
		config:    config,
		analyzer:  dsp.NewAnalyzer(float64(config.SampleRate), config.FrameSize),
		smoother:  dsp.NewSmoother(params.Smoothing),
		generator: pattern.NewGenerator(params.Pattern, nil),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the supervisor and statistics loops.
func (e *Engine) Start() {
	e.wg.Add(2)
	go e.supervise()
	go e.statsLoop()
}

// Stop shuts down all loops and waits for them to exit.
func (e *Engine) Stop() {
	e.cancel()
	e.wg.Wait()
}

// EmergencyStop zeroes all channel state and issues an immediate stop to
// the sink, jumping any queued dispatch. The caller (presentation side)
// clears manual intensity and the enable flags in the published params
// before calling; from its perspective the whole operation is atomic.
func (e *Engine) EmergencyStop() {
	log.Printf("EMERGENCY STOP ACTIVATED")

	e.smootherMu.Lock()
	e.smoother.Reset()
	e.smootherMu.Unlock()

	e.loopMu.Lock()
	e.audioIntensity = 0
	e.patternIntensity = 0
	e.loopMu.Unlock()

	if err := e.config.Dispatcher.EmergencyStop(); err != nil {
		log.Printf("Emergency stop dispatch failed: %v", err)
	}

	e.config.Bridge.Publish(bridge.Update{Status: "EMERGENCY STOP ACTIVATED"})
}

// supervise starts and reaps producer loops as enable flags change.
func (e *Engine) supervise() {
	defer e.wg.Done()

	ticker := time.NewTicker(superviseEvery)
	defer ticker.Stop()

	var lastManual float64

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
		}

		params := e.config.Bridge.Load()

		e.loopMu.Lock()
		if params.AudioEnabled && !e.audioRunning && !e.audioFailed {
			e.audioRunning = true
			e.wg.Add(1)
			go e.audioLoop()
		}
		if !params.AudioEnabled && e.audioFailed {
			// User acknowledged the failure by toggling off.
			e.audioFailed = false
		}
		if params.PatternEnabled && !e.patternRunning {
			e.patternRunning = true
			e.wg.Add(1)
			go e.patternLoop()
		}
		audioActive := e.audioRunning
		patternActive := e.patternRunning
		e.loopMu.Unlock()

		// Manual control drives the device directly only while both
		// channels are idle; active loops fold it into their own mix.
		if !audioActive && !patternActive && params.ManualIntensity != lastManual {
			e.offer(params.ManualIntensity)
		}
		lastManual = params.ManualIntensity
	}
}

// audioLoop reads frames, analyzes, smooths, arbitrates, and dispatches.
func (e *Engine) audioLoop() {
	defer e.wg.Done()
	log.Printf("Audio loop started")

	source, err := e.config.OpenSource()
	if err != nil {
		log.Printf("Audio source failed to open: %v", err)
		e.failAudio("Audio input failed: " + err.Error())
		return
	}
	defer source.Close()

	frame := make([]float32, e.config.FrameSize)
	lastTick := time.Now()

	for {
		params := e.config.Bridge.Load()
		if !params.AudioEnabled {
			break
		}

		if err := source.Read(frame); err != nil {
			// SourceError: terminate only this loop, mark the channel
			// disabled, leave everything else running.
			log.Printf("Audio read error: %v", err)
			e.failAudio("Audio input failed: " + err.Error())
			return
		}

		now := time.Now()
		dt := now.Sub(lastTick).Seconds()
		lastTick = now

		res := e.analyzer.Analyze(frame)

		sens := params.Sensitivity / 100.0
		level := math.Min(1.0, res.RMS*rmsGain*sens)

		target := 0.0
		if !res.Bands.Zero() {
			target = level * dsp.Mix(res.Bands, params.Focus)
		}

		e.smootherMu.Lock()
		e.smoother.Configure(params.Smoothing)
		smoothed := e.smoother.Step(target, dt)
		e.smootherMu.Unlock()

		e.loopMu.Lock()
		e.audioIntensity = smoothed
		patternLevel := e.patternIntensity
		patternActive := e.patternRunning
		e.loopMu.Unlock()

		combined := Combine(smoothed, patternLevel, params.ManualIntensity, true, patternActive)
		e.offer(combined)

		if params.Verbose {
			log.Printf("Audio - RMS: %.4f, target: %.3f, smoothed: %.3f, combined: %.3f",
				res.RMS, target, smoothed, combined)
		}

		levels := &bridge.AudioLevels{
			Bass:     res.Bands.Bass * 100,
			Mids:     res.Bands.Mids * 100,
			Treble:   res.Bands.Treble * 100,
			Mixed:    combined * 100,
			Smoothed: smoothed * 100,
		}
		if params.VisualizerEnabled {
			levels.Spectrum = res.Spectrum
		}
		e.config.Bridge.Publish(bridge.Update{Audio: levels})

		select {
		case <-e.ctx.Done():
			e.stopAudio("")
			return
		case <-time.After(audioInterval):
		}
	}

	e.stopAudio("Audio input stopped")
}

// stopAudio resets audio channel state and presentation values. Zeroing
// the bars is a deterministic side effect of the loop ending.
func (e *Engine) stopAudio(status string) {
	e.loopMu.Lock()
	e.audioRunning = false
	e.audioIntensity = 0
	otherActive := e.patternRunning
	e.loopMu.Unlock()

	e.smootherMu.Lock()
	e.smoother.Reset()
	e.smootherMu.Unlock()

	e.settleDevice(otherActive)

	e.config.Bridge.Publish(bridge.Update{
		Audio:  &bridge.AudioLevels{},
		Status: status,
	})
	log.Printf("Audio loop ended")
}

// failAudio marks the audio channel failed so the supervisor won't
// restart it until the user toggles the flag off and on again.
func (e *Engine) failAudio(status string) {
	e.loopMu.Lock()
	e.audioRunning = false
	e.audioIntensity = 0
	e.audioFailed = true
	otherActive := e.patternRunning
	e.loopMu.Unlock()

	e.settleDevice(otherActive)

	e.config.Bridge.Publish(bridge.Update{
		Audio:  &bridge.AudioLevels{},
		Status: status,
	})
}

// patternLoop advances the waveform clock and dispatches its intensity.
func (e *Engine) patternLoop() {
	defer e.wg.Done()
	log.Printf("Pattern loop started")

	e.generator.Reset()
	lastTick := time.Now()

	for {
		params := e.config.Bridge.Load()
		if !params.PatternEnabled {
			break
		}

		now := time.Now()
		dt := now.Sub(lastTick).Seconds()
		lastTick = now

		e.generator.Configure(params.Pattern)
		value := e.generator.Advance(dt)

		e.loopMu.Lock()
		e.patternIntensity = value
		audioLevel := e.audioIntensity
		audioActive := e.audioRunning
		e.loopMu.Unlock()

		combined := Combine(audioLevel, value, params.ManualIntensity, audioActive, true)
		e.offer(combined)

		if params.Verbose {
			log.Printf("Pattern - %s: %.3f, combined: %.3f",
				params.Pattern.Waveform, value, combined)
		}

		level := value * 100
		e.config.Bridge.Publish(bridge.Update{PatternLevel: &level})

		select {
		case <-e.ctx.Done():
			e.stopPattern("")
			return
		case <-time.After(patternInterval):
		}
	}

	e.stopPattern("Pattern control stopped")
}

// stopPattern resets pattern channel state and presentation values.
func (e *Engine) stopPattern(status string) {
	e.loopMu.Lock()
	e.patternRunning = false
	e.patternIntensity = 0
	otherActive := e.audioRunning
	e.loopMu.Unlock()

	e.settleDevice(otherActive)

	zero := 0.0
	e.config.Bridge.Publish(bridge.Update{
		PatternLevel: &zero,
		Status:       status,
	})
	log.Printf("Pattern loop ended")
}

// settleDevice dispatches the manual intensity when the last producer
// loop exits, so the actuator never stays stuck at the loop's final
// level. A still-active sibling loop keeps driving the device itself.
func (e *Engine) settleDevice(otherActive bool) {
	if otherActive {
		return
	}
	e.offer(e.config.Bridge.Load().ManualIntensity)
}

// offer hands the combined intensity to the dispatcher if a device is
// available. Dispatch is fire-and-forget relative to the caller.
func (e *Engine) offer(level float64) {
	if e.config.HasDevice != nil && !e.config.HasDevice() {
		return
	}
	e.config.Dispatcher.Offer(level)
}

// statsLoop performs the 1Hz statistics rollup.
func (e *Engine) statsLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(statsEvery)
	defer ticker.Stop()

	var total int64

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
		}

		sent := e.config.Dispatcher.ResetCount()
		total += sent

		e.config.Bridge.Publish(bridge.Update{
			Stats: &bridge.Stats{
				CommandsSent:   total,
				CommandsPerSec: float64(sent) / statsEvery.Seconds(),
			},
		})
	}
}
