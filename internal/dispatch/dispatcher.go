// ABOUTME: Rate-limited command dispatcher for the actuator sink
// ABOUTME: Throttles sends and decouples producers from sink latency
package dispatch

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Sink is the external actuator endpoint. Both calls are asynchronous
// from the producer's perspective; failures surface as status text and
// never halt a processing loop.
type Sink interface {
	Command(level float64) error
	Stop() error
}

// DefaultInterval enforces the fixed command cadence (5 commands/second).
const DefaultInterval = 200 * time.Millisecond

// command carries one queued intensity plus the stop generation it was
// accepted under. The worker discards commands from a stale generation
// so nothing accepted before an emergency stop reaches the sink after it.
type command struct {
	level float64
	gen   uint64
}

// Dispatcher throttles intensity commands and hands them to a worker
// goroutine so producer loops never block on the sink.
type Dispatcher struct {
	sink     Sink
	interval time.Duration
	onStatus func(string)
	now      func() time.Time // injectable clock

	mu        sync.Mutex
	lastSend  time.Time
	lastLevel float64
	sentAny   bool

	counter atomic.Int64
	gen     atomic.Uint64

	// sinkMu serializes worker sends against EmergencyStop: the stop
	// waits out an in-flight send and invalidates everything behind it.
	sinkMu sync.Mutex

	queue    chan command
	stopChan chan struct{}
	stopOnce sync.Once
}

// New creates a dispatcher for the given sink. onStatus receives sink
// failure descriptions for presentation; it may be nil.
func New(sink Sink, interval time.Duration, onStatus func(string)) *Dispatcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	d := &Dispatcher{
		sink:     sink,
		interval: interval,
		onStatus: onStatus,
		now:      time.Now,
		queue:    make(chan command, 16),
		stopChan: make(chan struct{}),
	}
	go d.worker()
	return d
}

// Offer submits an intensity for dispatch. Sends inside the minimum
// interval are skipped, except that a zero/nonzero transition always
// goes through so the actuator is never stranded at a stale level.
// Returns true if the command was accepted.
func (d *Dispatcher) Offer(level float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	transition := d.sentAny && (d.lastLevel == 0) != (level == 0)

	if !transition && d.sentAny && now.Sub(d.lastSend) < d.interval {
		return false
	}

	cmd := command{level: level, gen: d.gen.Load()}

	select {
	case d.queue <- cmd:
	default:
		// Worker is backed up behind a slow sink. A throttled-cadence
		// send can be dropped without recording it, but a transition
		// must survive: displace the oldest queued command instead.
		if !transition {
			d.report(fmt.Sprintf("dispatch queue full, dropped %.2f", level))
			return false
		}
		select {
		case <-d.queue:
		default:
		}
		select {
		case d.queue <- cmd:
		default:
			d.report(fmt.Sprintf("dispatch queue full, dropped transition %.2f", level))
			return false
		}
	}

	d.lastSend = now
	d.lastLevel = level
	d.sentAny = true
	d.counter.Add(1)

	return true
}

// EmergencyStop issues an immediate stop to the sink, jumping any queued
// commands. Synchronous so the caller knows the stop went out; an
// in-flight send is waited out, and nothing accepted before the stop can
// reach the sink after it.
func (d *Dispatcher) EmergencyStop() error {
	// Invalidate every command accepted so far, then drain what is
	// still queued. A command the worker has already dequeued fails the
	// generation check under sinkMu instead.
	d.gen.Add(1)
drain:
	for {
		select {
		case <-d.queue:
		default:
			break drain
		}
	}

	d.mu.Lock()
	d.lastLevel = 0
	d.lastSend = d.now()
	d.sentAny = true
	d.mu.Unlock()

	d.sinkMu.Lock()
	err := d.sink.Stop()
	d.sinkMu.Unlock()

	if err != nil {
		d.report(fmt.Sprintf("stop failed: %v", err))
		return err
	}
	return nil
}

// Count returns commands accepted since the last reset.
func (d *Dispatcher) Count() int64 {
	return d.counter.Load()
}

// ResetCount zeroes the counter and returns the prior value. Called by
// the statistics rollup, never by the dispatcher itself.
func (d *Dispatcher) ResetCount() int64 {
	return d.counter.Swap(0)
}

// Close stops the dispatch worker.
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() {
		close(d.stopChan)
	})
}

// worker drains the queue and talks to the sink. Failures are reported,
// not retried; dispatch continues with the next command.
func (d *Dispatcher) worker() {
	for {
		select {
		case cmd := <-d.queue:
			d.sinkMu.Lock()
			if cmd.gen == d.gen.Load() {
				if err := d.sink.Command(cmd.level); err != nil {
					d.report(fmt.Sprintf("device error: %v", err))
				}
			}
			d.sinkMu.Unlock()
		case <-d.stopChan:
			return
		}
	}
}

func (d *Dispatcher) report(status string) {
	log.Printf("Dispatch: %s", status)
	if d.onStatus != nil {
		d.onStatus(status)
	}
}
