package ingest

import (
	"sync"
	"time"
)

// emitter rate-limits snapshot emission. A request is served immediately
// when the minimum interval has elapsed since the last emission; otherwise
// exactly one trailing emission is scheduled for the remaining wait and
// further requests coalesce into it. The callback reads live aggregator
// state at fire time, so the deferred emission always reflects the latest
// data and the last update before a quiet period is never dropped.
type emitter struct {
	mu      sync.Mutex
	min     time.Duration
	fn      func()
	last    time.Time
	pending *time.Timer
	stopped bool
}

func newEmitter(min time.Duration, fn func()) *emitter {
	return &emitter{min: min, fn: fn}
}

// request emits now if allowed, else schedules the single trailing emission.
func (e *emitter) request() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	now := time.Now()
	elapsed := now.Sub(e.last)
	if elapsed < e.min {
		// One pending timer slot: a second deferred emission is never
		// created, the existing one fires with the latest state.
		if e.pending == nil {
			e.pending = time.AfterFunc(e.min-elapsed, e.fire)
		}
		e.mu.Unlock()
		return
	}
	e.last = now
	e.mu.Unlock()
	e.fn()
}

// force emits immediately regardless of the interval, resetting the window.
func (e *emitter) force() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.last = time.Now()
	e.mu.Unlock()
	e.fn()
}

func (e *emitter) fire() {
	e.mu.Lock()
	e.pending = nil
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.last = time.Now()
	e.mu.Unlock()
	e.fn()
}

// stop cancels any pending emission and suppresses all further ones.
func (e *emitter) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
}
