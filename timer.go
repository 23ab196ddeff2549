package rlc

import (
	"sync"
	"time"
)

// rlcTimer is a restartable, cancellable timer carrying an active bit,
// checked again inside the fire callback after the lock is reacquired so a
// Stop that raced with an in-flight fire is honored. Modeled on
// pkg/time.TIME's timerProducer discipline (AfterFunc + Reset, guarded by
// the owning struct's mutex), generalized to an arbitrary onFire hook.
type rlcTimer struct {
	mu     *sync.Mutex
	timer  *time.Timer
	active bool
	onFire func()
	yield  func()
}

// newRLCTimer builds a timer that invokes onFire (assumed to run under mu)
// whenever it fires and is still active, then calls yield once mu has been
// released so any callback onFire enqueued on the context scheduler is
// delivered, matching the Yield every exported Context method performs
// after unlocking.
func newRLCTimer(mu *sync.Mutex, onFire func(), yield func()) *rlcTimer {
	return &rlcTimer{mu: mu, onFire: onFire, yield: yield}
}

// start arms or rearms the timer for duration d. Caller must hold mu.
func (rt *rlcTimer) start(d time.Duration) {
	rt.active = true
	if rt.timer == nil {
		rt.timer = time.AfterFunc(d, rt.fire)
	} else {
		rt.timer.Reset(d)
	}
}

// stop disarms the timer. Caller must hold mu. Safe to call on a timer that
// was never started.
func (rt *rlcTimer) stop() {
	rt.active = false
	if rt.timer != nil {
		rt.timer.Stop()
	}
}

// isActive reports the timer's active bit. Caller must hold mu.
func (rt *rlcTimer) isActive() bool {
	return rt.active
}

func (rt *rlcTimer) fire() {
	rt.mu.Lock()
	if !rt.active {
		// Raced with a Stop between the platform timer firing and this
		// callback acquiring the lock; treat as cancelled.
		rt.mu.Unlock()
		return
	}
	rt.active = false
	rt.onFire()
	rt.mu.Unlock()

	if rt.yield != nil {
		rt.yield()
	}
}
