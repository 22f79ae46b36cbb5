package vault

import (
	"sync"
	"time"

	"github.com/pentesthub/hubvault/internal/events"
)

// AutoLock schedules the inactivity lock: one cancellable warning
// timer and one cancellable lock timer, both rescheduled by
// RecordActivity. The platform-integration layer decides what counts
// as activity and calls RecordActivity; nothing here binds to input
// events.
type AutoLock struct {
	timeout time.Duration
	warning time.Duration
	onWarn  func(remaining time.Duration)
	onLock  func()
	logger  *events.Logger

	mu        sync.Mutex
	warnTimer *time.Timer
	lockTimer *time.Timer
	armed     bool
	gen       uint64
}

// NewAutoLock creates a scheduler. warning is how long before the lock
// fires that onWarn runs; a zero warning disables it. onWarn may be
// nil.
func NewAutoLock(timeout, warning time.Duration, onWarn func(remaining time.Duration), onLock func(), logger *events.Logger) *AutoLock {
	return &AutoLock{
		timeout: timeout,
		warning: warning,
		onWarn:  onWarn,
		onLock:  onLock,
		logger:  logger.WithField("component", "auto_lock"),
	}
}

// Start arms the timers. Equivalent to a first activity event.
func (a *AutoLock) Start() {
	a.schedule()
}

// RecordActivity cancels and reschedules both timers, pushing the lock
// out to now + timeout.
func (a *AutoLock) RecordActivity() {
	a.schedule()
}

// Stop cancels both timers without firing.
func (a *AutoLock) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelLocked()
	a.armed = false
}

func (a *AutoLock) schedule() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelLocked()
	a.armed = true
	a.gen++
	gen := a.gen

	if a.onWarn != nil && a.warning > 0 && a.warning < a.timeout {
		remaining := a.warning
		a.warnTimer = time.AfterFunc(a.timeout-a.warning, func() {
			if a.stillArmed(gen) {
				a.onWarn(remaining)
			}
		})
	}

	a.lockTimer = time.AfterFunc(a.timeout, func() {
		// Callbacks run without the mutex held; onLock calls back
		// into the vault service.
		if !a.disarm(gen) {
			return
		}
		a.logger.Info("Auto-lock timeout reached")
		a.onLock()
	})
}

func (a *AutoLock) cancelLocked() {
	if a.warnTimer != nil {
		a.warnTimer.Stop()
		a.warnTimer = nil
	}
	if a.lockTimer != nil {
		a.lockTimer.Stop()
		a.lockTimer = nil
	}
}

func (a *AutoLock) stillArmed(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.armed && a.gen == gen
}

// disarm reports whether this generation's timer is still current, and
// disarms it. Guards against a stale timer that fired just as a
// reschedule raced it.
func (a *AutoLock) disarm(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.armed || a.gen != gen {
		return false
	}
	a.armed = false
	return true
}
