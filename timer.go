// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

// TimerMode selects one-shot vs periodic re-arming (§3).
type TimerMode int

const (
	TimerOneShot TimerMode = iota
	TimerPeriodic
)

// TimerCallback runs from the dispatcher's tick path with interrupts
// still masked (§4.8): it must be brief and must not block or allocate
// non-trivially. It may safely call Semaphore.Post or
// MessageQueue.TrySend, since neither blocks.
type TimerCallback func(arg any)

// SoftwareTimer is one entry of the timer registry (§3).
type SoftwareTimer struct {
	cb     TimerCallback
	arg    any
	period uint32
	expire uint32
	mode   TimerMode
	active bool
}

// DefaultTimerSlots is T from §3/§4.8: a small fixed registry capacity.
const DefaultTimerSlots = 16

// TimerRegistry is the global registry of up to T active timers (§4.8),
// serviced once per tick from the dispatcher. Grounded on the same
// small-fixed-capacity-array shape as Scheduler's TCB array and
// CoprocessorManager's worker slots.
type TimerRegistry struct {
	sched    *Scheduler
	timers   []*SoftwareTimer
	capacity int
}

// NewTimerRegistry creates a registry with room for up to capacity
// simultaneously active timers.
func NewTimerRegistry(s *Scheduler, capacity int) *TimerRegistry {
	return &TimerRegistry{sched: s, capacity: capacity}
}

// NewTimer stamps a fresh, inactive timer bound to cb/arg (§4.8's init).
func (r *TimerRegistry) NewTimer(cb TimerCallback, arg any) *SoftwareTimer {
	return &SoftwareTimer{cb: cb, arg: arg}
}

// Start arms t to first fire after ticks ticks, in the given mode,
// inserting it into the registry if it isn't already active. Fails with
// ErrNoSlot if the registry is already at capacity.
func (r *TimerRegistry) Start(t *SoftwareTimer, ticks uint32, mode TimerMode) error {
	g := AcquireGuard()
	defer g.Release()

	if !t.active {
		if len(r.timers) >= r.capacity {
			return ErrNoSlot
		}
		r.timers = append(r.timers, t)
	}
	t.expire = r.sched.tickCount + ticks
	t.period = ticks
	t.mode = mode
	t.active = true
	return nil
}

// Stop disarms t and removes it from the registry.
func (r *TimerRegistry) Stop(t *SoftwareTimer) {
	g := AcquireGuard()
	defer g.Release()

	t.active = false
	for i, tt := range r.timers {
		if tt == t {
			r.timers = append(r.timers[:i], r.timers[i+1:]...)
			return
		}
	}
}

// fireLocked invokes every timer whose expiry has arrived. Caller (the
// dispatcher, from OnTick) must hold the guard; callbacks therefore run
// with interrupts masked, per §4.8.
func (r *TimerRegistry) fireLocked(now uint32) {
	for i := 0; i < len(r.timers); {
		t := r.timers[i]
		if !t.active || int32(now-t.expire) < 0 {
			i++
			continue
		}
		t.cb(t.arg)
		if t.mode == TimerPeriodic {
			t.expire += t.period
			i++
			continue
		}
		t.active = false
		r.timers = append(r.timers[:i], r.timers[i+1:]...)
	}
}
