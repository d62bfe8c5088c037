// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

// FaultPolicy selects what the dispatcher does with a task that raised a
// non-interrupt exception (illegal instruction, bus error) — §4.5's open
// design choice, resolved here as a configurable field rather than a
// compile-time pick so both documented options stay live.
type FaultPolicy int

const (
	// FaultResume returns without action, resuming the faulting task —
	// the spec's "current policy", and ferrokernel's default.
	FaultResume FaultPolicy = iota
	// FaultKill transitions the faulting task to Dead and reschedules.
	FaultKill
)

// Dispatcher is the entry point for tick and peripheral interrupts (§4.5).
// A software yield does not pass through it: Scheduler.Yield calls the
// scheduler directly. The
// context-save/restore prologue and epilogue described in §4.5 steps 1–3
// and 5 are the Go runtime's own goroutine scheduling plus the
// Scheduler.handoff baton (SPEC_FULL.md §0); this type owns step 4, the
// "C-level dispatcher" logic that decides what the tick means.
type Dispatcher struct {
	sched       *Scheduler
	timers      *TimerRegistry
	peripherals map[int]PeripheralHandler
	FaultPolicy FaultPolicy
	tickSource  TickSource
}

// NewDispatcher builds a dispatcher over sched and timers. Register
// peripheral handlers with RegisterPeripheral before calling Run.
func NewDispatcher(sched *Scheduler, timers *TimerRegistry) *Dispatcher {
	return &Dispatcher{
		sched:       sched,
		timers:      timers,
		peripherals: make(map[int]PeripheralHandler),
		FaultPolicy: FaultResume,
	}
}

// RegisterPeripheral wires a handler for peripheral id. Handlers must be
// short and non-blocking (§4.5) — they run with interrupts masked.
func (d *Dispatcher) RegisterPeripheral(id int, h PeripheralHandler) {
	d.peripherals[id] = h
}

// Run wires the dispatcher's OnTick to the given tick source and starts
// delivery. The tick source owns the periodic-interrupt goroutine; the
// dispatcher only reacts to each pulse.
func (d *Dispatcher) Run(ts TickSource) {
	d.tickSource = ts
	ts.Start(d.OnTick)
}

// Stop halts the tick source, if one is running.
func (d *Dispatcher) Stop() {
	if d.tickSource != nil {
		d.tickSource.Stop()
	}
}

// OnTick is §4.5's tick path: acknowledge (implicit — the host timer
// already has by virtue of firing), advance the monotonic counter, charge
// the current task, wake eligible sleepers, fire expired software timers,
// then schedule. Sleep-queue wake happens-before scheduling within this
// single call, satisfying §4.5's ordering guarantee.
func (d *Dispatcher) OnTick() {
	g := AcquireGuard()
	s := d.sched

	s.tickCount++
	cur := s.currentTCBLocked()
	cur.ticksRun++

	s.wakeSleepersLocked()
	if d.timers != nil {
		d.timers.fireLocked(s.tickCount)
	}

	s.scheduleLocked()
	g.Release()
	// The goroutine holding the baton (cur, unless scheduleLocked just
	// picked someone else) discovers any change at its next CheckPoint or
	// suspension point — see SPEC_FULL.md §0.
}

// DispatchPeripheral services one peripheral interrupt by id (§4.5). The
// handler runs synchronously, with the guard held, matching "these must
// be short and non-blocking".
func (d *Dispatcher) DispatchPeripheral(id int) {
	g := AcquireGuard()
	defer g.Release()
	if h, ok := d.peripherals[id]; ok {
		h()
	}
}

// HandleFault applies the configured FaultPolicy to a task that raised a
// non-interrupt exception (§4.5, §7, §9).
func (d *Dispatcher) HandleFault(t *TCB) {
	if d.FaultPolicy == FaultResume {
		return
	}
	g := AcquireGuard()
	t.state = StateDead
	d.sched.scheduleLocked()
	g.Release()
}
