// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

import "time"

// Scheduler owns the TCB array, the round-robin selection cursor, and the
// monotonic tick counter — the "global mutable state" §9 calls for a
// single owner behind a constructor. It generalizes the teacher's
// CoprocessorManager (a mutex-guarded array of worker slots, ticket
// bookkeeping, one goroutine per running worker) from "one goroutine per
// CPU-type worker" to "one goroutine per TCB slot".
type Scheduler struct {
	tasks []*TCB
	last  int

	// runningID is the slot physically holding the baton — mutated only
	// inside handoff, never by scheduleLocked itself. nextID is the most
	// recent scheduling decision: scheduleLocked sets it every time it
	// runs, including when called eagerly from a tick with no task
	// actually blocked. CheckPoint compares the two to discover a
	// decision made during a tick that the running task hasn't yet
	// honored — see SPEC_FULL.md §0. Yield/Sleep/Wait fold the decision
	// straight into a handoff in the same call, so the two fields only
	// ever diverge across a tick boundary.
	runningID int
	nextID    int

	tickCount uint32
}

// DefaultTaskSlots is N from §3: small, e.g. 8.
const DefaultTaskSlots = 8

// DefaultStackSize is the nominal per-task stack slab size recorded in a
// TCB; ferrokernel does not segment real memory for it (tasks run on their
// own goroutine stacks), but the field is part of the spec's data model
// and is kept for API and test fidelity.
const DefaultStackSize = 4096

// NewScheduler builds a scheduler with n TCB slots (n must be >= 1) and
// starts the idle task in slot 0.
func NewScheduler(n int) *Scheduler {
	if n < 1 {
		n = DefaultTaskSlots
	}
	s := &Scheduler{tasks: make([]*TCB, n)}
	for i := range s.tasks {
		s.tasks[i] = &TCB{
			id:      i,
			state:   StateFree,
			savedSP: make(chan struct{}, 1),
			stackSize: DefaultStackSize,
		}
	}
	idle := s.tasks[0]
	idle.priority = 0
	idle.name = "idle"
	idle.entry = s.idleEntry
	idle.done = make(chan struct{})
	idle.state = StateRunning
	s.runningID = 0
	s.nextID = 0
	go s.runTask(idle)
	return s
}

// Start loads the idle task's saved context and releases it to run,
// mirroring §4.4's "never returns": the calling goroutine blocks forever,
// since from here on every further step of execution happens inside task
// goroutines driven by the scheduler.
func (s *Scheduler) Start() {
	idle := s.tasks[0]
	idle.savedSP <- struct{}{}
	select {}
}

// TaskCreate reserves the lowest-numbered free slot, stamps the TCB, and
// starts its goroutine parked at the first resume (§4.4). The goroutine
// plays the role of the initial context frame + entry trampoline: it does
// nothing until the scheduler signals it, then invokes entry(arg).
func (s *Scheduler) TaskCreate(name string, entry TaskFunc, arg any, priority uint8) (*TCB, error) {
	g := AcquireGuard()
	slot := -1
	for i, t := range s.tasks {
		if t.state == StateFree {
			slot = i
			break
		}
	}
	if slot == -1 {
		g.Release()
		return nil, ErrNoSlot
	}
	t := s.tasks[slot]
	t.state = StateReady
	t.name = name
	t.priority = priority
	t.entry = entry
	t.arg = arg
	t.wakeTick = 0
	t.ticksRun = 0
	t.waitingOn = nil
	t.stackSize = DefaultStackSize
	t.done = make(chan struct{})
	g.Release()

	go s.runTask(t)
	return t, nil
}

func (s *Scheduler) runTask(t *TCB) {
	<-t.savedSP
	t.entry(t.arg)
	s.retire(t)
}

// retire transitions a returned task's entry function to Dead and parks
// its goroutine forever — ferrokernel has no slot reclamation (Non-goal).
func (s *Scheduler) retire(cur *TCB) {
	g := AcquireGuard()
	cur.state = StateDead
	next := s.scheduleLocked()
	g.Release()
	close(cur.done)
	s.handoff(cur, next) // cur.savedSP is never signaled again: parks forever.
}

// idleEntry is slot 0's body: the "wait for interrupt" loop (§4.4). Idle
// is the only task guaranteed to be awake with nothing better to do, so
// it is also the one that actively offers the CPU back to the scheduler
// every pass via Yield — not merely CheckPoint, which only honors a
// reschedule decision someone else already made. Without this, a task
// created while idle is the only thing running would never receive its
// first scheduling decision: TaskCreate only marks a TCB Ready, it never
// itself forces a schedule() pass (that happens from Yield/Sleep/a
// semaphore wait/a tick). Idle's loop is what stands in for real
// hardware's "any pending interrupt wakes WFI" behavior, sleeping briefly
// between passes rather than spinning the host CPU.
func (s *Scheduler) idleEntry(_ any) {
	for {
		s.Yield()
		time.Sleep(time.Millisecond)
	}
}

// currentTCBLocked returns the TCB physically holding the baton right
// now. Caller must hold the guard. Valid to call from any of
// Yield/Sleep/SemWait/etc, since only the goroutine currently holding the
// baton is ever in a position to call them.
func (s *Scheduler) currentTCBLocked() *TCB {
	return s.tasks[s.runningID]
}

// scheduleLocked implements §4.4's schedule(): demote the Running task to
// Ready, then scan starting at (last+1) mod N for the highest-priority
// Ready task, round-robin tie-break, idle only as a last resort. This is
// purely a bookkeeping decision — it does not itself move the baton (see
// handoff) — so it is safe to call from the dispatcher's tick path even
// while some other task is still physically executing; that task
// discovers the decision at its next CheckPoint. Caller must hold the
// guard.
func (s *Scheduler) scheduleLocked() *TCB {
	cur := s.tasks[s.runningID]
	if cur.state == StateRunning {
		cur.state = StateReady
	}
	// A decision from an earlier tick that no handoff has honored yet left
	// its pick marked Running; return it to Ready so this pass can choose it.
	if pending := s.tasks[s.nextID]; pending.state == StateRunning {
		pending.state = StateReady
	}

	n := len(s.tasks)
	best := -1
	bestPriority := -1
	for i := 0; i < n; i++ {
		idx := (s.last + 1 + i) % n
		if idx == 0 {
			continue // idle is the fallback, handled below
		}
		t := s.tasks[idx]
		if t.state != StateReady {
			continue
		}
		if int(t.priority) > bestPriority {
			bestPriority = int(t.priority)
			best = idx
		}
	}
	if best == -1 {
		best = 0
	}

	chosen := s.tasks[best]
	chosen.state = StateRunning
	s.last = best
	s.nextID = best
	return chosen
}

// handoff performs the actual goroutine baton pass: record next as the
// physical holder, wake it (unless it already is the one holding the
// baton), then park cur until it is chosen again. Recording runningID
// before waking next, both under the guard, guarantees next observes
// itself as current the moment it resumes — see SPEC_FULL.md §0 for why
// this, and not a literal stack pivot, is the right adaptation of §4.5 to
// a managed runtime.
func (s *Scheduler) handoff(cur, next *TCB) {
	g := AcquireGuard()
	s.runningID = next.id
	g.Release()

	if next.id == cur.id {
		return
	}
	next.savedSP <- struct{}{}
	<-cur.savedSP
}

// Yield requests an immediate reschedule (§4.4). Idempotent: if no other
// task is more eligible, the caller resumes without ever actually
// suspending.
func (s *Scheduler) Yield() {
	g := AcquireGuard()
	cur := s.currentTCBLocked()
	next := s.scheduleLocked()
	g.Release()
	s.handoff(cur, next)
}

// CheckPoint honors a reschedule decision the dispatcher already made
// (during a tick) without forcing one. It is the suspension point a
// long-running task should call periodically to remain responsive to
// tick-driven preemption — see SPEC_FULL.md §0. (Idle does not use it; its
// loop calls Yield.)
func (s *Scheduler) CheckPoint() {
	g := AcquireGuard()
	if s.nextID == s.runningID {
		g.Release()
		return
	}
	cur := s.tasks[s.runningID]
	next := s.tasks[s.nextID]
	g.Release()
	s.handoff(cur, next)
}

// Sleep blocks the calling task until at least ticks ticks have elapsed
// (§4.4). Never fails.
func (s *Scheduler) Sleep(ticks uint32) {
	g := AcquireGuard()
	cur := s.currentTCBLocked()
	cur.wakeTick = s.tickCount + ticks
	cur.state = StateBlocked
	next := s.scheduleLocked()
	g.Release()
	s.handoff(cur, next)
}

// wakeSleepersLocked moves every Blocked-for-sleep task whose wake_tick
// has arrived back to Ready. Signed comparison makes this correct across
// the 32-bit tick counter's wraparound (§5). Caller must hold the guard.
func (s *Scheduler) wakeSleepersLocked() {
	for _, t := range s.tasks {
		if t.state != StateBlocked || t.wakeTick == 0 {
			continue
		}
		if int32(s.tickCount-t.wakeTick) >= 0 {
			t.state = StateReady
			t.wakeTick = 0
		}
	}
}

// TickCount returns the monotonic tick counter. Safe to read without a
// guard: it is only ever written by the dispatcher, single word,
// monotonic (§5) — the same "no guard needed, momentarily-stale-is-fine"
// contract the heap and pool diagnostics rely on.
func (s *Scheduler) TickCount() uint32 { return s.tickCount }

// Tasks returns the scheduler's own slice of every TCB (not a copy), for
// inspection/tests.
func (s *Scheduler) Tasks() []*TCB { return s.tasks }

// RunningID returns the slot index the scheduler currently believes is
// Running.
func (s *Scheduler) RunningID() int { return s.runningID }

// Wait blocks until task t's entry function has returned (reached Dead).
// Not part of the spec's kernel surface; a test/harness convenience for
// synchronizing with task completion without polling State().
func (t *TCB) Wait() { <-t.done }
