// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

import "sync/atomic"

// Semaphore is a counting semaphore with a FIFO wait queue of task ids
// (§4.6). The wait queue is naturally bounded by the number of TCB slots,
// since a task can be queued on at most one thing at a time (§3) — no
// separate capacity check is needed (see DESIGN.md's Open Question
// resolutions).
type Semaphore struct {
	sched     *Scheduler
	count     int32
	waitQueue []int
}

// NewSemaphore creates a semaphore initialized to n.
func NewSemaphore(s *Scheduler, n int32) *Semaphore {
	return &Semaphore{sched: s, count: n}
}

// Wait decrements the count if positive, or blocks the calling task on
// the FIFO wait list until a matching Post hands it the unit directly
// (§4.6). Never fails.
func (sem *Semaphore) Wait() {
	g := AcquireGuard()
	if sem.count > 0 {
		atomic.AddInt32(&sem.count, -1)
		g.Release()
		return
	}

	cur := sem.sched.currentTCBLocked()
	sem.waitQueue = append(sem.waitQueue, cur.id)
	cur.state = StateBlocked
	cur.waitingOn = sem
	next := sem.sched.scheduleLocked()
	g.Release()
	sem.sched.handoff(cur, next)
}

// TryWait decrements and returns nil if positive, or fails with
// ErrWouldBlock without blocking.
func (sem *Semaphore) TryWait() error {
	g := AcquireGuard()
	defer g.Release()
	if sem.count > 0 {
		atomic.AddInt32(&sem.count, -1)
		return nil
	}
	return ErrWouldBlock
}

// Post wakes the head of the FIFO wait list if non-empty (handing the
// unit directly to that waiter, without ever incrementing count), else
// increments count (§4.6).
func (sem *Semaphore) Post() {
	g := AcquireGuard()
	if len(sem.waitQueue) > 0 {
		id := sem.waitQueue[0]
		sem.waitQueue = sem.waitQueue[1:]
		t := sem.sched.tasks[id]
		t.state = StateReady
		t.waitingOn = nil
		g.Release()
		return
	}
	atomic.AddInt32(&sem.count, 1)
	g.Release()
}

// Count returns the current count. Informational only — may be stale by
// the time the caller observes it (§4.6).
func (sem *Semaphore) Count() int32 { return atomic.LoadInt32(&sem.count) }
