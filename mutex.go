// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

// Mutex is a thin wrapper over a Semaphore initialized to 1 (§4.6).
// Recursive acquisition is undefined, and an unlock by a non-owner is not
// detected at this level — callers must honor the discipline themselves,
// exactly as the spec requires.
type Mutex struct {
	sem *Semaphore
}

// NewMutex creates an unlocked mutex.
func NewMutex(s *Scheduler) *Mutex {
	return &Mutex{sem: NewSemaphore(s, 1)}
}

// Lock blocks until the mutex is acquired.
func (m *Mutex) Lock() { m.sem.Wait() }

// TryLock acquires the mutex without blocking, or fails with
// ErrWouldBlock.
func (m *Mutex) TryLock() error { return m.sem.TryWait() }

// Unlock releases the mutex.
func (m *Mutex) Unlock() { m.sem.Post() }
