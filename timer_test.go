// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

import "testing"

func newDispatcherTestRig(t *testing.T) (*Scheduler, *TimerRegistry, *Dispatcher) {
	t.Helper()
	s := NewScheduler(4)
	go s.Start()
	timers := NewTimerRegistry(s, DefaultTimerSlots)
	d := NewDispatcher(s, timers)
	return s, timers, d
}

func TestTimerOneShotFiresOnce(t *testing.T) {
	_, timers, d := newDispatcherTestRig(t)
	var fired int
	tm := timers.NewTimer(func(any) { fired++ }, nil)
	if err := timers.Start(tm, 3, TimerOneShot); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 5; i++ {
		d.OnTick()
	}
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestTimerPeriodicReArms(t *testing.T) {
	_, timers, d := newDispatcherTestRig(t)
	var fired int
	tm := timers.NewTimer(func(any) { fired++ }, nil)
	if err := timers.Start(tm, 2, TimerPeriodic); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 10; i++ {
		d.OnTick()
	}
	if fired < 4 {
		t.Fatalf("fired = %d after 10 ticks of a period-2 timer, want >= 4", fired)
	}
}

func TestTimerStopPreventsFurtherFiring(t *testing.T) {
	_, timers, d := newDispatcherTestRig(t)
	var fired int
	tm := timers.NewTimer(func(any) { fired++ }, nil)
	if err := timers.Start(tm, 2, TimerPeriodic); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 4; i++ {
		d.OnTick()
	}
	timers.Stop(tm)
	afterStop := fired
	for i := 0; i < 10; i++ {
		d.OnTick()
	}
	if fired != afterStop {
		t.Fatalf("fired changed after Stop: %d -> %d", afterStop, fired)
	}
}

func TestTimerRegistryCapacity(t *testing.T) {
	s := NewScheduler(4)
	go s.Start()
	timers := NewTimerRegistry(s, 1)
	a := timers.NewTimer(func(any) {}, nil)
	b := timers.NewTimer(func(any) {}, nil)

	if err := timers.Start(a, 5, TimerOneShot); err != nil {
		t.Fatalf("Start a: %v", err)
	}
	if err := timers.Start(b, 5, TimerOneShot); err != ErrNoSlot {
		t.Fatalf("Start b over capacity: got %v, want ErrNoSlot", err)
	}
}
