// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

import (
	"sync/atomic"
	"testing"
	"time"
)

// fakeTickSource is a TickSource test double driven manually by the test
// rather than a real host timer, in the style of the teacher's own
// small, explicit test doubles (machine_bus.go's Bus32 implementations).
type fakeTickSource struct {
	onTick func()
}

func (f *fakeTickSource) Start(onTick func()) { f.onTick = onTick }
func (f *fakeTickSource) Stop()               {}
func (f *fakeTickSource) fire()               { f.onTick() }

func newFakeTickDispatcherRig(slots int) (*Scheduler, *TimerRegistry, *Dispatcher, *fakeTickSource) {
	s := NewScheduler(slots)
	go s.Start()
	timers := NewTimerRegistry(s, DefaultTimerSlots)
	d := NewDispatcher(s, timers)
	ts := &fakeTickSource{}
	d.Run(ts)
	return s, timers, d, ts
}

func TestDispatcherOnTickAdvancesCounterAndWakesSleepers(t *testing.T) {
	s, _, _, ts := newFakeTickDispatcherRig(4)

	woke := make(chan uint32, 1)
	if _, err := s.TaskCreate("sleeper", func(any) {
		s.Sleep(3)
		woke <- s.TickCount()
	}, nil, 5); err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}

	for i := 0; i < 5; i++ {
		ts.fire()
		time.Sleep(time.Millisecond)
	}

	select {
	case tick := <-woke:
		if tick < 3 {
			t.Fatalf("woke at tick %d, want >= 3", tick)
		}
	case <-time.After(time.Second):
		t.Fatal("sleeper never woke")
	}
	if s.TickCount() < 5 {
		t.Fatalf("TickCount() = %d, want >= 5", s.TickCount())
	}
}

func TestDispatcherOnTickFiresExpiredTimers(t *testing.T) {
	_, timers, _, ts := newFakeTickDispatcherRig(4)

	var fired int64
	timer := timers.NewTimer(func(any) {
		atomic.AddInt64(&fired, 1)
	}, nil)
	if err := timers.Start(timer, 2, TimerOneShot); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 4; i++ {
		ts.fire()
	}
	if atomic.LoadInt64(&fired) != 1 {
		t.Fatalf("fired = %d, want 1 (one-shot)", fired)
	}

	// A one-shot that already fired must not fire again.
	for i := 0; i < 4; i++ {
		ts.fire()
	}
	if atomic.LoadInt64(&fired) != 1 {
		t.Fatalf("fired after extra ticks = %d, want still 1", fired)
	}
}

func TestDispatcherOrderingSleepWakeBeforeSchedule(t *testing.T) {
	// §4.5's ordering guarantee: a task that wakes during a tick is
	// eligible for selection in that same dispatcher pass, not the next
	// one. A high-priority sleeper waking exactly when a low-priority
	// task is mid-run must preempt it immediately.
	s, _, _, ts := newFakeTickDispatcherRig(4)

	order := make(chan string, 4)
	lowDone := make(chan struct{})
	hiCreated := make(chan struct{})

	// low is the only non-idle Ready task until hiCreated closes, so the
	// first tick cannot pick sleeper-hi by priority accident.
	if _, err := s.TaskCreate("low", func(any) {
		order <- "low"
		<-hiCreated
		for i := 0; i < 10; i++ {
			s.Yield()
		}
		close(lowDone)
	}, nil, 1); err != nil {
		t.Fatalf("TaskCreate low: %v", err)
	}
	ts.fire() // hands low the baton (idle is the only competitor)

	if first := <-order; first != "low" {
		t.Fatalf("first = %q, want low", first)
	}

	if _, err := s.TaskCreate("sleeper-hi", func(any) {
		s.Sleep(2)
		order <- "hi-woke"
	}, nil, 9); err != nil {
		t.Fatalf("TaskCreate sleeper-hi: %v", err)
	}
	close(hiCreated)

	for i := 0; i < 5; i++ {
		ts.fire()
		time.Sleep(time.Millisecond)
	}

	select {
	case second := <-order:
		if second != "hi-woke" {
			t.Fatalf("second = %q, want hi-woke", second)
		}
	case <-time.After(time.Second):
		t.Fatal("high-priority sleeper never woke")
	}
	<-lowDone
}

func TestDispatcherFaultPolicyResumesByDefault(t *testing.T) {
	s, _, d, ts := newFakeTickDispatcherRig(4)
	if d.FaultPolicy != FaultResume {
		t.Fatalf("default FaultPolicy = %v, want FaultResume", d.FaultPolicy)
	}

	ran := make(chan struct{})
	tcb, err := s.TaskCreate("faulter", func(any) {
		close(ran)
	}, nil, 5)
	if err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}
	ts.fire() // priority 5 beats idle: one tick hands it the baton
	<-ran
	tcb.Wait()

	d.HandleFault(tcb)
	if tcb.State() != StateDead {
		t.Fatalf("State after HandleFault with FaultResume = %v, want unchanged (already Dead from return)", tcb.State())
	}
}

func TestDispatcherFaultPolicyKillMarksDead(t *testing.T) {
	s, _, d, _ := newFakeTickDispatcherRig(4)
	d.FaultPolicy = FaultKill

	block := make(chan struct{})
	tcb, err := s.TaskCreate("stuck", func(any) { <-block }, nil, 5)
	if err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}
	d.HandleFault(tcb)
	if tcb.State() != StateDead {
		t.Fatalf("State after HandleFault with FaultKill = %v, want Dead", tcb.State())
	}
	close(block)
}

func TestDispatcherRegisterPeripheralRunsHandlerUnderGuard(t *testing.T) {
	_, _, d, _ := newFakeTickDispatcherRig(4)

	var called int64
	d.RegisterPeripheral(1, func() {
		atomic.AddInt64(&called, 1)
	})
	d.DispatchPeripheral(1)
	d.DispatchPeripheral(2) // unregistered id: no-op, must not panic

	if atomic.LoadInt64(&called) != 1 {
		t.Fatalf("called = %d, want 1", called)
	}
}
