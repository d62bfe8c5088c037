// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

import (
	"testing"
	"time"
)

func TestSchedulerTaskCreateExhaustsSlots(t *testing.T) {
	s := NewScheduler(2) // slot 0 is idle, leaving 1 free slot
	go s.Start()

	block := make(chan struct{})
	if _, err := s.TaskCreate("hog", func(any) { <-block }, nil, 1); err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}
	if _, err := s.TaskCreate("overflow", func(any) {}, nil, 1); err != ErrNoSlot {
		t.Fatalf("TaskCreate over capacity: got %v, want ErrNoSlot", err)
	}
	close(block)
}

func TestSchedulerPriorityPreemptsLowerPriority(t *testing.T) {
	s := NewScheduler(4)
	go s.Start()

	order := make(chan string, 2)
	highDone := make(chan struct{})
	lowStarted := make(chan struct{})
	highCreated := make(chan struct{})

	// low must actually be running (not merely Ready) before high is
	// created, otherwise high's priority wins the very first scheduling
	// decision and low never gets a turn — lowStarted pins that ordering
	// instead of leaving it to a race between two back-to-back TaskCreates.
	// highCreated holds low before its first Yield until high exists, so
	// low cannot finish all its Yields before high is Ready.
	low, err := s.TaskCreate("low", func(any) {
		order <- "low-start"
		close(lowStarted)
		<-highCreated
		for i := 0; i < 3; i++ {
			s.Yield()
		}
		order <- "low-end"
	}, nil, 1)
	if err != nil {
		t.Fatalf("TaskCreate low: %v", err)
	}
	_ = low

	select {
	case <-lowStarted:
	case <-time.After(time.Second):
		t.Fatal("low never started running")
	}

	if _, err := s.TaskCreate("high", func(any) {
		order <- "high"
		close(highDone)
	}, nil, 10); err != nil {
		t.Fatalf("TaskCreate high: %v", err)
	}
	close(highCreated)

	<-highDone
	first := <-order
	if first != "low-start" {
		t.Fatalf("first to run = %q, want low-start (low runs until its first Yield)", first)
	}
	second := <-order
	if second != "high" {
		t.Fatalf("second to run = %q, want high (preempts low at its Yield)", second)
	}
}

func TestSchedulerSleepWakesAfterTicks(t *testing.T) {
	s := NewScheduler(4)
	go s.Start()

	woke := make(chan uint32, 1)
	if _, err := s.TaskCreate("sleeper", func(any) {
		s.Sleep(5)
		woke <- s.TickCount()
	}, nil, 5); err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}

	// Drive ticks directly; real deployments do this from a Dispatcher
	// wired to a TickSource (isr_test.go, tick.go), but sched.go alone
	// only needs wakeSleepersLocked serviced from somewhere.
	for i := 0; i < 10; i++ {
		g := AcquireGuard()
		s.tickCount++
		s.wakeSleepersLocked()
		g.Release()
		time.Sleep(time.Millisecond)
	}

	select {
	case tick := <-woke:
		if tick < 5 {
			t.Fatalf("woke at tick %d, want >= 5", tick)
		}
	case <-time.After(time.Second):
		t.Fatal("sleeper never woke")
	}
}

func TestSchedulerRetiredTaskStaysDead(t *testing.T) {
	s := NewScheduler(4)
	go s.Start()

	tcb, err := s.TaskCreate("quick", func(any) {}, nil, 5)
	if err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}
	tcb.Wait()
	if tcb.State() != StateDead {
		t.Fatalf("State after return = %v, want Dead", tcb.State())
	}
}
