// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

import (
	"testing"
	"time"
)

func TestSemaphoreTryWaitOnEmpty(t *testing.T) {
	s := NewScheduler(4)
	go s.Start()
	sem := NewSemaphore(s, 0)
	if err := sem.TryWait(); err != ErrWouldBlock {
		t.Fatalf("TryWait on empty sem: got %v, want ErrWouldBlock", err)
	}
}

func TestSemaphorePostBeforeWaitIncrementsCount(t *testing.T) {
	s := NewScheduler(4)
	go s.Start()
	sem := NewSemaphore(s, 0)
	sem.Post()
	if sem.Count() != 1 {
		t.Fatalf("Count = %d, want 1", sem.Count())
	}
	if err := sem.TryWait(); err != nil {
		t.Fatalf("TryWait after Post: %v", err)
	}
}

func TestSemaphoreWaitThenPostHandsOffFIFO(t *testing.T) {
	s := NewScheduler(4)
	go s.Start()
	sem := NewSemaphore(s, 0)

	order := make(chan string, 2)
	firstReady := make(chan struct{})
	secondReady := make(chan struct{})

	taskA, err := s.TaskCreate("A", func(any) {
		close(firstReady)
		sem.Wait()
		order <- "A"
	}, nil, 5)
	if err != nil {
		t.Fatalf("TaskCreate A: %v", err)
	}
	_ = taskA

	taskB, err := s.TaskCreate("B", func(any) {
		<-firstReady
		close(secondReady)
		sem.Wait()
		order <- "B"
	}, nil, 5)
	if err != nil {
		t.Fatalf("TaskCreate B: %v", err)
	}
	_ = taskB

	<-secondReady
	// Give both tasks a chance to reach Wait and enqueue.
	for i := 0; i < 200; i++ {
		g := AcquireGuard()
		n := len(sem.waitQueue)
		g.Release()
		if n == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	sem.Post()
	sem.Post()

	first := <-order
	second := <-order
	if first != "A" || second != "B" {
		t.Fatalf("wakeup order = %s, %s; want A, B (FIFO)", first, second)
	}
}
