// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestNewKernelAppliesConfigDefaults(t *testing.T) {
	k := NewKernel(Config{})
	if len(k.Scheduler.Tasks()) != DefaultTaskSlots {
		t.Fatalf("task slots = %d, want %d", len(k.Scheduler.Tasks()), DefaultTaskSlots)
	}
	if k.Pool == nil || k.Heap == nil || k.Timers == nil || k.Dispatcher == nil {
		t.Fatal("NewKernel left a subsystem nil")
	}
	if k.Dispatcher.FaultPolicy != FaultResume {
		t.Fatalf("default FaultPolicy = %v, want FaultResume", k.Dispatcher.FaultPolicy)
	}
}

func TestNewKernelHonorsExplicitConfig(t *testing.T) {
	k := NewKernel(Config{TaskSlots: 3, TimerSlots: 2, FaultPolicy: FaultKill})
	if len(k.Scheduler.Tasks()) != 3 {
		t.Fatalf("task slots = %d, want 3", len(k.Scheduler.Tasks()))
	}
	if k.Dispatcher.FaultPolicy != FaultKill {
		t.Fatalf("FaultPolicy = %v, want FaultKill", k.Dispatcher.FaultPolicy)
	}
}

// TestKernelProducerConsumerScenario is §8 scenario 2 end-to-end: a
// capacity-4 queue of u32 messages, producer sends 0..7, consumer sums
// them, and the pending count never exceeds capacity.
func TestKernelProducerConsumerScenario(t *testing.T) {
	k := NewKernel(Config{TaskSlots: 4})
	go k.Scheduler.Start()
	q := NewMessageQueue(k.Scheduler, 4, 4)

	var sum int64
	var maxPending int32
	done := make(chan struct{})

	if _, err := k.TaskCreate("producer", func(any) {
		for i := uint32(0); i < 8; i++ {
			buf := []byte{byte(i), byte(i >> 8), byte(i >> 16), byte(i >> 24)}
			if c := q.Count(); c > maxPending {
				maxPending = c
			}
			if err := q.Send(buf); err != nil {
				t.Errorf("Send: %v", err)
				return
			}
		}
	}, nil, 2); err != nil {
		t.Fatalf("TaskCreate producer: %v", err)
	}

	if _, err := k.TaskCreate("consumer", func(any) {
		buf := make([]byte, 4)
		for i := 0; i < 8; i++ {
			if err := q.Recv(buf); err != nil {
				t.Errorf("Recv: %v", err)
				return
			}
			v := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
			atomic.AddInt64(&sum, int64(v))
		}
		close(done)
	}, nil, 2); err != nil {
		t.Fatalf("TaskCreate consumer: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer/consumer scenario did not complete")
	}
	if sum != 28 {
		t.Fatalf("sum = %d, want 28", sum)
	}
	if maxPending > 4 {
		t.Fatalf("observed pending count %d exceeds capacity 4", maxPending)
	}
}

// TestKernelPriorityPreemptionScenario is §8 scenario 3: T_hi (priority
// 3) blocks on a semaphore; T_lo (priority 1) runs, posts it, and
// relinquishes. T_hi must run to completion before T_lo resumes.
func TestKernelPriorityPreemptionScenario(t *testing.T) {
	k := NewKernel(Config{TaskSlots: 4})
	go k.Scheduler.Start()
	sem := NewSemaphore(k.Scheduler, 0)

	order := make(chan string, 4)

	hi, err := k.TaskCreate("hi", func(any) {
		order <- "hi-start"
		sem.Wait()
		order <- "hi-done"
	}, nil, 3)
	if err != nil {
		t.Fatalf("TaskCreate hi: %v", err)
	}

	lo, err := k.TaskCreate("lo", func(any) {
		order <- "lo-run"
		sem.Post()
		k.Scheduler.Yield()
		order <- "lo-after-post"
	}, nil, 1)
	if err != nil {
		t.Fatalf("TaskCreate lo: %v", err)
	}

	hi.Wait()
	lo.Wait()

	want := []string{"hi-start", "lo-run", "hi-done", "lo-after-post"}
	for _, w := range want {
		select {
		case got := <-order:
			if got != w {
				t.Fatalf("order got %q, want %q", got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", w)
		}
	}
}

// TestKernelHeartbeatScenario is a compressed version of §8 scenario 1:
// rather than waiting 10 real seconds at 100 Hz, it drives the
// dispatcher manually over a fake tick source so the test is fast and
// deterministic while exercising the exact same Sleep/wake path.
func TestKernelHeartbeatScenario(t *testing.T) {
	k := NewKernel(Config{TaskSlots: 4})
	ts := &fakeTickSource{}
	go k.Run(ts)
	time.Sleep(time.Millisecond) // let Run wire the dispatcher before firing

	var counter int64
	if _, err := k.TaskCreate("heartbeat", func(any) {
		for i := 0; i < 5; i++ {
			atomic.AddInt64(&counter, 1)
			k.Scheduler.Sleep(2)
		}
	}, nil, 1); err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}

	for i := 0; i < 20; i++ {
		ts.fire()
		time.Sleep(time.Millisecond)
	}

	if c := atomic.LoadInt64(&counter); c < 5 {
		t.Fatalf("counter = %d, want >= 5 after 20 ticks at period 2", c)
	}
}

func TestKernelStringReportsSizing(t *testing.T) {
	k := NewKernel(Config{TaskSlots: 4, PoolBlock: 32, PoolBlocks: 8, HeapSize: 4096, TimerSlots: 4, TickHz: 50})
	s := k.String()
	if s == "" {
		t.Fatal("String() returned empty")
	}
}
