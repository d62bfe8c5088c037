// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	ferrokernel "github.com/voltarc/ferrokernel"
	"github.com/voltarc/ferrokernel/fs"
)

// scenarioFunc runs one of §8's concrete end-to-end scenarios against a
// running kernel and mounted volume, returning a one-line human-readable
// result. Each mirrors the exact sequence the spec's scenario narrative
// describes; none of them reach into scheduler internals — they only use
// the same TaskCreate/Sleep/Semaphore/MessageQueue/fs surface a real task
// would.
type scenarioFunc func(k *ferrokernel.Kernel, volume *fs.FS) string

var scenarios = map[string]scenarioFunc{
	"heartbeat":           heartbeatScenario,
	"producer-consumer":   producerConsumerScenario,
	"priority-preemption": priorityPreemptionScenario,
	"filesystem":          filesystemScenario,
	"timer":               timerScenario,
}

// heartbeatScenario is §8 scenario 1: a task toggles a counter and sleeps
// 200 ticks per iteration; at 100 Hz that's one toggle every 2 seconds,
// so 10 real seconds should land on counter = 5 (+/- 1).
func heartbeatScenario(k *ferrokernel.Kernel, _ *fs.FS) string {
	var counter int64
	_, err := k.TaskCreate("heartbeat", func(_ any) {
		for {
			atomic.AddInt64(&counter, 1)
			k.Scheduler.Sleep(200)
		}
	}, nil, 1)
	if err != nil {
		return fmt.Sprintf("heartbeat: task_create failed: %v", err)
	}

	time.Sleep(10 * time.Second)
	return fmt.Sprintf("heartbeat: counter=%d (expect 5 +/- 1)", atomic.LoadInt64(&counter))
}

// producerConsumerScenario is §8 scenario 2: capacity-4 queue of u32
// messages. Producer sends 0..7, consumer receives and sums; at no point
// does Count() exceed capacity.
func producerConsumerScenario(k *ferrokernel.Kernel, _ *fs.FS) string {
	q := ferrokernel.NewMessageQueue(k.Scheduler, 4, 4)
	var sum int64
	var received int64
	maxSeen := int32(0)
	done := make(chan struct{})

	k.TaskCreate("producer", func(_ any) {
		for i := uint32(0); i < 8; i++ {
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], i)
			if c := q.Count(); c > maxSeen {
				maxSeen = c
			}
			_ = q.Send(buf[:])
		}
	}, nil, 2)

	k.TaskCreate("consumer", func(_ any) {
		var buf [4]byte
		for i := 0; i < 8; i++ {
			_ = q.Recv(buf[:])
			sum += int64(binary.LittleEndian.Uint32(buf[:]))
			atomic.AddInt64(&received, 1)
		}
		close(done)
	}, nil, 2)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		return "producer-consumer: timed out"
	}
	return fmt.Sprintf("producer-consumer: sum=%d received=%d max_pending=%d (expect sum=28)", sum, received, maxSeen)
}

// priorityPreemptionScenario is §8 scenario 3: T_hi (priority 3) blocks on
// a semaphore; T_lo (priority 1) runs, posts it, and yields. The expected
// Running-transition sequence is idle -> T_lo -> T_hi -> T_lo -> idle,
// with T_hi running to completion before T_lo resumes.
func priorityPreemptionScenario(k *ferrokernel.Kernel, _ *fs.FS) string {
	sem := ferrokernel.NewSemaphore(k.Scheduler, 0)
	var transitions []string
	record := func(s string) { transitions = append(transitions, s) }

	hi, _ := k.TaskCreate("hi", func(_ any) {
		record("hi:start")
		sem.Wait()
		record("hi:resumed")
		record("hi:done")
	}, nil, 3)

	lo, _ := k.TaskCreate("lo", func(_ any) {
		record("lo:running")
		sem.Post()
		k.Scheduler.Yield()
		record("lo:posted")
	}, nil, 1)

	hi.Wait()
	lo.Wait()
	return fmt.Sprintf("priority-preemption: transitions=%v", transitions)
}

// filesystemScenario is §8 scenario 4: format, create, stat, read,
// rename, read-again, delete, stat-fails.
func filesystemScenario(_ *ferrokernel.Kernel, volume *fs.FS) string {
	if err := volume.Format(); err != nil {
		return fmt.Sprintf("filesystem: format failed: %v", err)
	}
	payload := []byte("Goodbye!")
	if err := volume.Create("hello.txt", uint32(len(payload))); err != nil {
		return fmt.Sprintf("filesystem: create failed: %v", err)
	}
	if err := volume.Write("hello.txt", payload); err != nil {
		return fmt.Sprintf("filesystem: write failed: %v", err)
	}
	entry, err := volume.Stat("hello.txt")
	if err != nil || entry.LengthBytes != uint32(len(payload)) {
		return fmt.Sprintf("filesystem: stat mismatch: %v %d", err, entry.LengthBytes)
	}
	got, err := volume.Read("hello.txt")
	if err != nil || string(got) != string(payload) {
		return fmt.Sprintf("filesystem: read mismatch: %v %q", err, got)
	}
	if err := volume.Rename("hello.txt", "msg"); err != nil {
		return fmt.Sprintf("filesystem: rename failed: %v", err)
	}
	got2, err := volume.Read("msg")
	if err != nil || string(got2) != string(payload) {
		return fmt.Sprintf("filesystem: read-after-rename mismatch: %v %q", err, got2)
	}
	if err := volume.Delete("msg"); err != nil {
		return fmt.Sprintf("filesystem: delete failed: %v", err)
	}
	if _, err := volume.Stat("msg"); err == nil {
		return "filesystem: stat after delete unexpectedly succeeded"
	}
	return "filesystem: round-trip ok"
}

// timerScenario is §8 scenario 6: a periodic software timer with period
// 50 ticks; after 500 real ticks the counter should be in {9, 10, 11}.
func timerScenario(k *ferrokernel.Kernel, _ *fs.FS) string {
	var counter int64
	t := k.Timers.NewTimer(func(_ any) {
		atomic.AddInt64(&counter, 1)
	}, nil)
	if err := k.Timers.Start(t, 50, ferrokernel.TimerPeriodic); err != nil {
		return fmt.Sprintf("timer: start failed: %v", err)
	}

	time.Sleep(5 * time.Second)
	k.Timers.Stop(t)
	return fmt.Sprintf("timer: counter=%d (expect 9..11)", atomic.LoadInt64(&counter))
}
