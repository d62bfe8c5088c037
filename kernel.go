// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

import "fmt"

// Config bundles the sizing knobs a Kernel is built from (§9). Zero values
// fall back to the spec's defaults.
type Config struct {
	TaskSlots   int    // N, default DefaultTaskSlots
	PoolBlock   uint32 // B, pool block size in bytes
	PoolBlocks  uint32 // K, pool block count
	HeapSize    uint32 // heap region size in bytes
	TimerSlots  int    // T, default DefaultTimerSlots
	TickHz      int    // R, default DefaultTickHz
	FaultPolicy FaultPolicy
}

// Kernel is the fully wired system: platform guard, pool, heap, scheduler,
// dispatcher, and timer registry, brought up in the order §9 mandates.
// Building one is the Go-native equivalent of the spec's boot sequence —
// there is no separate "startup assembly" file because Go has no bare
// linker script step to model; NewKernel is that step.
type Kernel struct {
	Pool       *Pool
	Heap       *Heap
	Scheduler  *Scheduler
	Timers     *TimerRegistry
	Dispatcher *Dispatcher

	cfg Config
}

// NewKernel brings the platform online and constructs, in order: the
// interrupt guard (InitPlatform), the block pool, the heap, the scheduler
// (which starts the idle task), the timer registry, and finally the
// dispatcher that ties scheduler and timers to a tick source (§9). The
// filesystem is deliberately not part of this sequence: it is mounted
// separately over a caller-supplied FlashDevice, matching §4.9's own
// "Mount is explicit, not automatic at boot" rule.
func NewKernel(cfg Config) *Kernel {
	if cfg.TaskSlots <= 0 {
		cfg.TaskSlots = DefaultTaskSlots
	}
	if cfg.TimerSlots <= 0 {
		cfg.TimerSlots = DefaultTimerSlots
	}
	if cfg.TickHz <= 0 {
		cfg.TickHz = DefaultTickHz
	}
	if cfg.PoolBlock == 0 {
		cfg.PoolBlock = 64
	}
	if cfg.PoolBlocks == 0 {
		cfg.PoolBlocks = 64
	}
	if cfg.HeapSize == 0 {
		cfg.HeapSize = 64 * 1024
	}

	InitPlatform()

	k := &Kernel{cfg: cfg}
	k.Pool = NewPool(cfg.PoolBlock, cfg.PoolBlocks)
	k.Heap = NewHeap(cfg.HeapSize)
	k.Scheduler = NewScheduler(cfg.TaskSlots)
	k.Timers = NewTimerRegistry(k.Scheduler, cfg.TimerSlots)
	k.Dispatcher = NewDispatcher(k.Scheduler, k.Timers)
	k.Dispatcher.FaultPolicy = cfg.FaultPolicy
	return k
}

// TaskCreate is a thin pass-through to the scheduler, kept on Kernel so
// callers assembling a scenario (§8) don't need to reach past it into
// k.Scheduler for the common case.
func (k *Kernel) TaskCreate(name string, entry TaskFunc, arg any, priority uint8) (*TCB, error) {
	return k.Scheduler.TaskCreate(name, entry, arg, priority)
}

// Run wires ts as the live tick source and blocks forever running the
// scheduler, matching §4.4's "start() never returns". Callers that need
// to keep doing host-side work (the cmd/ferrosim harness) should call Run
// in its own goroutine.
func (k *Kernel) Run(ts TickSource) {
	k.Dispatcher.Run(ts)
	k.Scheduler.Start()
}

// String reports a one-line summary of kernel sizing, for diagnostics.
func (k *Kernel) String() string {
	return fmt.Sprintf("ferrokernel(tasks=%d pool=%dx%d heap=%d timers=%d tick=%dHz)",
		k.cfg.TaskSlots, k.cfg.PoolBlocks, k.cfg.PoolBlock, k.cfg.HeapSize, k.cfg.TimerSlots, k.cfg.TickHz)
}
