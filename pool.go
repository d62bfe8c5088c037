// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

import (
	"encoding/binary"
	"sync/atomic"
)

// Pool is a fixed-block allocator (§4.2): K blocks of size B wired into a
// singly linked free list at Init time, each free block storing its own
// "next" offset in its first word the way machine_bus.go treats its
// region as one contiguous, addressable byte slice rather than a slice of
// structs.
type Pool struct {
	region    []byte
	blockSize uint32
	blockCnt  uint32

	freeHead uint32 // offset into region, or sentinelNone
	free     int32  // atomically readable without a guard
	used     int32
}

const sentinelNone = ^uint32(0)

// NewPool builds a pool of blockCount blocks of blockSize bytes.
// blockSize must be at least 4 (room for the intrusive next-pointer).
func NewPool(blockSize, blockCount uint32) *Pool {
	if blockSize < 4 {
		blockSize = 4
	}
	p := &Pool{
		region:    make([]byte, blockSize*blockCount),
		blockSize: blockSize,
		blockCnt:  blockCount,
	}
	p.init()
	return p
}

func (p *Pool) init() {
	g := AcquireGuard()
	defer g.Release()

	p.freeHead = 0
	for i := uint32(0); i < p.blockCnt; i++ {
		off := i * p.blockSize
		var next uint32
		if i == p.blockCnt-1 {
			next = sentinelNone
		} else {
			next = off + p.blockSize
		}
		binary.LittleEndian.PutUint32(p.region[off:], next)
	}
	atomic.StoreInt32(&p.free, int32(p.blockCnt))
	atomic.StoreInt32(&p.used, 0)
}

// Alloc removes and zeroes a block from the free list in O(1), or fails
// with ErrNoBlock if the pool is exhausted.
func (p *Pool) Alloc() ([]byte, error) {
	g := AcquireGuard()
	defer g.Release()

	if p.freeHead == sentinelNone {
		return nil, ErrNoBlock
	}
	off := p.freeHead
	p.freeHead = binary.LittleEndian.Uint32(p.region[off:])

	block := p.region[off : off+p.blockSize]
	clear(block)

	atomic.AddInt32(&p.free, -1)
	atomic.AddInt32(&p.used, 1)
	return block, nil
}

// Free returns a block to the head of the free list in O(1). The pointer
// must have been returned by Alloc on this pool; out-of-range pointers are
// rejected with ErrInvalid rather than corrupting the free list.
func (p *Pool) Free(block []byte) error {
	off, ok := p.offsetOf(block)
	if !ok {
		return ErrInvalid
	}

	g := AcquireGuard()
	defer g.Release()

	binary.LittleEndian.PutUint32(p.region[off:], p.freeHead)
	p.freeHead = off

	atomic.AddInt32(&p.free, 1)
	atomic.AddInt32(&p.used, -1)
	return nil
}

func (p *Pool) offsetOf(block []byte) (uint32, bool) {
	if len(block) == 0 {
		return 0, false
	}
	base := &p.region[0]
	first := &block[0]
	// Compute the byte offset of block's backing array within region's.
	// Both slices share the same underlying array whenever block came
	// from Alloc on this pool.
	offset := sliceOffset(p.region, first, base)
	if offset < 0 {
		return 0, false
	}
	off := uint32(offset)
	if off%p.blockSize != 0 || off >= uint32(len(p.region)) {
		return 0, false
	}
	return off, true
}

// FreeCount returns the number of unallocated blocks. Readable without a
// guard: a momentarily stale pair with UsedCount is an accepted trade-off
// (§4.2).
func (p *Pool) FreeCount() int { return int(atomic.LoadInt32(&p.free)) }

// UsedCount returns the number of allocated blocks.
func (p *Pool) UsedCount() int { return int(atomic.LoadInt32(&p.used)) }

// BlockSize returns the fixed block size this pool was built with.
func (p *Pool) BlockSize() uint32 { return p.blockSize }
