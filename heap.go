// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

import "encoding/binary"

const (
	heapWordSize   = 4
	heapHeaderSize = heapWordSize
	heapMinBlock   = heapHeaderSize + heapWordSize
)

// Heap is a first-fit, variable-size allocator over one contiguous byte
// region (§4.3). There is no separate free list: every block, used or
// free, tiles the region exactly, and a single word-sized header at the
// front of each block packs its total size (header + payload, word
// aligned) into the high bits and a used/free flag into the low bit —
// safe because alignment guarantees that bit is otherwise always zero.
// This mirrors machine_bus.go's treatment of its region as one
// addressable byte slice rather than a graph of Go structs.
type Heap struct {
	region []byte
}

// NewHeap builds a heap over a freshly allocated region of size bytes.
func NewHeap(size uint32) *Heap {
	h := &Heap{region: make([]byte, size)}
	h.init()
	return h
}

func (h *Heap) init() {
	g := AcquireGuard()
	defer g.Release()
	h.writeHeader(0, uint32(len(h.region)), false)
}

func heapAlignUp(n uint32) uint32 {
	return (n + heapWordSize - 1) &^ (heapWordSize - 1)
}

func (h *Heap) readHeader(off uint32) (size uint32, used bool) {
	raw := binary.LittleEndian.Uint32(h.region[off:])
	return raw &^ 1, raw&1 != 0
}

func (h *Heap) writeHeader(off, size uint32, used bool) {
	raw := size
	if used {
		raw |= 1
	}
	binary.LittleEndian.PutUint32(h.region[off:], raw)
}

// Alloc returns n usable bytes, or fails with ErrInvalid for n == 0 and
// ErrOutOfMemory if no block is large enough after forward coalescing.
func (h *Heap) Alloc(n uint32) ([]byte, error) {
	if n == 0 {
		return nil, ErrInvalid
	}
	need := heapAlignUp(n) + heapHeaderSize
	if need < heapMinBlock {
		need = heapMinBlock
	}

	g := AcquireGuard()
	defer g.Release()

	regionLen := uint32(len(h.region))
	for off := uint32(0); off < regionLen; {
		size, used := h.readHeader(off)
		if used {
			off += size
			continue
		}

		size = h.coalesceForward(off, size)

		if size >= need {
			remaining := size - need
			if remaining >= heapMinBlock {
				h.writeHeader(off, need, true)
				h.writeHeader(off+need, remaining, false)
				return h.region[off+heapHeaderSize : off+need], nil
			}
			h.writeHeader(off, size, true)
			return h.region[off+heapHeaderSize : off+size], nil
		}
		off += size
	}
	return nil, ErrOutOfMemory
}

// coalesceForward merges the free block at off (of the given size) with
// any immediately following free blocks, writes the merged header, and
// returns the merged size. Caller must hold the guard.
func (h *Heap) coalesceForward(off, size uint32) uint32 {
	regionLen := uint32(len(h.region))
	next := off + size
	for next < regionLen {
		nsize, nused := h.readHeader(next)
		if nused {
			break
		}
		size += nsize
		next += nsize
	}
	h.writeHeader(off, size, false)
	return size
}

// Free releases a block previously returned by Alloc, then forward-
// coalesces with any adjacent free neighbors. Backward neighbors are
// folded in lazily by the next scanning Alloc (§4.3) — the documented
// trade-off of an O(blocks) scan per allocation for never needing a
// separate free list or backward links.
func (h *Heap) Free(p []byte) error {
	if len(p) == 0 {
		return ErrInvalid
	}
	payloadOff := sliceOffset(h.region, &p[0], &h.region[0])
	if payloadOff < 0 || uint32(payloadOff) < heapHeaderSize {
		return ErrInvalid
	}
	headerOff := uint32(payloadOff) - heapHeaderSize

	g := AcquireGuard()
	defer g.Release()

	size, used := h.readHeader(headerOff)
	if !used {
		return ErrInvalid
	}
	h.writeHeader(headerOff, size, false)
	h.coalesceForward(headerOff, size)
	return nil
}

// FreeTotal returns the sum of all free blocks' total sizes (including
// headers), so FreeTotal+UsedTotal equals the region size. A linear
// scan, safe without a guard because each header word is read atomically
// with respect to the single-word write that mutates it (§4.3).
func (h *Heap) FreeTotal() uint32 {
	var total uint32
	h.walk(func(off, size uint32, used bool) {
		if !used {
			total += size
		}
	})
	return total
}

// UsedTotal returns the sum of all used blocks' total size (including
// headers).
func (h *Heap) UsedTotal() uint32 {
	var total uint32
	h.walk(func(off, size uint32, used bool) {
		if used {
			total += size
		}
	})
	return total
}

// LargestFree returns the size of the largest single free block.
func (h *Heap) LargestFree() uint32 {
	var largest uint32
	h.walk(func(off, size uint32, used bool) {
		if !used && size > largest {
			largest = size
		}
	})
	return largest
}

// FragmentCount returns the number of distinct free blocks currently in
// the region.
func (h *Heap) FragmentCount() int {
	var count int
	h.walk(func(off, size uint32, used bool) {
		if !used {
			count++
		}
	})
	return count
}

func (h *Heap) walk(fn func(off, size uint32, used bool)) {
	regionLen := uint32(len(h.region))
	for off := uint32(0); off < regionLen; {
		size, used := h.readHeader(off)
		fn(off, size, used)
		off += size
	}
}
