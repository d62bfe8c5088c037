// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

import "testing"

func newPoolTestRig(t *testing.T) *Pool {
	t.Helper()
	return NewPool(16, 8)
}

func TestPoolAllocExhaustion(t *testing.T) {
	p := newPoolTestRig(t)
	var blocks [][]byte
	for i := 0; i < 8; i++ {
		b, err := p.Alloc()
		if err != nil {
			t.Fatalf("Alloc %d: %v", i, err)
		}
		blocks = append(blocks, b)
	}
	if _, err := p.Alloc(); err != ErrNoBlock {
		t.Fatalf("Alloc on exhausted pool: got %v, want ErrNoBlock", err)
	}
	if p.FreeCount() != 0 || p.UsedCount() != 8 {
		t.Fatalf("FreeCount/UsedCount = %d/%d, want 0/8", p.FreeCount(), p.UsedCount())
	}
	_ = blocks
}

func TestPoolAllocIsZeroed(t *testing.T) {
	p := NewPool(16, 2)
	b, err := p.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	for i := range b {
		b[i] = 0xAA
	}
	if err := p.Free(b); err != nil {
		t.Fatalf("Free: %v", err)
	}
	b2, err := p.Alloc()
	if err != nil {
		t.Fatalf("second Alloc: %v", err)
	}
	for i, v := range b2 {
		if v != 0 {
			t.Fatalf("reused block not zeroed at byte %d: %#x", i, v)
		}
	}
}

func TestPoolFreeRejectsForeignPointer(t *testing.T) {
	p := NewPool(16, 2)
	foreign := make([]byte, 16)
	if err := p.Free(foreign); err != ErrInvalid {
		t.Fatalf("Free(foreign): got %v, want ErrInvalid", err)
	}
}

func TestPoolFreeListIsLIFO(t *testing.T) {
	p := NewPool(16, 4)
	a, _ := p.Alloc()
	b, _ := p.Alloc()
	if err := p.Free(a); err != nil {
		t.Fatalf("Free a: %v", err)
	}
	if err := p.Free(b); err != nil {
		t.Fatalf("Free b: %v", err)
	}
	// The free list is a stack: the most recently freed block (b) is
	// handed back first.
	c, err := p.Alloc()
	if err != nil {
		t.Fatalf("Alloc after frees: %v", err)
	}
	if &c[0] != &b[0] {
		t.Fatalf("Alloc did not return most recently freed block")
	}
}
