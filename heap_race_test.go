// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

import (
	"sync"
	"testing"
)

func TestHeapConcurrentAllocFree(t *testing.T) {
	h := NewHeap(64 * 1024)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				b, err := h.Alloc(uint32(16 + n))
				if err != nil {
					continue
				}
				b[0] = byte(n)
				_ = h.Free(b)
			}
		}(i)
	}
	wg.Wait()
}
