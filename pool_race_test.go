// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

import (
	"sync"
	"testing"
)

// TestPoolConcurrentAllocFree exercises Pool under concurrent access; run
// with -race, the same discipline audio_chip_race_test.go applies to the
// teacher's shared audio state.
func TestPoolConcurrentAllocFree(t *testing.T) {
	p := NewPool(32, 64)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b, err := p.Alloc()
				if err != nil {
					continue
				}
				b[0] = 1
				_ = p.Free(b)
			}
		}()
	}
	wg.Wait()
	if p.FreeCount()+p.UsedCount() != 64 {
		t.Fatalf("FreeCount+UsedCount = %d, want 64", p.FreeCount()+p.UsedCount())
	}
}
