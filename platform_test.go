// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

import (
	"sync"
	"testing"
)

func TestGuardExcludesConcurrentCriticalSections(t *testing.T) {
	InitPlatform()
	var counter int
	var wg sync.WaitGroup
	const n = 200

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := AcquireGuard()
			counter++
			g.Release()
		}()
	}
	wg.Wait()

	if counter != n {
		t.Fatalf("counter = %d, want %d (guard did not serialize increments)", counter, n)
	}
}

func TestGuardNestingReleasesOnlyAtDepthZero(t *testing.T) {
	g := AcquireGuard()
	inner := g.Nested()
	inner.Release()

	released := make(chan struct{})
	acquired := make(chan Guard, 1)
	go func() {
		acquired <- AcquireGuard()
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("second acquisition succeeded while outer guard still held")
	default:
	}

	g.Release()
	<-released
	(<-acquired).Release()
}
