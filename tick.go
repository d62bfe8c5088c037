// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

import "time"

// DefaultTickHz is the spec's default tick rate (§6); any R >= 10 Hz is
// permitted.
const DefaultTickHz = 100

// HostTicker is the default TickSource implementation: a real host timer
// standing in for the MCU's periodic hardware timer, the same role
// psg_clock_test.go's clock-driven periodic ticking plays for the
// teacher's sound chip.
type HostTicker struct {
	rateHz int
	ticker *time.Ticker
	stop   chan struct{}
}

// NewHostTicker creates a ticker delivering at rateHz (>= 10 per §6).
func NewHostTicker(rateHz int) *HostTicker {
	if rateHz < 10 {
		rateHz = DefaultTickHz
	}
	return &HostTicker{rateHz: rateHz}
}

// Start begins delivering ticks on a dedicated goroutine. onTick is
// invoked once per period; it must not block, since the ticker drops
// ticks rather than queuing them if onTick falls behind (time.Ticker's
// own backpressure).
func (h *HostTicker) Start(onTick func()) {
	h.ticker = time.NewTicker(time.Second / time.Duration(h.rateHz))
	h.stop = make(chan struct{})
	go func() {
		for {
			select {
			case <-h.ticker.C:
				onTick()
			case <-h.stop:
				return
			}
		}
	}()
}

// Stop halts tick delivery.
func (h *HostTicker) Stop() {
	if h.ticker != nil {
		h.ticker.Stop()
	}
	if h.stop != nil {
		close(h.stop)
	}
}
