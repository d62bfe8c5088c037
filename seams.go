// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

// This file collects the interfaces the core consumes from collaborators
// it does not implement (§4.10, §1's "named by the interfaces they
// expose"): the serial driver, peripheral interrupt handlers, and the
// hardware tick source. The flash seam is fs.FlashDevice, in the fs
// package. The shape — a small interface plus a real and a test double
// implementation — is the one machine_bus.go uses for Bus32.

// ByteSink is the non-blocking write half of the serial seam. WriteByte
// may busy-wait for the hardware FIFO but never blocks indefinitely.
type ByteSink interface {
	WriteByte(b byte)
}

// ByteSource is the non-blocking read half of the serial seam.
// TryReadByte reports ok=false when no byte is pending rather than
// blocking.
type ByteSource interface {
	TryReadByte() (b byte, ok bool)
}

// PeripheralHandler services one peripheral interrupt. Handlers run with
// interrupts masked (§4.5) and must be short and non-blocking.
type PeripheralHandler func()

// TickSource is the hardware timer seam (§4.10): a periodic interrupt
// source, individually acknowledgeable, that the platform wires to the
// dispatcher's OnTick.
type TickSource interface {
	// Start begins delivering periodic ticks, invoking onTick for each.
	Start(onTick func())
	// Stop halts delivery.
	Stop()
}
