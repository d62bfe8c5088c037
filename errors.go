// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

import "errors"

// Sentinel errors forming the error taxonomy visible at the kernel's
// external boundary. Callers should compare against these with errors.Is;
// wrapping call sites add context with fmt.Errorf's %w verb.
var (
	ErrNotMounted  = errors.New("ferrokernel: filesystem not mounted")
	ErrNoSlot      = errors.New("ferrokernel: no free slot")
	ErrNoSpace     = errors.New("ferrokernel: no space available")
	ErrExists      = errors.New("ferrokernel: name already exists")
	ErrNotFound    = errors.New("ferrokernel: not found")
	ErrWouldNotFit = errors.New("ferrokernel: would not fit in current allocation")
	ErrWouldBlock  = errors.New("ferrokernel: operation would block")
	ErrQueueFull   = errors.New("ferrokernel: queue full")
	ErrQueueEmpty  = errors.New("ferrokernel: queue empty")
	ErrOutOfMemory = errors.New("ferrokernel: out of memory")
	ErrNoBlock     = errors.New("ferrokernel: pool exhausted")
	ErrTimeout     = errors.New("ferrokernel: timed out")
	ErrInvalid     = errors.New("ferrokernel: invalid argument")
)
