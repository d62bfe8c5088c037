// SPDX-License-Identifier: GPL-3.0-or-later

// Package hostserial stands in for the serial byte-source/sink seam
// (§4.10) when a ferrokernel simulation runs against a real terminal
// instead of an in-memory test double. It puts stdin in raw,
// non-blocking mode and exposes the two narrow interfaces the core
// consumes — ferrokernel.ByteSource and ferrokernel.ByteSink — without
// the kernel package ever knowing a terminal is on the other end.
//
// Modeled directly on the teacher's TerminalHost (terminal_host.go):
// same raw-mode-plus-non-blocking-read goroutine shape, same restore-on-
// Stop discipline.
package hostserial

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// Terminal reads raw stdin into an internal byte queue and writes bytes
// straight to stdout. It implements ferrokernel.ByteSource and
// ferrokernel.ByteSink.
type Terminal struct {
	fd           int
	oldTermState *term.State
	nonblockSet  bool

	mu     sync.Mutex
	inbuf  bytes.Buffer
	stopCh chan struct{}
	done   chan struct{}
	stop   sync.Once
}

// NewTerminal constructs a Terminal bound to the process's stdin/stdout.
func NewTerminal() *Terminal {
	return &Terminal{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start puts stdin into raw, non-blocking mode and begins pumping bytes
// into the internal queue on a dedicated goroutine. Call Stop to restore
// the terminal.
func (t *Terminal) Start() error {
	t.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(t.fd)
	if err != nil {
		close(t.done)
		return fmt.Errorf("hostserial: failed to set raw mode: %w", err)
	}
	t.oldTermState = oldState

	if err := syscall.SetNonblock(t.fd, true); err != nil {
		_ = term.Restore(t.fd, t.oldTermState)
		t.oldTermState = nil
		close(t.done)
		return fmt.Errorf("hostserial: failed to set nonblocking stdin: %w", err)
	}
	t.nonblockSet = true

	go func() {
		defer close(t.done)
		buf := make([]byte, 256)
		for {
			select {
			case <-t.stopCh:
				return
			default:
			}
			n, err := syscall.Read(t.fd, buf)
			if n > 0 {
				t.mu.Lock()
				t.inbuf.Write(buf[:n])
				t.mu.Unlock()
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
		}
	}()
	return nil
}

// Stop terminates the stdin-reading goroutine and restores the terminal
// to its prior (cooked, blocking) mode.
func (t *Terminal) Stop() {
	t.stop.Do(func() {
		close(t.stopCh)
	})
	<-t.done
	if t.nonblockSet {
		_ = syscall.SetNonblock(t.fd, false)
		t.nonblockSet = false
	}
	if t.oldTermState != nil {
		_ = term.Restore(t.fd, t.oldTermState)
		t.oldTermState = nil
	}
}

// TryReadByte implements ferrokernel.ByteSource: non-blocking, reports
// ok=false when nothing is pending.
func (t *Terminal) TryReadByte() (b byte, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inbuf.Len() == 0 {
		return 0, false
	}
	b, err := t.inbuf.ReadByte()
	return b, err == nil
}

// WriteByte implements ferrokernel.ByteSink by writing straight to
// stdout. os.Stdout.Write never blocks indefinitely for a terminal
// (§4.10's "may busy-wait for the hardware FIFO" has no real analogue on
// a host pipe), satisfying the seam's non-blocking contract.
func (t *Terminal) WriteByte(b byte) {
	_, _ = os.Stdout.Write([]byte{b})
}
