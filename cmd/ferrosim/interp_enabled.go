// SPDX-License-Identifier: GPL-3.0-or-later

//go:build ferro_interp

package main

import (
	"fmt"
	"time"

	ferrokernel "github.com/voltarc/ferrokernel"
	"github.com/voltarc/ferrokernel/fs"
	"github.com/voltarc/ferrokernel/interp"
)

// kernelAdapter exposes the shell-facing surface a script is allowed to
// touch, implementing interp.KernelAPI over a live Kernel + mounted
// volume — never the scheduler's internals. A script evaluates on the
// host goroutine running runScript, not on any TCB's goroutine, so Sleep
// is a plain wall-clock delay scaled by the kernel's tick rate rather
// than a call into Scheduler.Sleep — that call is only ever safe from a
// goroutine the scheduler itself is holding the baton for.
type kernelAdapter struct {
	k      *ferrokernel.Kernel
	volume *fs.FS
	tickHz int
}

func (a kernelAdapter) FSRead(name string) ([]byte, error) { return a.volume.Read(name) }

func (a kernelAdapter) FSList() []string { return a.volume.List() }

func (a kernelAdapter) MQSend(_ string, _ []byte) error {
	return fmt.Errorf("interp: named queue routing not configured in this harness")
}

func (a kernelAdapter) Sleep(ticks uint32) {
	time.Sleep(time.Duration(ticks) * time.Second / time.Duration(a.tickHz))
}

func (a kernelAdapter) Log(line string) { fmt.Println("[script]", line) }

// runScript evaluates a Lua snippet against a running kernel. Only
// compiled with -tags ferro_interp; see interp_disabled.go for the
// no-op sibling built otherwise.
func runScript(k *ferrokernel.Kernel, volume *fs.FS, tickHz int, src string) error {
	it := interp.New(kernelAdapter{k: k, volume: volume, tickHz: tickHz})
	defer it.Close()
	return it.Eval(src)
}
