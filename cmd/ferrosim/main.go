// SPDX-License-Identifier: GPL-3.0-or-later

// Command ferrosim is the host-side simulator harness for ferrokernel: a
// runnable program that boots a Kernel, mounts a filesystem over an
// in-memory flash image (or a file-backed one), and drives one of the
// end-to-end scenarios from §8. It is the Go-native stand-in for the
// bare-metal boot/startup trampoline the spec puts out of scope (§1) —
// the thing that actually calls NewKernel and Run.
//
// Modeled on the teacher's main.go: a bare os.Args/flag-driven entry
// point with a boilerplate banner, no cobra/viper config framework,
// supervising the scenario goroutine and the run-duration timeout with
// golang.org/x/sync/errgroup rather than ad-hoc sync.WaitGroup plumbing.
// The kernel itself (and with it the tick source) runs on a separate
// goroutine outside the group.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	ferrokernel "github.com/voltarc/ferrokernel"
	"github.com/voltarc/ferrokernel/fs"
)

func banner() {
	fmt.Println("ferrokernel simulator")
	fmt.Println("a software model of a bare-metal preemptive multitasking kernel")
}

func main() {
	var (
		tickHz    = flag.Int("tick-hz", ferrokernel.DefaultTickHz, "scheduler tick rate in Hz (>= 10)")
		flashPath = flag.String("flash", "", "path to a flash image file (default: in-memory, reformatted each run)")
		scenario  = flag.String("scenario", "heartbeat", "scenario to run: heartbeat, producer-consumer, priority-preemption, filesystem, timer")
		duration  = flag.Duration("duration", 10*time.Second, "how long to let the scenario run before reporting and exiting")
		fbOn      = flag.Bool("framebuffer", false, "open the optional framebuffer window (requires building with -tags ferro_framebuffer)")
		script    = flag.String("script", "", "optional Lua snippet to evaluate against the running kernel (requires -tags ferro_interp)")
	)
	flag.Parse()
	banner()

	dev, err := openFlash(*flashPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ferrosim: %v\n", err)
		os.Exit(1)
	}

	k := ferrokernel.NewKernel(ferrokernel.Config{TickHz: *tickHz})
	volume := fs.New(dev)
	if err := volume.Mount(); err != nil {
		if err := volume.Format(); err != nil {
			fmt.Fprintf(os.Stderr, "ferrosim: format failed: %v\n", err)
			os.Exit(1)
		}
	}

	if *fbOn {
		sink, closeFB := startFramebuffer(64, 64)
		defer closeFB()
		startDisplayTask(k, sink, *tickHz)
	}
	if *script != "" {
		if err := runScript(k, volume, *tickHz, *script); err != nil {
			fmt.Fprintf(os.Stderr, "ferrosim: %v\n", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ts := ferrokernel.NewHostTicker(*tickHz)

	// k.Run's scheduler loop never returns (§4.4): it runs for the process
	// lifetime on its own goroutine, outside the errgroup below, which only
	// tracks the work that's actually expected to finish.
	go k.Run(ts)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fn, ok := scenarios[*scenario]
		if !ok {
			return fmt.Errorf("ferrosim: unknown scenario %q", *scenario)
		}
		result := fn(k, volume)
		fmt.Println(result)
		return nil
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-time.After(*duration):
		}
		ts.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "ferrosim: %v\n", err)
		os.Exit(1)
	}
}

// startDisplayTask creates a ferrokernel task that paints a slowly
// scrolling RGBA8888 bar into sink once per second, so -framebuffer shows
// a running simulation rather than a static window.
func startDisplayTask(k *ferrokernel.Kernel, sink FrameSink, tickHz int) {
	const w, h = 64, 64
	k.TaskCreate("display", func(_ any) {
		frame := make([]byte, w*h*4)
		for col := 0; ; col = (col + 1) % w {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					i := (y*w + x) * 4
					if x == col {
						frame[i], frame[i+1], frame[i+2], frame[i+3] = 0x20, 0xc0, 0xff, 0xff
					} else {
						frame[i], frame[i+1], frame[i+2], frame[i+3] = 0, 0, 0, 0xff
					}
				}
			}
			sink.WriteFrame(frame, FrameRGBA8888)
			k.Scheduler.Sleep(uint32(tickHz))
		}
	}, nil, 1)
}

func openFlash(path string) (fs.FlashDevice, error) {
	if path == "" {
		return fs.NewMemFlash(fs.DefaultSectorSize, 512), nil
	}
	return newFileFlash(path, fs.DefaultSectorSize, 512)
}
