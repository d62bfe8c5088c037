// SPDX-License-Identifier: GPL-3.0-or-later

//go:build ferro_framebuffer

// Package fbdemo renders the optional framebuffer collaborator (§1, §2,
// §4.10's "named by the interfaces they expose") as an actual window,
// built only when ferrokernel is compiled with -tags ferro_framebuffer.
// The kernel core never imports this package or knows it exists; a task
// writes pixels through the narrow Sink interface below, exactly the way
// the spec says the core treats the framebuffer as an external
// collaborator it only names, not implements.
//
// Modeled on the teacher's EbitenOutput (video_backend_ebiten.go): same
// double-buffered frame plus ebiten.Game loop shape, generalized from a
// full video chip (palettes, sprites, texture blits) down to the one
// thing a microcontroller's framebuffer device does — accept raw pixel
// writes and present them.
package fbdemo

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/image/draw"
)

// PixelFormat enumerates the raw encodings a task may write into the
// framebuffer. Indexed8 mirrors the memory-mapped paletted framebuffers
// common on microcontrollers with no dedicated GPU.
type PixelFormat int

const (
	FormatRGBA8888 PixelFormat = iota
	FormatIndexed8
)

// Sink is the seam a ferrokernel task writes frames through. It has no
// dependency on ebiten or any other rendering library — a task (or a
// test) can satisfy it with a bare in-memory double, the same narrow-
// interface-plus-real-implementation shape machine_bus.go uses for Bus32.
type Sink interface {
	// WriteFrame copies pix (len == width*height*BytesPerPixel(format))
	// into the display's current frame. Safe to call from any task
	// goroutine; the display itself owns synchronization.
	WriteFrame(pix []byte, format PixelFormat)
}

// BytesPerPixel reports how many bytes one pixel occupies in format.
func BytesPerPixel(f PixelFormat) int {
	if f == FormatIndexed8 {
		return 1
	}
	return 4
}

// Display is the ebiten-backed Sink implementation: an actual window a
// developer can watch a running simulation draw into.
type Display struct {
	width, height int
	palette       color.Palette

	mu     sync.RWMutex
	rgba   []byte
	closed bool
}

// NewDisplay constructs a width x height window. palette is consulted
// only for frames written with FormatIndexed8; pass nil to disable
// indexed frames (WriteFrame then ignores them).
func NewDisplay(width, height int, palette color.Palette) *Display {
	return &Display{
		width:   width,
		height:  height,
		palette: palette,
		rgba:    make([]byte, width*height*4),
	}
}

// Run opens the window and blocks until it is closed. Call it from its
// own goroutine — exactly as the teacher's EbitenOutput.Start does with
// ebiten.RunGame — since ebiten.RunGame owns the calling goroutine for
// the life of the window.
func (d *Display) Run(title string) error {
	ebiten.SetWindowSize(d.width*2, d.height*2)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizable(true)
	if err := ebiten.RunGame(d); err != nil {
		return fmt.Errorf("fbdemo: ebiten run failed: %w", err)
	}
	return nil
}

// Close marks the display as shutting down; the next Update tells ebiten
// to terminate.
func (d *Display) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// WriteFrame implements Sink. Indexed8 frames are expanded to RGBA via
// the configured palette using golang.org/x/image/draw's Draw (a same-size
// Src copy, no scaling), the same indexed-to-RGBA conversion role the teacher's video
// backends delegate to x/image for format conversion.
func (d *Display) WriteFrame(pix []byte, format PixelFormat) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch format {
	case FormatRGBA8888:
		if len(pix) != len(d.rgba) {
			return
		}
		copy(d.rgba, pix)
	case FormatIndexed8:
		if d.palette == nil || len(pix) != d.width*d.height {
			return
		}
		src := image.NewPaletted(image.Rect(0, 0, d.width, d.height), d.palette)
		copy(src.Pix, pix)
		dst := image.NewRGBA(image.Rect(0, 0, d.width, d.height))
		draw.Draw(dst, dst.Bounds(), src, image.Point{}, draw.Src)
		copy(d.rgba, dst.Pix)
	}
}

// Update implements ebiten.Game. It only checks for a requested close;
// all actual pixel data arrives out-of-band through WriteFrame.
func (d *Display) Update() error {
	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return ebiten.Termination
	}
	return nil
}

// Draw implements ebiten.Game, blitting the current RGBA frame.
func (d *Display) Draw(screen *ebiten.Image) {
	d.mu.RLock()
	img := ebiten.NewImageFromImage(&image.RGBA{
		Pix:    d.rgba,
		Stride: d.width * 4,
		Rect:   image.Rect(0, 0, d.width, d.height),
	})
	d.mu.RUnlock()
	screen.DrawImage(img, nil)
}

// Layout implements ebiten.Game.
func (d *Display) Layout(_, _ int) (int, int) {
	return d.width, d.height
}
