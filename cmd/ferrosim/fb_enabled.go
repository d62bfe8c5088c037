// SPDX-License-Identifier: GPL-3.0-or-later

//go:build ferro_framebuffer

package main

import (
	"fmt"

	"github.com/voltarc/ferrokernel/fbdemo"
)

// fbAdapter adapts a *fbdemo.Display to the tag-independent FrameSink
// interface every build configuration can reference.
type fbAdapter struct{ d *fbdemo.Display }

func (a fbAdapter) WriteFrame(pix []byte, format FrameFormat) {
	fbFormat := fbdemo.FormatRGBA8888
	if format == FrameIndexed8 {
		fbFormat = fbdemo.FormatIndexed8
	}
	a.d.WriteFrame(pix, fbFormat)
}

// startFramebuffer opens an ebiten-backed window and returns a sink plus
// a closer. Only compiled with -tags ferro_framebuffer; see
// fb_disabled.go for the no-op sibling built otherwise.
func startFramebuffer(width, height int) (FrameSink, func()) {
	d := fbdemo.NewDisplay(width, height, nil)
	go func() {
		if err := d.Run("ferrokernel framebuffer"); err != nil {
			fmt.Println(err)
		}
	}()
	return fbAdapter{d}, d.Close
}
