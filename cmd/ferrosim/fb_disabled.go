// SPDX-License-Identifier: GPL-3.0-or-later

//go:build !ferro_framebuffer

package main

type discardSink struct{}

func (discardSink) WriteFrame(_ []byte, _ FrameFormat) {}

// startFramebuffer is the no-op stub built when ferrosim is compiled
// without -tags ferro_framebuffer: the fbdemo package (and ebiten) isn't
// even compiled into this binary in that configuration.
func startFramebuffer(_, _ int) (FrameSink, func()) {
	return discardSink{}, func() {}
}
