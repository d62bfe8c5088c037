// SPDX-License-Identifier: GPL-3.0-or-later

package main

// FrameFormat mirrors fbdemo.PixelFormat without requiring every build
// configuration to import the (optionally built) fbdemo package — the
// same "compiles either way, one side does the real work" shape as the
// teacher's le_check.go / be_unsupported.go pair, generalized from an
// always-one-compiles gate to a feature-flag gate.
type FrameFormat int

const (
	FrameRGBA8888 FrameFormat = iota
	FrameIndexed8
)

// FrameSink is the interface startFramebuffer returns: real when built
// with -tags ferro_framebuffer (fb_enabled.go), a discarding stub
// otherwise (fb_disabled.go).
type FrameSink interface {
	WriteFrame(pix []byte, format FrameFormat)
}
