// SPDX-License-Identifier: GPL-3.0-or-later

//go:build !ferro_interp

package main

import (
	"fmt"

	ferrokernel "github.com/voltarc/ferrokernel"
	"github.com/voltarc/ferrokernel/fs"
)

// runScript is the no-op stub built when ferrosim is compiled without
// -tags ferro_interp: gopher-lua isn't even compiled into this binary in
// that configuration.
func runScript(_ *ferrokernel.Kernel, _ *fs.FS, _ int, _ string) error {
	return fmt.Errorf("ferrosim: built without -tags ferro_interp, scripting unavailable")
}
