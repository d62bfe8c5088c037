// SPDX-License-Identifier: GPL-3.0-or-later

//go:build ferro_interp

// Package interp implements the optional interpreter collaborator named
// in §1/§2: a tiny Lua-scriptable command evaluator that talks to a
// running kernel only through the same shell-facing seam a human typing
// at the serial console would use — message queues, filesystem reads and
// listings, sleep and log — never touching scheduler or TCB internals
// directly. Built only when ferrokernel is compiled with
// -tags ferro_interp.
//
// Grounded on the teacher's own embedding of github.com/yuin/gopher-lua
// as a scripting layer over its machine bus (go.mod lists gopher-lua
// alongside the rest of the teacher's peripheral stack); this package
// gives that dependency the home SPEC_FULL.md's domain-stack table
// assigns it.
package interp

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// KernelAPI is the narrow surface a script is allowed to touch — the
// shell-facing operations a CLI would expose, not the scheduler's
// internals. Implemented by a small adapter in the host harness
// (cmd/ferrosim), never by the kernel package itself.
type KernelAPI interface {
	FSRead(name string) ([]byte, error)
	FSList() []string
	MQSend(queue string, msg []byte) error
	Sleep(ticks uint32)
	Log(line string)
}

// Interp wraps one gopher-lua VM bound to a KernelAPI.
type Interp struct {
	L   *lua.LState
	api KernelAPI
}

// New creates an interpreter bound to api and registers the fk.* table
// of kernel-facing functions.
func New(api KernelAPI) *Interp {
	i := &Interp{L: lua.NewState(), api: api}
	i.registerKernelTable()
	return i
}

// Close releases the underlying Lua state.
func (i *Interp) Close() {
	i.L.Close()
}

// Eval runs one chunk of Lua source, returning any runtime error
// wrapped with context the way the teacher wraps backend failures
// (audio_backend_alsa.go's fmt.Errorf("...: %s", err) pattern).
func (i *Interp) Eval(src string) error {
	if err := i.L.DoString(src); err != nil {
		return fmt.Errorf("interp: script error: %w", err)
	}
	return nil
}

func (i *Interp) registerKernelTable() {
	fk := i.L.NewTable()

	i.L.SetField(fk, "read", i.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		data, err := i.api.FSRead(name)
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LString(string(data)))
		return 1
	}))

	i.L.SetField(fk, "list", i.L.NewFunction(func(L *lua.LState) int {
		names := i.api.FSList()
		tbl := L.NewTable()
		for _, n := range names {
			tbl.Append(lua.LString(n))
		}
		L.Push(tbl)
		return 1
	}))

	i.L.SetField(fk, "send", i.L.NewFunction(func(L *lua.LState) int {
		queue := L.CheckString(1)
		msg := L.CheckString(2)
		if err := i.api.MQSend(queue, []byte(msg)); err != nil {
			L.Push(lua.LString(err.Error()))
			return 1
		}
		return 0
	}))

	i.L.SetField(fk, "sleep", i.L.NewFunction(func(L *lua.LState) int {
		ticks := L.CheckInt(1)
		i.api.Sleep(uint32(ticks))
		return 0
	}))

	i.L.SetField(fk, "log", i.L.NewFunction(func(L *lua.LState) int {
		i.api.Log(L.CheckString(1))
		return 0
	}))

	i.L.SetGlobal("fk", fk)
}
