// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package proctest provides a fake proc.Runner. Commands are looked up in a
// map keyed by their argument vector; each entry either replays a stored
// result or is handed to a real runner, and run counts are recorded either
// way.
package proctest

import (
	"fmt"
	"sync"

	"github.com/akeley98/DementedIGPU/pkg/log"
	"github.com/akeley98/DementedIGPU/pkg/proc"
)

// represents a command in CmdMap
type Key string

// generates key for given command
func CmdKey(args ...string) Key {
	k := ""
	for _, arg := range args {
		k += fmt.Sprintf("%s|", arg)
	}
	return Key(k)
}

// execution result
type Result struct {
	Stdout string
	Code   int
	Err    error
}

// data for one command in a CmdMap
type Entry struct {
	Result   Result //if Passthrough is set, this is updated with result on each run
	RunCount int    //number of times the command has been invoked
	// Called before the result is returned, e.g. to simulate a file being
	// modified by the command.
	Effect func(args []string)
	// Run for real through Fake.Real instead of replaying Result.
	Passthrough bool
}

// map of known commands
type CmdMap map[Key]*Entry

// Fake implements proc.Runner.
type Fake struct {
	Cmds CmdMap
	// Returned for commands missing from Cmds. Defaults to exit code 127, as a
	// shell reports for a command that does not exist.
	Unknown *Result
	// Used for Passthrough entries; a proc.Local if nil.
	Real proc.Runner

	mu    sync.Mutex
	calls [][]string
}

var _ proc.Runner = (*Fake)(nil)

func New() *Fake { return &Fake{Cmds: make(CmdMap)} }

// On registers a replayed result for args and returns its entry.
func (f *Fake) On(res Result, args ...string) *Entry {
	e := &Entry{Result: res}
	f.Cmds[CmdKey(args...)] = e
	return e
}

// Count returns how many times args was run.
func (f *Fake) Count(args ...string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.Cmds[CmdKey(args...)]
	if !ok {
		n := 0
		key := CmdKey(args...)
		for _, c := range f.calls {
			if CmdKey(c...) == key {
				n++
			}
		}
		return n
	}
	return e.RunCount
}

// Calls returns every command run, in order.
func (f *Fake) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

func (f *Fake) lookup(args []string) (*Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), args...))
	e, ok := f.Cmds[CmdKey(args...)]
	if ok {
		e.RunCount++
	}
	return e, ok
}

func (f *Fake) real() proc.Runner {
	if f.Real != nil {
		return f.Real
	}
	return &proc.Local{}
}

func (f *Fake) unknown() Result {
	if f.Unknown != nil {
		return *f.Unknown
	}
	return Result{Code: 127}
}

func (f *Fake) Run(args ...string) (proc.Result, error) {
	log.Logf("Running %v...", args)
	e, ok := f.lookup(args)
	if !ok {
		u := f.unknown()
		return proc.Result{Stdout: []byte(u.Stdout), Code: u.Code}, u.Err
	}
	if e.Passthrough {
		res, err := f.real().Run(args...)
		e.Result = Result{Stdout: string(res.Stdout), Code: res.Code, Err: err}
	}
	if e.Effect != nil {
		e.Effect(args)
	}
	return proc.Result{Stdout: []byte(e.Result.Stdout), Code: e.Result.Code}, e.Result.Err
}

func (f *Fake) RunAttached(args ...string) (int, error) {
	log.Logf("Running %v attached...", args)
	e, ok := f.lookup(args)
	if !ok {
		u := f.unknown()
		return u.Code, u.Err
	}
	if e.Passthrough {
		code, err := f.real().RunAttached(args...)
		e.Result = Result{Code: code, Err: err}
	}
	if e.Effect != nil {
		e.Effect(args)
	}
	return e.Result.Code, e.Result.Err
}
