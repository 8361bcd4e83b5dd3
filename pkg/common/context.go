// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package common holds state shared by every provisioning step.
package common

import (
	"os"
	fp "path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/akeley98/DementedIGPU/pkg/config"
	"github.com/akeley98/DementedIGPU/pkg/failure"
	"github.com/akeley98/DementedIGPU/pkg/log"
	"github.com/akeley98/DementedIGPU/pkg/proc"
)

// RunContext is built once per run and passed to each step. Relative file
// names are resolved against BaseDir; the working directory is never changed.
type RunContext struct {
	BaseDir string
	IsRoot  bool
	LogFile string // path of the open file log, empty until OpenLog
	Runner  proc.Runner
	// Tags the run's log, so a saved log can be matched to the run.
	RunID string
}

// replaced in tests
var (
	geteuid    = unix.Geteuid
	executable = os.Executable
)

// NewRunContext returns a context for baseDir, or for the directory holding
// the executable if baseDir is empty.
func NewRunContext(baseDir string, r proc.Runner) (*RunContext, error) {
	if baseDir == "" {
		exe, err := executable()
		if err != nil {
			return nil, failure.Wrap(failure.NotFound, err, "locating executable")
		}
		if resolved, err := fp.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		baseDir = fp.Dir(exe)
	}
	abs, err := fp.Abs(baseDir)
	if err != nil {
		return nil, failure.Wrap(failure.Validation, err, "base directory %s", baseDir)
	}
	return &RunContext{
		BaseDir: abs,
		IsRoot:  geteuid() == 0,
		Runner:  r,
		RunID:   uuid.NewString(),
	}, nil
}

func (rc *RunContext) Path(name string) string { return config.Resolve(rc.BaseDir, name) }

// RequireRoot fails unless the process runs with euid 0.
func (rc *RunContext) RequireRoot() error {
	if !rc.IsRoot {
		return failure.New(failure.Validation, "Need to be root (run with sudo).")
	}
	return nil
}

// OpenLog adds a file log at name, resolved against BaseDir. Entries logged
// so far are replayed into it.
func (rc *RunContext) OpenLog(name string) error {
	if name == "" {
		return nil
	}
	path := rc.Path(name)
	if _, err := log.AddNamedFileLog(path); err != nil {
		return failure.Wrap(failure.Validation, err, "opening log %s", path)
	}
	rc.LogFile = log.FileName()
	return nil
}
