// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package proc runs the external tools the provisioning steps depend on:
// the package manager, find, grep, patch, systemctl, update-grub.
//
// Run captures stdout and lets stderr through to the terminal. RunAttached
// captures nothing, for tools that may prompt the user. Neither ever kills
// the child; a long wait only produces periodic remarks.
package proc

import (
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/google/shlex"
	"github.com/magefile/mage/sh"

	"github.com/akeley98/DementedIGPU/pkg/failure"
	"github.com/akeley98/DementedIGPU/pkg/log"
)

// Result of a captured run.
type Result struct {
	Stdout []byte
	Code   int
}

type Runner interface {
	// Run executes args[0] with args[1:], capturing stdout. A nonzero exit
	// code is not an error; err is non-nil only if the process could not be
	// run at all.
	Run(args ...string) (Result, error)
	// RunAttached executes with stdin, stdout and stderr attached to the
	// terminal and returns the exit code.
	RunAttached(args ...string) (int, error)
}

// Interval between "still waiting" remarks.
const DefaultStallNotice = 10 * time.Second

// Local runs commands on this host.
type Local struct {
	StallNotice time.Duration
	// Where the child's stderr goes for captured runs; os.Stderr if nil.
	Stderr io.Writer
}

var _ Runner = (*Local)(nil)

func (l *Local) Run(args ...string) (Result, error) {
	if len(args) == 0 {
		return Result{}, failure.New(failure.Validation, "no command given")
	}
	var out bytes.Buffer
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = &out
	cmd.Stderr = l.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Start(); err != nil {
		return Result{Code: -1}, failure.Wrap(failure.Subprocess, err, "starting %v", args)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	notice := l.StallNotice
	if notice <= 0 {
		notice = DefaultStallNotice
	}
	tick := time.NewTicker(notice)
	defer tick.Stop()
	start := time.Now()
	for {
		select {
		case err := <-done:
			code, err := exitCode(err, args)
			return Result{Stdout: out.Bytes(), Code: code}, err
		case <-tick.C:
			log.Logf("waited %s args=%v", time.Since(start).Round(time.Millisecond), args)
		}
	}
}

func (l *Local) RunAttached(args ...string) (int, error) {
	if len(args) == 0 {
		return -1, failure.New(failure.Validation, "no command given")
	}
	ran, err := sh.Exec(nil, os.Stdout, os.Stderr, args[0], args[1:]...)
	if !ran {
		return -1, failure.Wrap(failure.Subprocess, err, "starting %v", args)
	}
	return sh.ExitStatus(err), nil
}

// exitCode translates the result of Wait. Killed by a signal counts as -1.
func exitCode(err error, args []string) (int, error) {
	if err == nil {
		return 0, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode(), nil
	}
	return -1, failure.Wrap(failure.Subprocess, err, "waiting for %v", args)
}

// Strict is Run, except that a nonzero exit code is a Subprocess failure.
func Strict(r Runner, args ...string) ([]byte, error) {
	res, err := r.Run(args...)
	if err != nil {
		return nil, err
	}
	if res.Code != 0 {
		return res.Stdout, failure.New(failure.Subprocess, "error code (%d) running command %v", res.Code, args)
	}
	return res.Stdout, nil
}

// StrictAttached is RunAttached, except that a nonzero exit code is a
// Subprocess failure.
func StrictAttached(r Runner, args ...string) error {
	code, err := r.RunAttached(args...)
	if err != nil {
		return err
	}
	if code != 0 {
		return failure.New(failure.Subprocess, "error code (%d) running command %v", code, args)
	}
	return nil
}

// SplitCommand splits a configured command line into args, honoring shell
// quoting but not expansion.
func SplitCommand(line string) ([]string, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return nil, failure.Wrap(failure.Validation, err, "parsing command %q", line)
	}
	if len(args) == 0 {
		return nil, failure.New(failure.Validation, "empty command %q", line)
	}
	return args, nil
}
