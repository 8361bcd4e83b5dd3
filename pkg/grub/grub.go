// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package grub patches /etc/grub.d/10_linux so that update-grub emits two
// menu entries per kernel, one for the discrete GPU and one for the
// integrated GPU.
//
// The patch is a fixed diff against one known revision of the script, so the
// file is checked against known digests before and after patching. A
// mismatch before patching gets a warning and a pause in which the operator
// may cancel; a mismatch afterwards is only reported.
package grub

import (
	"time"

	"github.com/u-root/u-root/pkg/cp"

	"github.com/akeley98/DementedIGPU/pkg/config"
	"github.com/akeley98/DementedIGPU/pkg/failure"
	"github.com/akeley98/DementedIGPU/pkg/fileutil"
	"github.com/akeley98/DementedIGPU/pkg/log"
	"github.com/akeley98/DementedIGPU/pkg/proc"
)

type State int

const (
	Unpatched State = iota
	AlreadyPatched
	PatchedNow
)

func (s State) String() string {
	switch s {
	case Unpatched:
		return "unpatched"
	case AlreadyPatched:
		return "already patched"
	case PatchedNow:
		return "patched now"
	}
	return "unknown"
}

// Outcome of Patch. Digests are hex sha256 of the script before and after
// this run; Before is empty if the script was already patched.
type Outcome struct {
	State  State
	Before string
	After  string
}

type Patcher struct {
	R         proc.Runner
	Script    string // script to patch
	PatchFile string // diff applied with patch(1)
	Backup    string // copy of the unpatched script
	Marker    string // present in the script only once patched
	Before    string // expected digest of the unpatched script
	After     string // expected digest of the patched script
	Pause     time.Duration
	// Nonzero exit of patch(1) is an error instead of a warning.
	StrictPatch bool
	// Failure to make the backup is an error instead of a warning.
	StrictBackup bool
	// Used for the pause; time.Sleep if nil.
	Sleep func(time.Duration)
}

// New returns a Patcher for cfg. Relative paths in cfg are resolved against
// base.
func New(r proc.Runner, cfg config.Grub, base string) *Patcher {
	return &Patcher{
		R:            r,
		Script:       cfg.Script,
		PatchFile:    config.Resolve(base, cfg.PatchFile),
		Backup:       config.Resolve(base, cfg.Backup),
		Marker:       cfg.Marker,
		Before:       cfg.Before,
		After:        cfg.After,
		Pause:        cfg.Pause,
		StrictPatch:  cfg.StrictPatch,
		StrictBackup: cfg.StrictBackup,
	}
}

// Check greps the script for the marker.
func (p *Patcher) Check() (State, error) {
	res, err := p.R.Run("grep", p.Marker, p.Script)
	if err != nil {
		return Unpatched, err
	}
	switch res.Code {
	case 0:
		return AlreadyPatched, nil
	case 1:
		return Unpatched, nil
	}
	return Unpatched, failure.New(failure.Subprocess, "grep failed (code %d) while checking %s", res.Code, p.Script)
}

// MaybePatch patches the script unless it already is, and reports whether
// it ran the patch.
func (p *Patcher) MaybePatch() (bool, error) {
	o, err := p.Patch()
	return o.State == PatchedNow, err
}

// Patch is MaybePatch with the digests.
func (p *Patcher) Patch() (o Outcome, err error) {
	o.State, err = p.Check()
	if err != nil {
		return
	}
	if o.State == AlreadyPatched {
		log.Logf("%s appears to be patched already.", p.Script)
	} else {
		if err = p.backup(); err != nil {
			return
		}
		o.Before, err = fileutil.Digest(p.Script)
		if err != nil {
			return
		}
		if o.Before != p.Before {
			log.Warnf("%s hash is not as expected.", p.Script)
			log.Warn("Have you manually modified the file? The patch may fail.")
			log.Warnf("Pausing for %s in case you want to cancel (^C).", p.Pause)
			p.sleep(p.Pause)
			log.Logf("Patching %s anyway.", p.Script)
		} else {
			log.Logf("Patching %s.", p.Script)
		}
		if err = p.apply(); err != nil {
			return
		}
		o.State = PatchedNow
	}
	o.After, err = fileutil.Digest(p.Script)
	if err != nil {
		return
	}
	if o.After != p.After {
		log.Warnf("%s hash is not as expected.", p.Script)
	}
	return
}

func (p *Patcher) backup() error {
	err := cp.Copy(p.Script, p.Backup)
	if err == nil {
		log.Logf("Backed up %s to %s.", p.Script, p.Backup)
		return nil
	}
	if p.StrictBackup {
		return failure.Wrap(failure.Validation, err, "backing up %s", p.Script)
	}
	log.Warnf("could not back up %s to %s: %s", p.Script, p.Backup, err)
	return nil
}

func (p *Patcher) apply() error {
	res, err := p.R.Run("patch", p.Script, p.PatchFile)
	if err != nil {
		return err
	}
	if res.Code == 0 {
		return nil
	}
	if p.StrictPatch {
		return failure.New(failure.Subprocess, "error code (%d) patching %s with %s", res.Code, p.Script, p.PatchFile)
	}
	log.Warnf("patch exited with code %d; checking the result anyway.", res.Code)
	return nil
}

func (p *Patcher) sleep(d time.Duration) {
	if p.Sleep != nil {
		p.Sleep(d)
		return
	}
	time.Sleep(d)
}

// UpdateGrub regenerates grub.cfg with the configured command (update-grub).
func UpdateGrub(r proc.Runner, line string) error {
	args, err := proc.SplitCommand(line)
	if err != nil {
		return err
	}
	log.Log("Regenerating GRUB configuration.")
	_, err = proc.Strict(r, args...)
	return err
}
