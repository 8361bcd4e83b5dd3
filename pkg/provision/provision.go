// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package provision runs the provisioning steps in order: driver and
// bumblebee dependencies, the boot target file, then the GRUB patch.
package provision

import (
	"github.com/akeley98/DementedIGPU/pkg/common"
	"github.com/akeley98/DementedIGPU/pkg/config"
	"github.com/akeley98/DementedIGPU/pkg/driver"
	"github.com/akeley98/DementedIGPU/pkg/grub"
	"github.com/akeley98/DementedIGPU/pkg/log"
	"github.com/akeley98/DementedIGPU/pkg/systemd/status"
	"github.com/akeley98/DementedIGPU/pkg/systemd/target"
)

// Steps selects which steps are skipped. The zero value runs everything.
type Steps struct {
	SkipDeps   bool
	SkipTarget bool
	SkipGrub   bool
}

type step struct {
	name string
	skip bool
	run  func(rc *common.RunContext, cfg *config.Config) error
}

func (s Steps) list() []step {
	return []step{
		{"dependencies", s.SkipDeps, Deps},
		{"target", s.SkipTarget, Target},
		{"grub", s.SkipGrub, Grub},
	}
}

// Run checks preconditions, then runs each step that is not skipped. The
// first failing step ends the run.
func Run(rc *common.RunContext, cfg *config.Config, s Steps) error {
	if err := rc.RequireRoot(); err != nil {
		return err
	}
	for _, st := range s.list() {
		if st.skip {
			log.Logf("Skipping %s.", st.name)
			continue
		}
		if err := runStep(rc, cfg, st); err != nil {
			return err
		}
	}
	return nil
}

// runStep marks a failing step in the log. A panic is marked and re-raised
// so the trace is kept.
func runStep(rc *common.RunContext, cfg *config.Config, st step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("step %s failed", st.name)
			panic(r)
		}
	}()
	err = st.run(rc, cfg)
	if err != nil {
		log.Warnf("step %s failed", st.name)
	}
	return
}

// Deps installs the nvidia driver and bumblebee as needed.
func Deps(rc *common.RunContext, cfg *config.Config) error {
	return driver.New(rc.Runner, cfg.Driver).Run()
}

// Target writes the boot target next to graphical.target and asks systemd
// to reload unit files.
func Target(rc *common.RunContext, cfg *config.Config) error {
	rec, err := target.Find(rc.Runner, cfg.Target.Source, cfg.Target.SearchDirs...)
	if err != nil {
		return err
	}
	if _, err = target.Create(rec, target.Opts{Name: cfg.Target.Name, Want: cfg.Target.Want}); err != nil {
		return err
	}
	if !status.IsSystemd() {
		log.Warn("init system does not look like systemd; the new target may not be used.")
		return nil
	}
	if err = status.SystemContext(rc.Runner).DaemonReload(); err != nil {
		log.Warnf("daemon-reload failed: %s", err)
	}
	return nil
}

// Grub patches the GRUB script and regenerates the config if the patch ran.
func Grub(rc *common.RunContext, cfg *config.Config) error {
	patched, err := grub.New(rc.Runner, cfg.Grub, rc.BaseDir).MaybePatch()
	if err != nil {
		return err
	}
	if !patched {
		return nil
	}
	return grub.UpdateGrub(rc.Runner, cfg.Grub.Update)
}
