// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package driver installs the proprietary NVIDIA driver and the bumblebee
// daemon, and keeps nvidia-prime from switching GPUs behind our back.
package driver

import (
	"regexp"

	"github.com/akeley98/DementedIGPU/pkg/config"
	"github.com/akeley98/DementedIGPU/pkg/failure"
	"github.com/akeley98/DementedIGPU/pkg/log"
	"github.com/akeley98/DementedIGPU/pkg/proc"
	"github.com/akeley98/DementedIGPU/pkg/systemd/status"
)

// Installer runs the driver steps with the commands from cfg.
type Installer struct {
	R   proc.Runner
	Cfg config.Driver
}

func New(r proc.Runner, cfg config.Driver) *Installer {
	return &Installer{R: r, Cfg: cfg}
}

func (in *Installer) installed(pattern string) (bool, error) {
	args, err := proc.SplitCommand(in.Cfg.ListInstalled)
	if err != nil {
		return false, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, failure.Wrap(failure.Validation, err, "pattern %q", pattern)
	}
	// apt warns that its CLI is unstable; the listing is scanned anyway.
	out, err := proc.Strict(in.R, args...)
	if err != nil {
		return false, err
	}
	return re.Match(out), nil
}

// Detect reports whether the driver appears in the installed package list.
// A driver installed under an unexpected package name is not detected.
func (in *Installer) Detect() (bool, error) {
	return in.installed(in.Cfg.Pattern)
}

// Install adds the driver repository, refreshes package indices, and
// installs the pinned driver, stopping at the first failure. The package
// manager is attached to the terminal because it may ask questions.
func (in *Installer) Install() error {
	for _, step := range []struct{ msg, cmd string }{
		{"Adding nvidia repository.", in.Cfg.AddRepository},
		{"Refreshing package lists.", in.Cfg.Refresh},
		{"Installing nvidia driver.", in.Cfg.Install},
	} {
		log.Log(step.msg)
		if err := in.attached(step.cmd); err != nil {
			return err
		}
	}
	return nil
}

func (in *Installer) attached(line string) error {
	args, err := proc.SplitCommand(line)
	if err != nil {
		return err
	}
	return proc.StrictAttached(in.R, args...)
}

// InstallBumblebee installs the bumblebee daemon if needed, then disables its
// auto-start; DementedIGPU.target pulls it in when wanted.
func (in *Installer) InstallBumblebee() error {
	have, err := in.installed(in.Cfg.BumblebeePattern)
	if err != nil {
		return err
	}
	if have {
		log.Log("bumblebee is already installed.")
	} else {
		log.Log("Installing bumblebee.")
		if err := in.attached(in.Cfg.InstallBumblebee); err != nil {
			return err
		}
	}
	svc := status.SystemContext(in.R)
	if !svc.IsEnabled(in.Cfg.BumblebeeService) {
		log.Logf("%s is not enabled at boot.", in.Cfg.BumblebeeService)
		return nil
	}
	log.Logf("Disabling auto-start of %s.", in.Cfg.BumblebeeService)
	return svc.Disable(in.Cfg.BumblebeeService)
}

// PrimeSelect selects the discrete GPU with prime-select, if present.
// Problems are only warnings: the scheme works without nvidia-prime.
func (in *Installer) PrimeSelect() {
	res, err := in.R.Run("which", "prime-select")
	if err != nil || res.Code == 1 {
		log.Log("nvidia-prime not found (we don't need it anyway).")
		return
	}
	res, err = in.R.Run("sh", "-c", in.Cfg.PrimeSelect)
	if err != nil || res.Code != 0 {
		log.Warnf("%s maybe didn't work.", in.Cfg.PrimeSelect)
		log.Log("If you never used prime-select this isn't a problem.")
		return
	}
	log.Logf("Did %s so it's not messing with the driver.", in.Cfg.PrimeSelect)
}

// Run performs the whole dependency step.
func (in *Installer) Run() error {
	have, err := in.Detect()
	if err != nil {
		return err
	}
	if have {
		log.Log("nvidia driver appears to be installed already.")
	} else if err := in.Install(); err != nil {
		return err
	}
	if err := in.InstallBumblebee(); err != nil {
		return err
	}
	in.PrimeSelect()
	return nil
}
