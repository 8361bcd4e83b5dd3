// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package status can be used to query unit status, disable units, and reload
// unit files. Shells out to 'systemctl --system' through a proc.Runner.
package status

import (
	"os"
	fp "path/filepath"
	"strings"

	"github.com/akeley98/DementedIGPU/pkg/failure"
	"github.com/akeley98/DementedIGPU/pkg/log"
	"github.com/akeley98/DementedIGPU/pkg/proc"
)

// Methods called on this operate in system context.
func SystemContext(r proc.Runner) SysdCtx {
	return SysdCtx{r: r}
}

type SysdCtx struct {
	r proc.Runner
}

// True if systemctl reports unit is enabled.
func (ctx SysdCtx) IsEnabled(unit string) bool {
	res, err := ctx.r.Run("systemctl", "--system", "is-enabled", "-q", unit)
	if err != nil {
		log.Logf("error %s running systemctl is-enabled %s", err, unit)
		return false
	}
	//nonzero exit code means "no"
	return res.Code == 0
}

// Disable a unit so it is not started at boot.
func (ctx SysdCtx) Disable(unit string) error {
	_, err := proc.Strict(ctx.r, "systemctl", "--system", "disable", "-q", unit)
	if err != nil {
		return failure.Wrap(failure.Subprocess, err, "systemctl disable %s", unit)
	}
	return nil
}

// Reload unit files, so newly written units are visible.
func (ctx SysdCtx) DaemonReload() error {
	_, err := proc.Strict(ctx.r, "systemctl", "--system", "daemon-reload")
	return err
}

var (
	// Exists only if systemd booted the host; sd_booted(3) checks the same.
	RuntimeDir = "/run/systemd/system"
	// PID 1's executable. /sbin/init is usually a symlink to systemd.
	InitExe = "/proc/1/exe"
)

// Is the current init system systemd?
func IsSystemd() bool {
	if fi, err := os.Stat(RuntimeDir); err == nil && fi.IsDir() {
		return true
	}
	exe, err := fp.EvalSymlinks(InitExe)
	if err != nil {
		log.Logf("error determining init system: %s", err)
		return false
	}
	return strings.Contains(fp.Base(exe), "systemd")
}
