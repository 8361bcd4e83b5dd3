// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Command dementedigpu sets up a hybrid graphics laptop so that the GRUB
// menu offers each kernel twice: once on the nvidia GPU and once on the
// integrated GPU with the nvidia card left to bumblebee.
//
// Must run as root.
package main

import (
	"github.com/spf13/cobra"

	"github.com/akeley98/DementedIGPU/pkg/common"
	"github.com/akeley98/DementedIGPU/pkg/config"
	"github.com/akeley98/DementedIGPU/pkg/log"
	"github.com/akeley98/DementedIGPU/pkg/proc"
	"github.com/akeley98/DementedIGPU/pkg/provision"
)

type options struct {
	steps      provision.Steps
	configFile string
	baseDir    string
	// set once all steps have run; false for --help
	done bool
}

func main() {
	log.AddConsoleLog(0)
	log.SetFatalAction(log.FailAction{Pre: pointAtLog, Terminator: log.DefaultFatalAction})
	opts := &options{}
	if err := newRootCmd(opts).Execute(); err != nil {
		log.Fatalf("%s", err)
	}
	if opts.done {
		log.Log("Done. Reboot and pick a menu entry.")
	}
	log.Finalize()
}

// pointAtLog tells the operator where the full log is, if one was opened.
func pointAtLog(string, ...interface{}) {
	if f := log.FileName(); f != "" {
		log.Logf("Full log in %s.", f)
	}
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dementedigpu",
		Short: "Add integrated-GPU boot entries alongside nvidia ones",
		Long: `dementedigpu installs the nvidia driver and bumblebee, writes
DementedIGPU.target next to graphical.target, and patches
/etc/grub.d/10_linux so every kernel gets a second menu entry
that boots into DementedIGPU.target.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return run(opts, cmd.Flags().Changed("config"))
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.steps.SkipDeps, "skip-deps", false, "do not check or install the driver and bumblebee")
	f.BoolVar(&opts.steps.SkipTarget, "skip-target", false, "do not write DementedIGPU.target")
	f.BoolVar(&opts.steps.SkipGrub, "skip-grub", false, "do not patch the GRUB script")
	f.StringVar(&opts.configFile, "config", config.DefaultFile, "config file; relative paths are under the base directory")
	f.StringVar(&opts.baseDir, "base-dir", "", "directory for the log, backup and patch (default: the executable's directory)")
	return cmd
}

func run(opts *options, configRequired bool) error {
	rc, err := common.NewRunContext(opts.baseDir, nil)
	if err != nil {
		return err
	}
	if err = rc.RequireRoot(); err != nil {
		return err
	}
	cfg, err := config.Load(rc.Path(opts.configFile), configRequired)
	if err != nil {
		return err
	}
	rc.Runner = &proc.Local{StallNotice: cfg.StallNotice}
	if err = rc.OpenLog(cfg.LogFile); err != nil {
		return err
	}
	// the file log has been given everything logged so far
	log.FlushMemLog()
	log.Logf("Run %s: working in %s, logging to %s.", rc.RunID, rc.BaseDir, rc.LogFile)
	if err = provision.Run(rc, cfg, opts.steps); err != nil {
		return err
	}
	opts.done = true
	return nil
}
