// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package config holds the tunables of a provisioning run. Defaults match the
// layout the tool was written for (Ubuntu, apt, nvidia-384); a YAML file may
// override any of them.
package config

import (
	"encoding/hex"
	"errors"
	"os"
	fp "path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/akeley98/DementedIGPU/pkg/failure"
	"github.com/akeley98/DementedIGPU/pkg/proc"
)

// Name of the optional config file, relative to the base directory.
const DefaultFile = "dementedigpu.yaml"

type Config struct {
	Driver Driver `yaml:"driver"`
	Target Target `yaml:"target"`
	Grub   Grub   `yaml:"grub"`
	// Log file, truncated at the start of each run.
	LogFile string `yaml:"log_file"`
	// Interval between "still waiting" remarks for running commands.
	StallNotice time.Duration `yaml:"stall_notice"`
}

type Driver struct {
	ListInstalled    string `yaml:"list_installed"`
	Pattern          string `yaml:"pattern"` // regexp matched against ListInstalled output
	AddRepository    string `yaml:"add_repository"`
	Refresh          string `yaml:"refresh"`
	Install          string `yaml:"install"`
	BumblebeePattern string `yaml:"bumblebee_pattern"`
	InstallBumblebee string `yaml:"install_bumblebee"`
	BumblebeeService string `yaml:"bumblebee_service"`
	PrimeSelect      string `yaml:"prime_select"`
}

type Target struct {
	SearchDirs []string `yaml:"search_dirs"` // in priority order
	Source     string   `yaml:"source"`
	Name       string   `yaml:"name"`
	Want       string   `yaml:"want"` // appended to the Wants line
}

type Grub struct {
	Script    string        `yaml:"script"`
	PatchFile string        `yaml:"patch_file"`
	Backup    string        `yaml:"backup"`
	Marker    string        `yaml:"marker"`
	Before    string        `yaml:"before_sha256"`
	After     string        `yaml:"after_sha256"`
	Pause     time.Duration `yaml:"pause"`
	Update    string        `yaml:"update"`
	// Fail instead of warn when patch exits nonzero.
	StrictPatch bool `yaml:"strict_patch"`
	// Fail instead of warn when the backup copy cannot be made.
	StrictBackup bool `yaml:"strict_backup"`
}

func Default() *Config {
	return &Config{
		Driver: Driver{
			ListInstalled:    "apt list --installed",
			Pattern:          `nvidia-[0-9]`,
			AddRepository:    "add-apt-repository ppa:graphics-drivers/ppa",
			Refresh:          "apt-get update",
			Install:          "apt-get install nvidia-384",
			BumblebeePattern: `(?m)^bumblebee/`,
			InstallBumblebee: "apt-get install bumblebee",
			BumblebeeService: "bumblebeed.service",
			PrimeSelect:      "prime-select nvidia",
		},
		Target: Target{
			SearchDirs: []string{"/lib", "/run", "/etc"},
			Source:     "graphical.target",
			Name:       "DementedIGPU.target",
			Want:       "bumblebeed.service",
		},
		Grub: Grub{
			Script:    "/etc/grub.d/10_linux",
			PatchFile: "DementedIGPU.patch",
			Backup:    ".10_linux",
			Marker:    "demented_linux_entry",
			Before:    "d2d52571736ed1dcd05069249154a09f2f0935be041e7cadd180dc94ad6e4db9",
			After:     "2e29c9a1eeb7c470910f6db86f0a2200f997d261d5b21f719fbcfcda8c271406",
			Pause:     15 * time.Second,
			Update:    "update-grub",
		},
		LogFile:     ".log",
		StallNotice: proc.DefaultStallNotice,
	}
}

// Load reads path over the defaults. If required is false, a missing file
// yields the defaults.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, failure.Wrap(failure.NotFound, err, "read config file")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, failure.Wrap(failure.Validation, err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, failure.Wrap(failure.Validation, err, "validate config %s", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	for name, cmd := range map[string]string{
		"driver.list_installed":    c.Driver.ListInstalled,
		"driver.add_repository":    c.Driver.AddRepository,
		"driver.refresh":           c.Driver.Refresh,
		"driver.install":           c.Driver.Install,
		"driver.install_bumblebee": c.Driver.InstallBumblebee,
		"driver.prime_select":      c.Driver.PrimeSelect,
		"grub.update":              c.Grub.Update,
	} {
		if _, err := proc.SplitCommand(cmd); err != nil {
			return failure.Wrap(failure.Validation, err, "%s", name)
		}
	}
	for name, re := range map[string]string{
		"driver.pattern":           c.Driver.Pattern,
		"driver.bumblebee_pattern": c.Driver.BumblebeePattern,
	} {
		if re == "" {
			return failure.New(failure.Validation, "%s is empty", name)
		}
		if _, err := regexp.Compile(re); err != nil {
			return failure.Wrap(failure.Validation, err, "%s", name)
		}
	}
	if len(c.Target.SearchDirs) == 0 {
		return failure.New(failure.Validation, "target.search_dirs is empty")
	}
	for _, n := range []string{c.Target.Source, c.Target.Name} {
		if n == "" || strings.ContainsRune(n, '/') {
			return failure.New(failure.Validation, "target file name %q must be a plain file name", n)
		}
	}
	for name, v := range map[string]string{
		"target.want":              c.Target.Want,
		"driver.bumblebee_service": c.Driver.BumblebeeService,
		"grub.script":              c.Grub.Script,
		"grub.patch_file":          c.Grub.PatchFile,
		"grub.backup":              c.Grub.Backup,
		"grub.marker":              c.Grub.Marker,
		"log_file":                 c.LogFile,
	} {
		if strings.TrimSpace(v) == "" {
			return failure.New(failure.Validation, "%s is empty", name)
		}
	}
	for name, sum := range map[string]string{
		"grub.before_sha256": c.Grub.Before,
		"grub.after_sha256":  c.Grub.After,
	} {
		b, err := hex.DecodeString(sum)
		if err != nil || len(b) != 32 {
			return failure.New(failure.Validation, "%s: %q is not a sha256 hex digest", name, sum)
		}
	}
	if c.Grub.Pause < 0 || c.StallNotice < 0 {
		return failure.New(failure.Validation, "durations must not be negative")
	}
	return nil
}

// Resolve returns p if absolute, otherwise p relative to base.
func Resolve(base, p string) string {
	if fp.IsAbs(p) {
		return p
	}
	return fp.Join(base, p)
}
