// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package target locates the system's graphical.target and writes a copy of
// it, DementedIGPU.target, that additionally wants the bumblebee daemon.
// Booting into that target is what selects the integrated GPU.
package target

import (
	"os"
	fp "path/filepath"
	"strings"

	"github.com/akeley98/DementedIGPU/pkg/failure"
	"github.com/akeley98/DementedIGPU/pkg/log"
	"github.com/akeley98/DementedIGPU/pkg/proc"
)

// Record is a discovered graphical.target.
type Record struct {
	Path string
	Dir  string // where the generated target is written
}

// Banner is prepended to every generated target file.
const Banner = `# DementedIGPU.target: generated by DementedIGPU from graphical.target.
# Identical to graphical.target except that bumblebeed.service is wanted.
#
`

// Find searches dirs in order with find(1) for a file called name. The first
// directory containing exactly one match wins and later directories are not
// searched. More than one match in a directory is an Ambiguous failure.
func Find(r proc.Runner, name string, dirs ...string) (Record, error) {
	log.Logf("Looking for %s file.", name)
	for _, dir := range dirs {
		// find exits nonzero when it meets unreadable directories under /run;
		// the matches it printed are still good.
		res, err := r.Run("find", dir, "-name", name)
		if err != nil {
			return Record{}, err
		}
		// File names containing a newline are not supported.
		var names []string
		for _, n := range strings.Split(string(res.Stdout), "\n") {
			if n != "" {
				names = append(names, n)
			}
		}
		switch len(names) {
		case 0:
			continue
		case 1:
			log.Logf("Found %s.", names[0])
			return Record{Path: names[0], Dir: fp.Dir(names[0])}, nil
		default:
			return Record{}, failure.New(failure.Ambiguous, "Multiple %s files found in %s: %v", name, dir, names)
		}
	}
	return Record{}, failure.New(failure.NotFound, "Couldn't find %s file in %v.", name, dirs)
}

// FindGraphical is Find for graphical.target.
func FindGraphical(r proc.Runner, dirs ...string) (Record, error) {
	return Find(r, "graphical.target", dirs...)
}

// Opts controls what Create writes.
type Opts struct {
	Name string // file name of the generated target
	Want string // unit appended to the Wants line
}

var DefaultOpts = Opts{Name: "DementedIGPU.target", Want: "bumblebeed.service"}

// Render returns src with o.Want appended to the first Wants line, prefixed
// by Banner.
func Render(src string, o Opts) (string, error) {
	lines := strings.Split(src, "\n")
	idx := -1
	for i, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "Wants") {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", failure.New(failure.Validation, "Could not find 'Wants' listing")
	}
	lines[idx] += " " + o.Want
	return Banner + strings.Join(lines, "\n"), nil
}

// Create writes the generated target next to rec.Path, overwriting any
// previous one, and returns its path.
func Create(rec Record, o Opts) (string, error) {
	data, err := os.ReadFile(rec.Path)
	if err != nil {
		return "", failure.Wrap(failure.NotFound, err, "reading %s", rec.Path)
	}
	out, err := Render(string(data), o)
	if err != nil {
		return "", failure.Wrap(failure.Validation, err, "%s", rec.Path)
	}
	dir := rec.Dir
	if dir == "" {
		dir = fp.Dir(rec.Path)
	}
	name := fp.Join(dir, o.Name)
	if err := os.WriteFile(name, []byte(out), 0644); err != nil {
		return "", failure.Wrap(failure.Validation, err, "writing %s", name)
	}
	log.Logf("Wrote %s.", name)
	return name, nil
}
