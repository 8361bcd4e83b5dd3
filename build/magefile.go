// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

//go:build mage

/*
 build file for mage build system
 list tgts with
mage -d build -l

 build tgt with
mage -d build tgt
*/

package main

import (
	"context"
	"fmt"
	"os"
	fp "path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/magefile/mage/target"
)

const importPath = "github.com/akeley98/DementedIGPU"

var (
	// repo root; mage runs with build/ as the working directory
	repoRoot string
	workDir  string
	binary   string
	// the tool runs from the directory holding it, next to its patch
	patchFile string
)

func init() {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	repoRoot = wd
	if fp.Base(wd) == "build" {
		repoRoot = fp.Dir(wd)
	}
	workDir = fp.Join(repoRoot, "work")
	binary = fp.Join(workDir, "dementedigpu")
	patchFile = "DementedIGPU.patch"
}

var Default = Build

// Build compiles the tool into work/ and copies the GRUB patch beside it.
func Build(ctx context.Context) error {
	mg.CtxDeps(ctx, workdir)
	rebuild, err := target.Dir(binary, fp.Join(repoRoot, "cmd"), fp.Join(repoRoot, "pkg"), fp.Join(repoRoot, "go.mod"))
	if err != nil {
		return err
	}
	if !rebuild {
		fmt.Println("skipping build of", binary)
	} else {
		env := map[string]string{"CGO_ENABLED": "0"}
		if err = build(env, "-o", binary, importPath+"/cmd/dementedigpu"); err != nil {
			return err
		}
	}
	src := fp.Join(repoRoot, patchFile)
	if _, err := os.Stat(src); err != nil {
		fmt.Printf("%s not found; copy it next to %s before running\n", src, binary)
		return nil
	}
	return sh.Copy(fp.Join(workDir, patchFile), src)
}

type Tests mg.Namespace

// runs unit tests. RUN and COUNT are passed to go test as -run and -count.
func (Tests) Unit(ctx context.Context) error {
	args := []string{"test", "-cover"}
	if run, ok := os.LookupEnv("RUN"); ok {
		args = append(args, "-run", run)
	}
	if count, ok := os.LookupEnv("COUNT"); ok {
		args = append(args, "-count", count)
	}
	args = append(args, importPath+"/...")
	return sh.RunWith(nil, "go", args...)
}

// go vet, plus a gofmt check
func (Tests) Vet(ctx context.Context) error {
	if err := sh.RunV("go", "vet", importPath+"/..."); err != nil {
		return err
	}
	out, err := sh.Output("gofmt", "-l", fp.Join(repoRoot, "cmd"), fp.Join(repoRoot, "pkg"))
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) != "" {
		return fmt.Errorf("needs gofmt:\n%s", out)
	}
	return nil
}

// removes work dir
func Clean() error {
	return sh.Rm(workDir)
}

func workdir() error {
	return os.MkdirAll(workDir, 0755)
}

// build go code with desired flags
var build = RunWCmd(nil, "go", "build", "-trimpath", "-ldflags", "-s -w")

// sh.RunCmd modified to call RunWith
func RunWCmd(env map[string]string, cmd string, args ...string) func(env2 map[string]string, args ...string) error {
	return func(env2 map[string]string, args2 ...string) error {
		cenv := make(map[string]string)
		for k, v := range env {
			cenv[k] = v
		}
		for k, v := range env2 {
			cenv[k] = v
		}
		return sh.RunWith(cenv, cmd, append(args, args2...)...)
	}
}
