// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package log is a stackable logging mechanism. Entries go to one or more
// sinks: the console (with colored severity prefixes), a file, or memory.
//
// By default, events are retained in memory so they can be re-played into
// new log sinks if/when they are added later on. This lets the program log
// before it knows where its log file lives.
package log

import (
	"github.com/akeley98/DementedIGPU/pkg/log/flags"
)

// Name used in console/file prefixes.
const Name = "DementedIGPU"

// Logf is for remarks: progress, what is being run, what was found.
func Logf(f string, va ...interface{}) { FlaggedLogf(flags.NA, f, va...) }

// See Logf
func Log(message string) { Logf("%s", message) }

// Warnf reports a problem that does not stop the run.
func Warnf(f string, va ...interface{}) { FlaggedLogf(flags.Warning, f, va...) }

// See Warnf
func Warn(message string) { Warnf("%s", message) }
