// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

//go:build !release
// +build !release

package testlog

import (
	"bufio"
	"regexp"
	"strings"
)

// a function that returns true if 'in' should be included in entries compared
type LineFilterer func(in string) (match bool)

// filter passing only warnings
func FilterWarn() LineFilterer { return FilterPfx("WARN:") }

// filter passing only remarks
func FilterLog() LineFilterer { return FilterPfx("LOG:") }

// filter passing only lines with given prefix (note LOG:/WARN: added by AddEntry)
func FilterPfx(pfx string) LineFilterer {
	return func(in string) bool { return strings.HasPrefix(in, pfx) }
}

// filter passing only remarks, with given prefix
func FilterLogPfx(pfx string) LineFilterer { return FilterPfx("LOG:" + pfx) }

// filter passing only warnings, with given prefix
func FilterWarnPfx(pfx string) LineFilterer { return FilterPfx("WARN:" + pfx) }

// filter with given regex
func FilterRe(re string) LineFilterer {
	rx, err := regexp.Compile(re)
	if err != nil {
		panic(err)
	}
	return func(in string) bool {
		return rx.MatchString(in)
	}
}

// combine two filters; both must accept input
func FilterAnd(f1, f2 LineFilterer) LineFilterer {
	return func(in string) bool {
		return f1(in) && f2(in)
	}
}

// combine two filters; either may accept input
func FilterOr(f1, f2 LineFilterer) LineFilterer {
	return func(in string) bool {
		return f1(in) || f2(in)
	}
}

// Filter buffered log using lf as test. Return matches. Buffer is not
// consumed. Assumes each entry is a single line.
func (tlog *TstLog) Filter(lf LineFilterer) []string {
	tlog.mu.Lock()
	defer tlog.mu.Unlock()
	if tlog.Buf == nil {
		tlog.t.Error("nil buffer")
		return nil
	}
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(tlog.Buf.String()))
	for scanner.Scan() {
		if lf(scanner.Text()) {
			lines = append(lines, scanner.Text())
		}
	}
	return lines
}
