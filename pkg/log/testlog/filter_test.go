// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package testlog

import (
	"testing"

	"github.com/akeley98/DementedIGPU/pkg/log"
)

// func FilterLog() LineFilterer
func TestFilterLog(t *testing.T) {
	tlog := NewTestLog(t, true, false)
	log.Logf("test log")
	log.Warnf("test warning")
	tlog.Freeze()
	filtered := tlog.Filter(FilterLog())
	if len(filtered) != 1 {
		t.Fatalf("need 1 got %#v", filtered)
	}
	if filtered[0] != "LOG:test log" {
		t.Errorf("mismatch %#v", filtered)
	}
	if tlog.WarnCount != 1 || tlog.LogCount != 1 {
		t.Errorf("counts: %d warnings, %d remarks", tlog.WarnCount, tlog.LogCount)
	}
}

// func FilterWarnPfx(pfx string) LineFilterer
func TestFilterWarnPfx(t *testing.T) {
	tlog := NewTestLog(t, true, false)
	log.Logf("test log")
	log.Warnf("test warning")
	log.Warnf("2 test warning")
	tlog.Freeze()
	filtered := tlog.Filter(FilterWarnPfx("test"))
	if len(filtered) != 1 {
		t.Fatalf("need 1 got %#v", filtered)
	}
	if filtered[0] != "WARN:test warning" {
		t.Errorf("mismatch %#v", filtered)
	}
}

func TestFatalNotErr(t *testing.T) {
	tlog := NewTestLog(t, true, false)
	tlog.FatalIsNotErr = true
	log.Fatalf("going down: %d", 1)
	tlog.Freeze()
	if tlog.FatalCount != 1 {
		t.Errorf("want 1 fatal, got %d", tlog.FatalCount)
	}
	got := tlog.Filter(FilterPfx(">>FATAL()<<"))
	if len(got) != 1 || got[0] != ">>FATAL()<< going down: 1" {
		t.Errorf("got %#v", got)
	}
}

func TestFreezeStopsOutput(t *testing.T) {
	tlog := NewTestLog(t, true, false)
	log.Logf("kept")
	tlog.Freeze()
	log.Logf("dropped")
	if tlog.String() != "LOG:kept\n" {
		t.Errorf("got %q", tlog.String())
	}
}
