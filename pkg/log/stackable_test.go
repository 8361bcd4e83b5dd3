// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/akeley98/DementedIGPU/pkg/log/flags"
)

func TestMarshalEntry(t *testing.T) {
	T, _ := time.Parse("2006", "1999")
	e := LogEntry{
		Time:  T,
		Flags: flags.Warning | flags.Fatal | flags.Flag(0x90),
		Msg:   "test",
	}
	j, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"t":"1999-01-01T00:00:00Z","Msg":"test","Flags":"warning|fatal|0x90"}`
	if string(j) != want {
		t.Errorf("marshal:\nwant %s\n got %s", want, string(j))
	}
}

func TestDuplicateLogger(t *testing.T) {
	DefaultLogStack()
	defer DefaultLogStack()
	err := AddLogger(&memLog{}, false)
	if err == nil {
		t.Fatal("duplicate memLog accepted")
	}
	if _, ok := err.(*stackErr); !ok {
		t.Errorf("want *stackErr, got %T", err)
	}
}

func TestRemoveLogger(t *testing.T) {
	DefaultLogStack()
	defer DefaultLogStack()
	Logf("before console")
	AddConsoleLog(flags.NotFile) // nothing carries NotFile, so it stays silent
	if FindInStack(MemLogIdent) == nil || FindInStack(ConsoleLogIdent) == nil {
		t.Fatal("missing logger")
	}
	FlushMemLog()
	if FindInStack(MemLogIdent) != nil {
		t.Error("memLog still in stack")
	}
	if FindInStack(ConsoleLogIdent) == nil {
		t.Error("consoleLog removed")
	}
	if StoredEntries() != nil {
		t.Error("entries without memLog")
	}
}

func TestEntryString(t *testing.T) {
	T, _ := time.Parse("2006", "2018")
	for _, td := range []struct {
		e    LogEntry
		want string
	}{
		{LogEntry{Time: T, Msg: "plain"}, "2018-01-01 00:00:00 DementedIGPU: plain"},
		{LogEntry{Time: T, Msg: "%d%%", Args: []interface{}{99}, Flags: flags.Warning}, "2018-01-01 00:00:00 DementedIGPU Warning: 99%"},
		{LogEntry{Time: T, Msg: "100%", Flags: flags.Fatal}, "2018-01-01 00:00:00 DementedIGPU Error: 100%"},
	} {
		if got := td.e.String(); got != td.want {
			t.Errorf("want %q, got %q", td.want, got)
		}
	}
}
