// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"fmt"
	"os"

	"github.com/akeley98/DementedIGPU/pkg/log/flags"
)

type fileLog struct {
	f    *os.File
	name string
	next StackableLogger
}

var _ StackableLogger = (*fileLog)(nil)

// AddNamedFileLog adds a fileLog to the stack. The file is truncated; existing
// events are inserted. Each entry is synced to disk as it is written, so the
// file is complete even if the process dies.
func AddNamedFileLog(fname string) (string, error) {
	f, err := os.Create(fname)
	if err != nil {
		return "", err
	}
	fl := &fileLog{f: f, name: fname}
	if err = AddLogger(fl, true); err != nil {
		f.Close()
		os.Remove(fname)
		return "", err
	}
	return fname, nil
}

func (fl *fileLog) AddEntry(e LogEntry) {
	if (e.Flags&flags.NotFile) == 0 && fl.f != nil {
		fmt.Fprintln(fl.f, e.String())
		_ = fl.f.Sync()
	}
	if fl.next != nil {
		fl.next.AddEntry(e)
	}
}

func (fl *fileLog) ForwardTo(sl StackableLogger) {
	if fl.next == nil || sl == nil {
		fl.next = sl
	} else {
		panic("next already set")
	}
}

const FileLogIdent = "fileLog"

func (fl *fileLog) Ident() string         { return FileLogIdent }
func (fl *fileLog) Next() StackableLogger { return fl.next }

func (fl *fileLog) Finalize() {
	if fl.f != nil {
		err := fl.f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "closing log file: %s", err)
		}
		fl.f = nil
	}
	if fl.next != nil {
		fl.next.Finalize()
	}
}

// FileName returns the path written by the file log in the stack, or "" if
// there is none.
func FileName() string {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	if fl, ok := FindInStack(FileLogIdent).(*fileLog); ok {
		return fl.name
	}
	return ""
}
