// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

//go:build !release
// +build !release

// Package testlog hijacks the output of
// github.com/akeley98/DementedIGPU/pkg/log. By default, this output prints
// through testing functions but it can be stored in a buffer as well - for
// example, for analysis as part of the test.
package testlog

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/akeley98/DementedIGPU/pkg/log"
	"github.com/akeley98/DementedIGPU/pkg/log/flags"
)

// Conforms to log.StackableLogger interface. Constructed via NewTestLog().
type TstLog struct {
	t             *testing.T    //log here if Buf is nil
	Buf           *bytes.Buffer //if non-nil, output goes here
	LogCount      int           //counts number of remarks
	WarnCount     int           //counts number of warnings
	FatalCount    int           //counts number of calls to log.Fatalf()
	FatalIsNotErr bool          //if true, do not call t.Errorf() for Fatalf()
	freeze        bool          //do not write any more to Buf
	stderr        bool          //also immediately write to stderr
	mu            sync.Mutex
}

// Returns a new TstLog. If bufferLog is true, logging goes to a buffer rather
// than passing directly to t.Log()/t.Error(). Do not share one TstLog between
// tests - create a new one each time, and call Freeze() when done.
func NewTestLog(t *testing.T, bufferLog, stderr bool) (tlog *TstLog) {
	tlog = &TstLog{
		t:      t,
		stderr: stderr,
	}
	if bufferLog {
		tlog.Buf = new(bytes.Buffer)
	}
	log.NewLogStack(tlog)
	log.SetFatalAction(log.FailAction{Terminator: func() {}})
	return
}

var _ log.StackableLogger = (*TstLog)(nil)

func (tlog *TstLog) AddEntry(e log.LogEntry) {
	tlog.mu.Lock()
	defer tlog.mu.Unlock()
	if tlog.freeze {
		return
	}
	tlog.t.Helper()
	msg := e.Text()
	switch {
	case e.Flags&flags.Fatal != 0:
		tlog.FatalCount++
		msg = ">>FATAL()<< " + msg
	case e.Flags&flags.Warning != 0:
		tlog.WarnCount++
		msg = "WARN:" + msg
	default:
		tlog.LogCount++
		msg = "LOG:" + msg
	}
	f := "@" + e.Time.Format(stampMilli) + ": " + msg
	if e.Flags&flags.Fatal != 0 && !tlog.FatalIsNotErr {
		tlog.t.Error(f)
		return
	}
	if tlog.stderr {
		fmt.Fprintln(os.Stderr, f)
	}
	if tlog.Buf != nil {
		fmt.Fprintln(tlog.Buf, msg)
	} else {
		tlog.t.Log(f)
	}
}

const TstLogIdent = "tstLog"

func (*TstLog) Ident() string                      { return TstLogIdent }
func (tl *TstLog) Next() log.StackableLogger       { return nil }
func (*TstLog) Finalize()                          {}
func (tl *TstLog) ForwardTo(_ log.StackableLogger) {}

const stampMilli = "15:04:05.000" //time format used for stderr. like time.StampMilli, but leaves off date

// sometimes used in testing to inject separators
func (tlog *TstLog) Logf(f string, va ...interface{}) {
	tlog.t.Helper()
	tlog.AddEntry(log.LogEntry{
		Time: time.Now(),
		Msg:  f,
		Args: va,
	})
}

// call at end of test to restore the default log stack
func (tlog *TstLog) Freeze() {
	tlog.mu.Lock()
	if tlog.freeze {
		tlog.mu.Unlock()
		return
	}
	tlog.freeze = true
	tlog.mu.Unlock()
	log.DefaultLogStack()
	log.SetFatalAction(log.DefaultFatal)
}

// String returns buffered output without consuming it.
func (tlog *TstLog) String() string {
	tlog.mu.Lock()
	defer tlog.mu.Unlock()
	if tlog.Buf == nil {
		return ""
	}
	return tlog.Buf.String()
}

// just calls testing.T.Errorf
func (tlog *TstLog) TstErrf(f string, va ...interface{}) {
	tlog.t.Helper()
	tlog.t.Errorf(f, va...)
}
