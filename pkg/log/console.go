// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/akeley98/DementedIGPU/pkg/log/flags"
)

type consoleLog struct {
	flags  flags.Flag
	out    io.Writer
	remark *color.Color
	warn   *color.Color
	fatal  *color.Color
	next   StackableLogger
}

// Adds a consoleLog writing to stderr to the stack. Flags determine which
// events will log to the console; typically this would be flags.NA
// (everything). Prefixes are colored when stderr is a terminal.
func AddConsoleLog(f flags.Flag) {
	_ = AddLogger(NewConsoleLog(os.Stderr, f), true)
}

// NewConsoleLog returns a console logger writing to w. Color is used only if
// w is a terminal.
func NewConsoleLog(w io.Writer, f flags.Flag) StackableLogger {
	l := &consoleLog{
		flags:  f,
		out:    w,
		remark: color.New(color.FgCyan),
		warn:   color.New(color.FgMagenta, color.Bold),
		fatal:  color.New(color.FgRed, color.Bold),
	}
	useColor := false
	if file, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
	}
	for _, c := range []*color.Color{l.remark, l.warn, l.fatal} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return l
}

var _ StackableLogger = (*consoleLog)(nil)

func (l *consoleLog) AddEntry(e LogEntry) {
	if l.flags == 0 || e.Flags&l.flags > 0 {
		c := l.remark
		switch {
		case e.Flags&flags.Fatal != 0:
			c = l.fatal
		case e.Flags&flags.Warning != 0:
			c = l.warn
		}
		fmt.Fprintln(l.out, c.Sprint(e.Label())+e.Text())
	}
	if l.next != nil {
		l.next.AddEntry(e)
	}
}

func (l *consoleLog) ForwardTo(sl StackableLogger) {
	if l.next == nil || sl == nil {
		l.next = sl
	} else {
		panic("next already set")
	}
}

const ConsoleLogIdent = "consoleLog"

func (*consoleLog) Ident() string           { return ConsoleLogIdent }
func (l *consoleLog) Next() StackableLogger { return l.next }

func (l *consoleLog) Finalize() {
	if l.next != nil {
		l.next.Finalize()
	}
}
