// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package failure is the error type returned by the provisioning steps. Each
// error carries a Kind so callers can tell a failed subprocess from an
// ambiguous file search without parsing messages.
package failure

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Validation Kind = iota + 1
	Subprocess
	NotFound
	Ambiguous
	Checksum
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Subprocess:
		return "subprocess failure"
	case NotFound:
		return "not found"
	case Ambiguous:
		return "ambiguous discovery"
	case Checksum:
		return "checksum mismatch"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, failure.New(k, ""))
// works; most callers want the Is function below instead.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func New(k Kind, f string, va ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(f, va...)}
}

// Wrap returns nil if err is nil.
func Wrap(k Kind, err error, f string, va ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Msg: fmt.Sprintf(f, va...), Err: err}
}

// Is reports whether any error in err's chain is a failure of kind k.
func Is(err error, k Kind) bool {
	var fe *Error
	for err != nil {
		if !errors.As(err, &fe) {
			return false
		}
		if fe.Kind == k {
			return true
		}
		err = fe.Err
	}
	return false
}
