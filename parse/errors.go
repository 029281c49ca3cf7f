// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package parse implements the two textual surface grammars described in
// spec §6: a flat, line-oriented instruction list and a function-block
// program. Both produce the same in-memory model (package ir); neither
// grammar is part of the core C1-C7 contract, which only ever sees a
// validated ir.Program.
package parse

import (
	"errors"
	"fmt"
)

// Parse errors, spec §7 "Parse errors". These surface to the caller
// unchanged (spec §7 propagation policy).
var (
	ErrUnknownInstruction = errors.New("parse: unknown instruction")
	ErrBadOperandCount    = errors.New("parse: wrong number of operands")
	ErrNonIntegerOperand  = errors.New("parse: operand is not an integer")
	ErrMissingOpenBrace   = errors.New("parse: function header not followed by a '{' line")
)

// lineError attaches a 1-based source line number to one of the sentinel
// errors above, matching wagon's own practice of wrapping a sentinel with
// %w rather than constructing ad hoc error values.
func lineError(line int, err error) error {
	return fmt.Errorf("parse: line %d: %w", line, err)
}
