// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parse

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bholmes/SimpleJIT/ir"
)

// ParseFlat reads the flat grammar (spec §6) from path and returns a
// Program containing a single function named "Main" holding the file's
// instructions.
func ParseFlat(path string) (*ir.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseFlatReader(f)
}

// ParseFlatReader is ParseFlat over an already-open reader, exposed for
// testing and for callers that already hold the text (function.go's
// ParseProgram shares its line scanner, scanBody, rather than calling it).
func ParseFlatReader(r io.Reader) (*ir.Program, error) {
	body, err := parseFlatBody(r)
	if err != nil {
		return nil, err
	}
	return ir.NewProgram(ir.Function{Name: "Main", Body: body}), nil
}

// parseFlatBody scans lines of the flat grammar, stopping at EOF.
func parseFlatBody(r io.Reader) ([]ir.Instruction, error) {
	insts, _, err := scanBody(bufio.NewScanner(r), 0, "", false)
	return insts, err
}

// scanBody reads instruction lines from sc starting at line number
// lineNo+1, stopping when a line trimmed of whitespace begins with stopAt (if
// stopAt is non-empty) or at EOF. extended enables the function
// grammar's additional call/loadarg instructions. It returns the
// instructions, the line number of the line that stopped the scan (0 if
// EOF), and any error.
func scanBody(sc *bufio.Scanner, lineNo int, stopAt string, extended bool) ([]ir.Instruction, int, error) {
	var insts []ir.Instruction
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		text := stripComment(raw)
		trimmed := strings.TrimSpace(text)

		if stopAt != "" && strings.HasPrefix(strings.TrimSpace(raw), stopAt) {
			return insts, lineNo, nil
		}
		if trimmed == "" {
			continue
		}

		inst, err := parseLine(trimmed, extended)
		if err != nil {
			return nil, 0, lineError(lineNo, err)
		}
		insts = append(insts, inst)
	}
	if err := sc.Err(); err != nil {
		return nil, 0, err
	}
	return insts, 0, nil
}

// stripComment removes a "#" or "//" to end-of-line.
func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return line
}

// parseLine parses one non-empty, non-comment, trimmed instruction line.
// extended enables call/loadarg, which the flat grammar has no syntax
// for (spec §6).
func parseLine(line string, extended bool) (ir.Instruction, error) {
	fields := strings.Fields(line)
	keyword := strings.ToLower(fields[0])
	operands := fields[1:]

	switch keyword {
	case "load":
		if len(operands) != 1 {
			return ir.Instruction{}, ErrBadOperandCount
		}
		v, err := strconv.ParseInt(operands[0], 10, 64)
		if err != nil {
			return ir.Instruction{}, ErrNonIntegerOperand
		}
		return ir.LoadImm(v), nil
	case "loadarg":
		if !extended {
			return ir.Instruction{}, ErrUnknownInstruction
		}
		if len(operands) != 1 {
			return ir.Instruction{}, ErrBadOperandCount
		}
		v, err := strconv.ParseUint(operands[0], 10, 32)
		if err != nil {
			return ir.Instruction{}, ErrNonIntegerOperand
		}
		return ir.LoadArg(uint32(v)), nil
	case "call":
		if !extended {
			return ir.Instruction{}, ErrUnknownInstruction
		}
		if len(operands) != 1 {
			return ir.Instruction{}, ErrBadOperandCount
		}
		return ir.Call(operands[0]), nil
	case "add":
		return noOperandInstruction(operands, ir.Add())
	case "sub":
		return noOperandInstruction(operands, ir.Sub())
	case "mul":
		return noOperandInstruction(operands, ir.Mul())
	case "div":
		return noOperandInstruction(operands, ir.Div())
	case "print":
		return noOperandInstruction(operands, ir.Print())
	case "ret", "return":
		return noOperandInstruction(operands, ir.Return())
	default:
		return ir.Instruction{}, ErrUnknownInstruction
	}
}

func noOperandInstruction(operands []string, inst ir.Instruction) (ir.Instruction, error) {
	if len(operands) != 0 {
		return ir.Instruction{}, ErrBadOperandCount
	}
	return inst, nil
}
