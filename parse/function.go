// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parse

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/bholmes/SimpleJIT/ir"
)

// headerPattern matches a function header, spec §6: "<returnType> <name>
// ( <params> )" at the start of a line. Params is a comma-separated list
// of type tokens; leading/trailing whitespace around each is permitted.
var headerPattern = regexp.MustCompile(`^(\S+)\s+(\S+)\s*\(([^)]*)\)\s*$`)

// ParseProgram reads the function-block grammar (spec §6) from path and
// returns the Program of every function it declares, in file order.
func ParseProgram(path string) (*ir.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseProgramReader(f)
}

// ParseProgramReader is ParseProgram over an already-open reader.
func ParseProgramReader(r io.Reader) (*ir.Program, error) {
	sc := bufio.NewScanner(r)
	program := ir.NewProgram()
	lineNo := 0

	for {
		header, ok, newLineNo, err := nextHeader(sc, lineNo)
		if err != nil {
			return nil, err
		}
		lineNo = newLineNo
		if !ok {
			break
		}

		name, params, err := parseHeader(header)
		if err != nil {
			return nil, lineError(lineNo, err)
		}

		openLineNo, err := expectOpenBrace(sc, lineNo)
		if err != nil {
			return nil, err
		}
		lineNo = openLineNo

		body, stoppedAt, err := scanBody(sc, lineNo, "}", true)
		if err != nil {
			return nil, err
		}
		lineNo = stoppedAt

		program.Add(ir.Function{
			Name:           name,
			ReturnType:     "int",
			ParameterTypes: params,
			Body:           body,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return program, nil
}

// nextHeader advances sc past blank/comment lines looking for the next
// function header, returning (line, true, lineNo, nil) for the first
// non-blank line (parseHeader checks that it is a header), or
// (_, false, lineNo, nil) at EOF.
func nextHeader(sc *bufio.Scanner, lineNo int) (string, bool, int, error) {
	for sc.Scan() {
		lineNo++
		trimmed := strings.TrimSpace(stripComment(sc.Text()))
		if trimmed == "" {
			continue
		}
		return trimmed, true, lineNo, nil
	}
	return "", false, lineNo, sc.Err()
}

// parseHeader extracts a function's name and parameter types from a
// header line already confirmed non-blank.
func parseHeader(header string) (string, []ir.ParameterType, error) {
	m := headerPattern.FindStringSubmatch(header)
	if m == nil {
		return "", nil, ErrUnknownInstruction
	}
	name := m[2]
	paramList := strings.TrimSpace(m[3])
	if paramList == "" {
		return name, nil, nil
	}
	fields := strings.Split(paramList, ",")
	params := make([]ir.ParameterType, len(fields))
	for i, f := range fields {
		params[i] = ir.ParameterType(strings.TrimSpace(f))
	}
	return name, params, nil
}

// expectOpenBrace consumes lines until one beginning with "{" (spec §6:
// "the body runs from the next line beginning with '{'"), returning
// ErrMissingOpenBrace on EOF or on any other non-blank line first.
func expectOpenBrace(sc *bufio.Scanner, lineNo int) (int, error) {
	for sc.Scan() {
		lineNo++
		trimmed := strings.TrimSpace(sc.Text())
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "{") {
			return lineNo, nil
		}
		return lineNo, lineError(lineNo, ErrMissingOpenBrace)
	}
	if err := sc.Err(); err != nil {
		return lineNo, err
	}
	return lineNo, lineError(lineNo, ErrMissingOpenBrace)
}
