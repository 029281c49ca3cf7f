// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jit implements the base code generator (C5) and its two native
// backends (C6 amd64, C7 arm64): select the backend matching the host
// architecture, emit a leaf function body for a program's Main function,
// install it as executable memory, and hand back a callable entry point
// (spec §4.5–§4.8).
package jit

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/bholmes/SimpleJIT/ir"
)

// ErrNoMainFunction mirrors vm.ErrNoMainFunction: a program without a
// Main function cannot be compiled (spec §4.8, a hard error rather than
// an absent artifact).
var ErrNoMainFunction = errors.New("jit: program has no Main function")

const defaultRedZoneSize = 512

// Config carries the codegen's tunables, in the shape of a plain struct
// of primitive fields (no config framework -- see DESIGN.md). The zero
// value is the default configuration: auto-detect backend, 512-byte red
// zone.
type Config struct {
	// RedZoneSize overrides the VM-stack scratch region size used by
	// both backends. Zero means the spec default (512 bytes).
	RedZoneSize int

	// ForceBackend overrides host-architecture backend selection with an
	// explicit name ("amd64" or "arm64"), for portable tests that want to
	// exercise a specific backend's code path regardless of GOARCH. Empty
	// means auto-detect.
	ForceBackend string
}

func (c Config) redZoneSize() int {
	if c.RedZoneSize > 0 {
		return c.RedZoneSize
	}
	return defaultRedZoneSize
}

// backend is the C6/C7 contract: assemble fn's body into a relocated,
// position-independent byte sequence implementing the leaf-function
// shape spec §4.6/§4.7 describe.
type backend interface {
	name() string
	build(fn ir.Function, redZoneSize int) ([]byte, error)
}

func selectBackend(name string) (backend, error) {
	switch name {
	case "amd64":
		return amd64Backend{}, nil
	case "arm64":
		return arm64Backend{}, nil
	default:
		return nil, fmt.Errorf("jit: no native backend for architecture %q", name)
	}
}

func (c Config) backendName() string {
	if c.ForceBackend != "" {
		return c.ForceBackend
	}
	return runtime.GOARCH
}

// CompileInstructions compiles a single nullary function body directly,
// bypassing Program lookup. It implements the same artifact-absent
// contract as CompileProgram: a nil, nil return means "fall back to the
// VM", not success.
func CompileInstructions(body []ir.Instruction, cfg Config) (*CompiledFunction, error) {
	return compile(ir.Function{Name: "", Body: body}, cfg)
}

// CompileProgram compiles program's Main function (spec §4.5's
// entry point) to native code. It returns ir.ErrNullProgram for a nil
// program and ErrNoMainFunction if Main is absent (hard errors per spec
// §4.8); any other failure -- an
// unsupported instruction, an allocator or protection failure -- is
// reported by returning a nil *CompiledFunction with a nil error, the
// documented "fall back to the VM" signal.
func CompileProgram(program *ir.Program, cfg Config) (*CompiledFunction, error) {
	if program == nil {
		return nil, ir.ErrNullProgram
	}
	main, ok := program.GetMainFunction()
	if !ok {
		return nil, ErrNoMainFunction
	}
	return compile(main, cfg)
}

// compile runs the C5 pipeline: validate, select backend, emit, install,
// wrap.
func compile(fn ir.Function, cfg Config) (*CompiledFunction, error) {
	if err := fn.Validate(); err != nil {
		return nil, nil // invalid body is artifact-absent, spec §4.8.
	}

	b, err := selectBackend(cfg.backendName())
	if err != nil {
		return nil, nil
	}

	code, err := b.build(fn, cfg.redZoneSize())
	if err != nil {
		// An unsupported instruction (ErrUnsupportedInstruction) or a
		// failure to create the assembler; both are artifact-absent
		// (spec §4.8).
		return nil, nil
	}

	alloc := newPageAllocator()
	mem, err := alloc.allocateWritable(len(code))
	if err != nil {
		return nil, nil
	}
	copy(mem, code)
	if err := alloc.commitExecutable(mem); err != nil {
		_ = alloc.free(mem)
		return nil, nil
	}

	return newCompiledFunction(mem, alloc), nil
}
