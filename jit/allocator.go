// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

import "errors"

// System errors, spec §7 "System errors".
var (
	ErrAllocationFailed = errors.New("jit: executable memory allocation failed")
	ErrProtectionFailed = errors.New("jit: memory protection transition failed")
)

// Codegen errors, spec §7 "Codegen errors". Both fold into the
// artifact-absent / VM-fallback pathway (spec §4.8): CompileInstructions
// and CompileProgram never return them, but report a nil
// *CompiledFunction with a nil error instead.
var (
	// ErrUnsupportedInstruction is returned when a function body contains
	// an instruction (or operand) the selected backend cannot emit, e.g.
	// Call, or a LoadArg whose index is out of range for the function's
	// declared arity.
	ErrUnsupportedInstruction = errors.New("jit: unsupported instruction for this backend")

	// ErrImmediateOutOfRange is returned when a LoadImm constant cannot be
	// materialized by the selected backend's immediate-encoding forms.
	// Neither backend in this package returns it: both materialize any
	// int64.
	ErrImmediateOutOfRange = errors.New("jit: immediate value out of range for this backend")
)

// pageAllocator is the three-operation abstraction over host virtual
// memory APIs (spec §4.1, C1). Each method maps to one of the spec's
// named operations:
//
//	allocateWritable -> allocate_writable
//	commitExecutable -> commit_executable
//	free             -> free
//
// Implementations live in allocator_linux.go / allocator_darwin.go /
// allocator_windows.go,
// selected by the Go build system per-GOOS the same way the teacher
// (go-interpreter/wagon) gates its own allocator on a build tag.
type pageAllocator interface {
	// allocateWritable returns a page-aligned region of at least size
	// bytes, readable and writable, not executable. It fails with
	// ErrAllocationFailed if the host refuses.
	allocateWritable(size int) ([]byte, error)

	// commitExecutable transitions mem (previously returned by
	// allocateWritable) to read+executable, removing write access. On
	// architectures that require it (AArch64), the instruction cache is
	// invalidated over mem's range before this returns. It fails with
	// ErrProtectionFailed.
	commitExecutable(mem []byte) error

	// free releases mem. Idempotent on a nil/empty mem.
	free(mem []byte) error
}

// newPageAllocator returns the allocator for the running host OS.
func newPageAllocator() pageAllocator {
	return hostPageAllocator{}
}
