// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

import (
	"sync"
	"unsafe"
)

// CompiledFunction is a native code artifact produced by CompileInstructions
// or CompileProgram: a block of executable memory plus the entry point
// wrapped as an ordinary Go function value (spec §4.8, §6).
//
// No partially initialized CompiledFunction is ever returned to a caller:
// newCompiledFunction only runs after the backend has assembled a complete
// body and commitExecutable has succeeded.
type CompiledFunction struct {
	mu       sync.Mutex
	mem      []byte
	alloc    pageAllocator
	entry    func() int64
	released bool
}

// newCompiledFunction takes ownership of mem, which must already be
// mapped read+executable by alloc.
func newCompiledFunction(mem []byte, alloc pageAllocator) *CompiledFunction {
	return &CompiledFunction{
		mem:   mem,
		alloc: alloc,
		entry: makeEntryPoint(mem),
	}
}

// makeEntryPoint reinterprets the first byte of mem as a callable,
// argument-less Go function returning int64. This follows the trick
// go-interpreter/wagon's own native executor uses to call into
// JIT-compiled memory (exec/internal/compile/native_exec.go,
// asmBlock.Invoke): a Go func value is itself a pointer to a record whose
// first word is the code address, so a pointer to a heap word holding
// that code address, reinterpreted as a func value, is callable.
func makeEntryPoint(mem []byte) func() int64 {
	codeAddr := new(uintptr)
	*codeAddr = uintptr(unsafe.Pointer(&mem[0]))
	return *(*func() int64)(unsafe.Pointer(&codeAddr))
}

// Invoke runs the compiled function and returns its result. Invoke is safe
// to call concurrently from multiple goroutines; it is not safe to call
// after Release.
func (c *CompiledFunction) Invoke() int64 {
	return c.entry()
}

// Release returns the artifact's executable memory to the host. Release
// is idempotent; calling Invoke after Release has undefined behavior.
func (c *CompiledFunction) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil
	}
	c.released = true
	return c.alloc.free(c.mem)
}
