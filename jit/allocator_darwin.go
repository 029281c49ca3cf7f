// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin

package jit

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// hostPageAllocator is the Darwin pageAllocator. Unlike allocator_linux.go
// it does not go through mmap-go: on Apple Silicon (AArch64) hosts, the
// initial mapping must carry the MAP_JIT flag (spec §4.1) so that a later
// mprotect to executable is permitted by the platform's hardened-runtime
// policy, and mmap-go's MapRegion has no parameter for that flag.
type hostPageAllocator struct{}

func (hostPageAllocator) allocateWritable(size int) ([]byte, error) {
	if size <= 0 {
		size = 1
	}
	flags := unix.MAP_ANON | unix.MAP_PRIVATE
	if runtime.GOARCH == "arm64" {
		flags |= unix.MAP_JIT
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return nil, ErrAllocationFailed
	}
	return mem, nil
}

func (hostPageAllocator) commitExecutable(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return ErrProtectionFailed
	}
	flushInstructionCache(mem)
	return nil
}

func (hostPageAllocator) free(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	return unix.Munmap(mem)
}
