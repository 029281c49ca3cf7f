// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package jit

import (
	mmap "github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"
)

// hostPageAllocator is the Linux pageAllocator. It follows the teacher's
// (go-interpreter/wagon, exec/internal/compile/allocator.go) use of
// mmap-go for the initial mapping, but never maps a region EXEC|RDWR at
// once: allocateWritable asks only for RDWR, and commitExecutable
// performs a separate mprotect to RX, satisfying the W^X invariant
// (spec §4.1, §5) that wagon's own combined-flags mapping does not.
type hostPageAllocator struct{}

func (hostPageAllocator) allocateWritable(size int) ([]byte, error) {
	if size <= 0 {
		size = 1
	}
	m, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, ErrAllocationFailed
	}
	return []byte(m), nil
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
	m := mmap.MMap(mem)
	return m.Unmap()
}
