// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package jit

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// hostPageAllocator is the Windows pageAllocator, using VirtualAlloc /
// VirtualProtect / VirtualFree in place of the mmap/mprotect pair the
// Unix variants use for the same three-operation contract (spec §4.1).
type hostPageAllocator struct{}

func (hostPageAllocator) allocateWritable(size int) ([]byte, error) {
	if size <= 0 {
		size = 1
	}
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, ErrAllocationFailed
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func (hostPageAllocator) commitExecutable(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	var old uint32
	addr := uintptr(unsafe.Pointer(&mem[0]))
	if err := windows.VirtualProtect(addr, uintptr(len(mem)), windows.PAGE_EXECUTE_READ, &old); err != nil {
		return ErrProtectionFailed
	}
	flushInstructionCache(mem)
	return nil
}

func (hostPageAllocator) free(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&mem[0]))
	return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}
