// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vm is the reference stack-machine interpreter for the
// instruction set defined in package ir. It defines the meaning of every
// instruction (spec §4.4) and is the source of truth the native code
// generator (package jit) must agree with.
package vm

import (
	"errors"
	"fmt"

	"github.com/bholmes/SimpleJIT/ir"
)

// Runtime errors, spec §7 "Runtime VM errors".
var (
	ErrStackUnderflow       = errors.New("vm: stack underflow")
	ErrDivideByZero         = errors.New("vm: divide by zero")
	ErrArgIndexOutOfRange   = errors.New("vm: argument index out of range")
	ErrInsufficientCallArgs = errors.New("vm: insufficient call arguments")
	ErrNoProgramContext     = errors.New("vm: Call reached outside ExecuteProgram")
	ErrUnknownFunction      = errors.New("vm: unknown function")
	ErrNoMainFunction       = errors.New("vm: program has no Main function")
)

// callFrame is a pending function invocation: its name and its actual
// arguments (spec §3 CallFrame); the return point is callFunction's own
// Go call, so no return marker is stored. It's unexported —
// callers observe the VM only through VirtualMachine's methods.
type callFrame struct {
	functionName string
	args         []int64
}

// VirtualMachine is the stack VM (spec §4.3, C4). Its evaluation stack,
// call-frame stack, and (for Call resolution) a borrowed Program reference
// are instance-scoped: a VirtualMachine must not be shared across threads
// without external synchronization (spec §5).
type VirtualMachine struct {
	stack  []int64
	frames []callFrame

	// program is set only for the duration of ExecuteProgram, so that
	// Call raises ErrNoProgramContext when Execute is used standalone
	// (spec §4.4, Call's NoProgramContext error).
	program *ir.Program
}

// New returns an empty VirtualMachine, ready for Execute or ExecuteProgram.
func New() *VirtualMachine {
	return &VirtualMachine{}
}

// CallDepth reports the current number of pending call frames. It exists
// for diagnostics only and has no effect on execution semantics.
func (m *VirtualMachine) CallDepth() int { return len(m.frames) }

func (m *VirtualMachine) push(v int64) { m.stack = append(m.stack, v) }

func (m *VirtualMachine) pop() (int64, error) {
	n := len(m.stack)
	if n == 0 {
		return 0, ErrStackUnderflow
	}
	v := m.stack[n-1]
	m.stack = m.stack[:n-1]
	return v, nil
}

func (m *VirtualMachine) top() int64 {
	if len(m.stack) == 0 {
		return 0
	}
	return m.stack[len(m.stack)-1]
}

// Execute runs instructions in "legacy single-sequence mode" (spec §4.3):
// it clears both stacks, executes the instructions in order, and returns
// the value Return would yield, or the top-of-stack (0 if empty) if no
// Return instruction was reached.
func (m *VirtualMachine) Execute(instructions []ir.Instruction) (int64, error) {
	m.stack = m.stack[:0]
	m.frames = m.frames[:0]
	result, _, err := m.run(instructions, nil)
	return result, err
}

// ExecuteProgram starts execution by invoking Main with no arguments
// (spec §4.3). It fails with ErrNoMainFunction if Main is absent.
func (m *VirtualMachine) ExecuteProgram(program *ir.Program) (int64, error) {
	if program == nil {
		return 0, ir.ErrNullProgram
	}
	main, ok := program.GetMainFunction()
	if !ok {
		return 0, ErrNoMainFunction
	}
	m.stack = m.stack[:0]
	m.frames = m.frames[:0]
	m.program = program
	defer func() { m.program = nil }()

	return m.callFunction(main, nil)
}

// callFunction pushes a CallFrame, executes body against a fresh
// evaluation stack, and pops the frame on every exit path — including
// error — per spec §3's CallFrame lifetime invariant.
func (m *VirtualMachine) callFunction(fn Function, args []int64) (int64, error) {
	m.frames = append(m.frames, callFrame{functionName: fn.Name, args: args})
	defer func() { m.frames = m.frames[:len(m.frames)-1] }()

	savedStack := m.stack
	m.stack = nil
	defer func() { m.stack = savedStack }()

	result, _, err := m.run(fn.Body, args)
	return result, err
}

// Function is an alias for ir.Function, used by the VM's call path.
type Function = ir.Function

// run interprets instructions against the VM's current evaluation stack,
// using args as the current frame's arguments for LoadArg. It returns the
// Return-instruction result (or current top-of-stack / 0 at end of
// stream), whether a Return was actually reached, and any error.
func (m *VirtualMachine) run(instructions []ir.Instruction, args []int64) (int64, bool, error) {
	for _, inst := range instructions {
		switch inst.Op {
		case ir.OpLoadImm:
			m.push(inst.Imm)

		case ir.OpLoadArg:
			if int(inst.Arg) >= len(args) {
				return 0, false, fmt.Errorf("%w: index %d, frame has %d argument(s)", ErrArgIndexOutOfRange, inst.Arg, len(args))
			}
			m.push(args[inst.Arg])

		case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv:
			b, err := m.pop()
			if err != nil {
				return 0, false, err
			}
			a, err := m.pop()
			if err != nil {
				return 0, false, err
			}
			switch inst.Op {
			case ir.OpAdd:
				m.push(a + b)
			case ir.OpSub:
				m.push(a - b)
			case ir.OpMul:
				m.push(a * b)
			case ir.OpDiv:
				if b == 0 {
					return 0, false, ErrDivideByZero
				}
				m.push(a / b) // Go's integer division truncates toward zero.
			}

		case ir.OpPrint:
			if len(m.stack) == 0 {
				return 0, false, ErrStackUnderflow
			}
			// Observation only; spec §4.4 leaves the side channel
			// implementation-defined. The stack is left unchanged.

		case ir.OpReturn:
			return m.top(), true, nil

		case ir.OpCall:
			result, err := m.execCall(inst.Callee)
			if err != nil {
				return 0, false, err
			}
			m.push(result)

		default:
			return 0, false, fmt.Errorf("vm: unhandled instruction %v", inst.Op)
		}
	}
	return m.top(), false, nil
}

// execCall implements the Call calling convention (spec §4.3): pop
// exactly callee.Arity() values from the caller's evaluation stack; the
// last popped becomes argument index 0. Push a new CallFrame, recursively
// execute the callee, and return its result for the caller to push.
func (m *VirtualMachine) execCall(name string) (int64, error) {
	if m.program == nil {
		return 0, ErrNoProgramContext
	}
	callee, ok := m.program.GetFunction(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}

	arity := int(callee.Arity())
	if len(m.stack) < arity {
		return 0, fmt.Errorf("%w: %q wants %d argument(s), %d available", ErrInsufficientCallArgs, name, arity, len(m.stack))
	}

	args := make([]int64, arity)
	for i := 0; i < arity; i++ {
		v, err := m.pop()
		if err != nil {
			return 0, err
		}
		// The last popped value is the value pushed first by the
		// caller, which maps to argument index 0 (spec §4.3).
		args[arity-1-i] = v
	}

	return m.callFunction(callee, args)
}
