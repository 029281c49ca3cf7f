// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

import (
	"errors"
	"runtime"
	"testing"

	"github.com/bholmes/SimpleJIT/ir"
)

func TestARM64BackendArithmetic(t *testing.T) {
	if runtime.GOARCH != "arm64" {
		t.Skip("requires an arm64 host to execute generated code")
	}

	tests := []struct {
		name string
		body []ir.Instruction
		want int64
	}{
		{"add", []ir.Instruction{ir.LoadImm(3), ir.LoadImm(4), ir.Add(), ir.Return()}, 7},
		{"sub_order", []ir.Instruction{ir.LoadImm(10), ir.LoadImm(4), ir.Sub(), ir.Return()}, 6},
		{"mul", []ir.Instruction{ir.LoadImm(6), ir.LoadImm(7), ir.Mul(), ir.Return()}, 42},
		{"div_truncates", []ir.Instruction{ir.LoadImm(-7), ir.LoadImm(2), ir.Div(), ir.Return()}, -3},
		{"empty_stack_returns_zero", []ir.Instruction{ir.Return()}, 0},
		{"implicit_return", []ir.Instruction{ir.LoadImm(9)}, 9},
		{"large_immediate", []ir.Instruction{ir.LoadImm(1 << 40), ir.Return()}, 1 << 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := ir.Function{Name: "Main", Body: tt.body}
			if got := runNative(t, arm64Backend{}, fn); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestARM64BackendLoadArg(t *testing.T) {
	if runtime.GOARCH != "arm64" {
		t.Skip("requires an arm64 host to execute generated code")
	}

	fn := ir.Function{
		Name:           "f",
		ParameterTypes: []ir.ParameterType{"int", "int"},
		Body:           []ir.Instruction{ir.LoadArg(0), ir.LoadArg(1), ir.Add(), ir.Return()},
	}
	if got, want := runNative(t, arm64Backend{}, fn), int64(0); got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

func TestARM64BackendRejectsOutOfRangeLoadArg(t *testing.T) {
	fn := ir.Function{
		Name:           "f",
		ParameterTypes: []ir.ParameterType{"int"},
		Body:           []ir.Instruction{ir.LoadArg(1), ir.Return()},
	}
	_, err := arm64Backend{}.build(fn, defaultRedZoneSize)
	if !errors.Is(err, ErrUnsupportedInstruction) {
		t.Fatalf("err = %v, want ErrUnsupportedInstruction", err)
	}
}

func TestARM64BackendRejectsCall(t *testing.T) {
	fn := ir.Function{Name: "Main", Body: []ir.Instruction{ir.Call("f"), ir.Return()}}
	_, err := arm64Backend{}.build(fn, defaultRedZoneSize)
	if !errors.Is(err, ErrUnsupportedInstruction) {
		t.Fatalf("err = %v, want ErrUnsupportedInstruction", err)
	}
}
