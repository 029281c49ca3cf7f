// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

import (
	"fmt"

	asm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/arm64"

	"github.com/bholmes/SimpleJIT/ir"
)

// Register conventions for the arm64 backend (spec §4.7):
//
//	R8  - base of the VM stack region (SP + the args shadow area, fixed
//	      for the function's lifetime).
//	R9  - VM-top index, kept as a BYTE offset from R8 (not an item
//	      count, unlike the amd64 backend) so push/pop need only a
//	      register-offset addressing mode and never a runtime shift.
//	R0  - accumulator / return register (AAPCS64's result register).
//	R1  - scratch for the second operand of binary ops.
type arm64Backend struct{}

func (arm64Backend) name() string { return "arm64" }

func (b arm64Backend) build(fn ir.Function, redZoneSize int) ([]byte, error) {
	builder, err := asm.NewBuilder("arm64", 64)
	if err != nil {
		return nil, fmt.Errorf("jit: arm64 builder: %w", err)
	}

	const linkAreaSize = 16 // saved (FP, LR) pair
	argsAreaSize := int64(8 * fn.Arity())
	if argsAreaSize == 0 {
		argsAreaSize = 8
	}
	reserve := int64(redZoneSize) + argsAreaSize + linkAreaSize
	reserve = (reserve + 15) &^ 15 // AArch64 requires SP to stay 16-byte aligned.
	fpSlot := int64(redZoneSize) + argsAreaSize
	lrSlot := fpSlot + 8

	const (
		stackBase = arm64.REG_R8
		idx       = arm64.REG_R9
		acc       = arm64.REG_R0
		operand   = arm64.REG_R1
	)

	// Prologue: reserve the frame, save the caller's (FP, LR) pair (spec
	// §4.7), materialize the VM stack's base address once (SP +
	// argsAreaSize), zero the VM-top index.
	arm64RegImmToReg(builder, arm64.ASUB, arm64.REGSP, reserve, arm64.REGSP)
	arm64StoreMem(builder, arm64.REGSP, fpSlot, arm64.REG_R29)
	arm64StoreMem(builder, arm64.REGSP, lrSlot, arm64.REG_R30)
	arm64RegImmToReg(builder, arm64.AADD, arm64.REGSP, reserve, arm64.REG_R29)
	arm64RegImmToReg(builder, arm64.AADD, arm64.REGSP, argsAreaSize, stackBase)
	arm64MovZero(builder, idx)

	for i := uint32(0); i < fn.Arity(); i++ {
		arm64StoreZero(builder, arm64.REGSP, int64(8*i))
	}

	returned := false
	for _, inst := range fn.Body {
		switch inst.Op {
		case ir.OpLoadImm:
			arm64LoadImm(builder, inst.Imm, acc)
			arm64Push(builder, stackBase, idx, acc)

		case ir.OpLoadArg:
			if inst.Arg >= fn.Arity() {
				return nil, fmt.Errorf("%w: LoadArg(%d) in a function of arity %d", ErrUnsupportedInstruction, inst.Arg, fn.Arity())
			}
			arm64LoadMem(builder, arm64.REGSP, int64(8*inst.Arg), acc)
			arm64Push(builder, stackBase, idx, acc)

		case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv:
			arm64Pop(builder, stackBase, idx, operand) // b
			arm64Pop(builder, stackBase, idx, acc)     // a
			switch inst.Op {
			case ir.OpAdd:
				arm64RegRegToReg(builder, arm64.AADD, operand, acc, acc)
			case ir.OpSub:
				arm64RegRegToReg(builder, arm64.ASUB, operand, acc, acc)
			case ir.OpMul:
				arm64RegRegToReg(builder, arm64.AMUL, operand, acc, acc)
			case ir.OpDiv:
				arm64RegRegToReg(builder, arm64.ASDIV, operand, acc, acc)
			}
			arm64Push(builder, stackBase, idx, acc)

		case ir.OpPrint:
			// Observation only; no native effect (spec §4.7, §9).

		case ir.OpReturn:
			arm64Epilogue(builder, stackBase, idx, acc, reserve, fpSlot, lrSlot)
			returned = true

		case ir.OpCall:
			return nil, fmt.Errorf("%w: Call", ErrUnsupportedInstruction)

		default:
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedInstruction, inst.Op)
		}
		if returned {
			break
		}
	}
	if !returned {
		arm64Epilogue(builder, stackBase, idx, acc, reserve, fpSlot, lrSlot)
	}

	return builder.Assemble(), nil
}

// arm64Push stores src at [stackBase+idx] and advances idx by 8 bytes.
func arm64Push(builder *asm.Builder, stackBase, idx, src int16) {
	arm64StoreIndexed(builder, stackBase, idx, src)
	arm64RegImmToReg(builder, arm64.AADD, idx, 8, idx)
}

// arm64Pop retreats idx by 8 bytes and loads [stackBase+idx] into dst.
func arm64Pop(builder *asm.Builder, stackBase, idx, dst int16) {
	arm64RegImmToReg(builder, arm64.ASUB, idx, 8, idx)
	arm64LoadIndexed(builder, stackBase, idx, dst)
}

// arm64Epilogue implements spec §4.7's epilogue: if idx > 0, the top of
// the VM stack is loaded into acc; otherwise acc is zeroed. idx is only known at runtime, so -- exactly as amd64Epilogue --
// this emits one conditional branch to realize the epilogue's own "if",
// not bytecode control flow.
func arm64Epilogue(builder *asm.Builder, stackBase, idx, acc int16, reserve, fpSlot, lrSlot int64) {
	arm64CmpImm(builder, idx, 0)
	jumpIfZero := arm64Branch(builder, arm64.ABEQ)

	arm64RegImmToReg(builder, arm64.ASUB, idx, 8, idx) // idx is dead after the epilogue.
	arm64LoadIndexed(builder, stackBase, idx, acc)
	jumpToDone := arm64Branch(builder, arm64.AB)

	zeroCase := arm64MovZero(builder, acc)
	jumpIfZero.Pcond = zeroCase

	done := arm64LoadMem(builder, arm64.REGSP, fpSlot, arm64.REG_R29)
	jumpToDone.Pcond = done
	arm64LoadMem(builder, arm64.REGSP, lrSlot, arm64.REG_R30)
	arm64RegImmToReg(builder, arm64.AADD, arm64.REGSP, reserve, arm64.REGSP)

	emitArm64(builder, obj.ARET, obj.Addr{})
}

func arm64Branch(builder *asm.Builder, as obj.As) *obj.Prog {
	prog := builder.NewProg()
	prog.As = as
	prog.To.Type = obj.TYPE_BRANCH
	builder.AddInstruction(prog)
	return prog
}

// arm64LoadImm materializes v into dst. golang-asm's arm64 assembler
// expands immediates wider than 16 bits into the necessary MOVZ/MOVK
// sequence automatically when given a single MOVD with a TYPE_CONST
// operand (grounded on tetratelabs/wazero's
// internal/asm/arm64/golang_asm.go CompileConstToRegister, which relies
// on the same expansion and notes it explicitly).
func arm64LoadImm(builder *asm.Builder, v int64, dst int16) {
	prog := builder.NewProg()
	prog.As = arm64.AMOVD
	if v == 0 {
		prog.From.Type = obj.TYPE_REG
		prog.From.Reg = arm64.REGZERO
	} else {
		prog.From.Type = obj.TYPE_CONST
		prog.From.Offset = v
	}
	prog.To.Type = obj.TYPE_REG
	prog.To.Reg = dst
	builder.AddInstruction(prog)
}

// arm64MovZero is arm64LoadImm(builder, 0, dst) with the created Prog
// returned, for use as a branch target.
func arm64MovZero(builder *asm.Builder, dst int16) *obj.Prog {
	prog := builder.NewProg()
	prog.As = arm64.AMOVD
	prog.From.Type = obj.TYPE_REG
	prog.From.Reg = arm64.REGZERO
	prog.To.Type = obj.TYPE_REG
	prog.To.Reg = dst
	builder.AddInstruction(prog)
	return prog
}

func arm64StoreZero(builder *asm.Builder, base int16, offset int64) {
	prog := builder.NewProg()
	prog.As = arm64.AMOVD
	prog.From.Type = obj.TYPE_REG
	prog.From.Reg = arm64.REGZERO
	prog.To.Type = obj.TYPE_MEM
	prog.To.Reg = base
	prog.To.Offset = offset
	builder.AddInstruction(prog)
}

func arm64LoadMem(builder *asm.Builder, base int16, offset int64, dst int16) *obj.Prog {
	prog := builder.NewProg()
	prog.As = arm64.AMOVD
	prog.From.Type = obj.TYPE_MEM
	prog.From.Reg = base
	prog.From.Offset = offset
	prog.To.Type = obj.TYPE_REG
	prog.To.Reg = dst
	builder.AddInstruction(prog)
	return prog
}

func arm64StoreMem(builder *asm.Builder, base int16, offset int64, src int16) {
	prog := builder.NewProg()
	prog.As = arm64.AMOVD
	prog.From.Type = obj.TYPE_REG
	prog.From.Reg = src
	prog.To.Type = obj.TYPE_MEM
	prog.To.Reg = base
	prog.To.Offset = offset
	builder.AddInstruction(prog)
}

// arm64StoreIndexed stores src at [base + index], a plain register-offset
// addressing mode (scale 1), matching tetratelabs/wazero's
// CompileRegisterToMemoryWithRegisterOffset.
func arm64StoreIndexed(builder *asm.Builder, base, index, src int16) {
	prog := builder.NewProg()
	prog.As = arm64.AMOVD
	prog.From.Type = obj.TYPE_REG
	prog.From.Reg = src
	prog.To.Type = obj.TYPE_MEM
	prog.To.Reg = base
	prog.To.Index = index
	prog.To.Scale = 1
	builder.AddInstruction(prog)
}

func arm64LoadIndexed(builder *asm.Builder, base, index, dst int16) {
	prog := builder.NewProg()
	prog.As = arm64.AMOVD
	prog.From.Type = obj.TYPE_MEM
	prog.From.Reg = base
	prog.From.Index = index
	prog.From.Scale = 1
	prog.To.Type = obj.TYPE_REG
	prog.To.Reg = dst
	builder.AddInstruction(prog)
}

// arm64RegImmToReg emits the three-operand form `<as> $imm, src, dst`
// (dst = src <op> imm), matching the Reg/From/To split tetratelabs/wazero
// uses throughout internal/asm/arm64/golang_asm.go for data-processing
// instructions with one immediate and one register source.
func arm64RegImmToReg(builder *asm.Builder, as obj.As, src int16, imm int64, dst int16) *obj.Prog {
	prog := builder.NewProg()
	prog.As = as
	prog.From.Type = obj.TYPE_CONST
	prog.From.Offset = imm
	prog.Reg = src
	prog.To.Type = obj.TYPE_REG
	prog.To.Reg = dst
	builder.AddInstruction(prog)
	return prog
}

// arm64RegRegToReg emits the three-operand register form `<as> from, reg, to`
// (to = reg <op> from), matching CompileTwoRegistersToRegister.
func arm64RegRegToReg(builder *asm.Builder, as obj.As, from, reg, to int16) {
	prog := builder.NewProg()
	prog.As = as
	prog.From.Type = obj.TYPE_REG
	prog.From.Reg = from
	prog.Reg = reg
	prog.To.Type = obj.TYPE_REG
	prog.To.Reg = to
	builder.AddInstruction(prog)
}

// arm64CmpImm emits `CMP $imm, reg`, matching
// CompileRegisterAndConstSourceToNone.
func arm64CmpImm(builder *asm.Builder, reg int16, imm int64) {
	prog := builder.NewProg()
	prog.As = arm64.ACMP
	prog.From.Type = obj.TYPE_CONST
	prog.From.Offset = imm
	prog.Reg = reg
	prog.To.Type = obj.TYPE_NONE
	builder.AddInstruction(prog)
}

func emitArm64(builder *asm.Builder, as obj.As, to obj.Addr) {
	prog := builder.NewProg()
	prog.As = as
	prog.To = to
	builder.AddInstruction(prog)
}
