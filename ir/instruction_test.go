package ir

import (
	"errors"
	"strings"
	"testing"
)

func TestInstructionValidate(t *testing.T) {
	if err := Call("Step1").Validate(); err != nil {
		t.Errorf("Call(\"Step1\").Validate() = %v, want nil", err)
	}
	if err := Call("").Validate(); !errors.Is(err, ErrEmptyCalleeName) {
		t.Errorf("Call(\"\").Validate() = %v, want ErrEmptyCalleeName", err)
	}
	if err := LoadImm(42).Validate(); err != nil {
		t.Errorf("LoadImm(42).Validate() = %v, want nil", err)
	}
}

func TestFunctionArity(t *testing.T) {
	fn := Function{
		Name:           "Add2",
		ReturnType:     "int",
		ParameterTypes: []ParameterType{"int", "int"},
		Body:           []Instruction{LoadArg(0), LoadArg(1), Add(), Return()},
	}
	if got, want := fn.Arity(), uint32(2); got != want {
		t.Errorf("Arity() = %d, want %d", got, want)
	}
	if err := fn.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestProgramGetFunctionFirstWins(t *testing.T) {
	p := NewProgram(
		Function{Name: "Main", Body: []Instruction{LoadImm(1), Return()}},
		Function{Name: "Main", Body: []Instruction{LoadImm(2), Return()}},
	)
	fn, ok := p.GetFunction("Main")
	if !ok {
		t.Fatal("GetFunction(\"Main\") not found")
	}
	if got, want := fn.Body[0].Imm, int64(1); got != want {
		t.Errorf("first-wins Main body[0].Imm = %d, want %d", got, want)
	}

	main, ok := p.GetMainFunction()
	if !ok || main.Body[0].Imm != 1 {
		t.Errorf("GetMainFunction() did not return the first Main entry")
	}

	if _, ok := p.GetFunction("Nope"); ok {
		t.Error("GetFunction(\"Nope\") unexpectedly found")
	}
}

func TestProgramValidateNil(t *testing.T) {
	var p *Program
	if err := p.Validate(); !errors.Is(err, ErrNullProgram) {
		t.Errorf("nil Program.Validate() = %v, want ErrNullProgram", err)
	}
}

func TestFunctionWriteFlatOutput(t *testing.T) {
	fn := Function{
		Name: "Main",
		Body: []Instruction{
			LoadImm(10), LoadImm(5), Add(), Print(), Return(),
		},
	}
	var sb strings.Builder
	if err := fn.WriteFlat(&sb); err != nil {
		t.Fatal(err)
	}
	want := "load 10\nload 5\nadd\nprint\nret\n"
	if got := sb.String(); got != want {
		t.Errorf("WriteFlat() = %q, want %q", got, want)
	}
}

func TestFunctionWriteFlatRejectsLoadArg(t *testing.T) {
	fn := Function{Body: []Instruction{LoadArg(0), Return()}}
	var sb strings.Builder
	if err := fn.WriteFlat(&sb); err == nil {
		t.Error("WriteFlat() with LoadArg: want error, got nil")
	}
}
