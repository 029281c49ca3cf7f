package vm

import (
	"errors"
	"strconv"
	"testing"

	"github.com/bholmes/SimpleJIT/ir"
)

func TestExecuteAddSubMulDiv(t *testing.T) {
	m := New()
	got, err := m.Execute([]ir.Instruction{
		ir.LoadImm(100), ir.LoadImm(50), ir.Sub(),
		ir.LoadImm(3), ir.Div(),
		ir.LoadImm(4), ir.Mul(),
		ir.Return(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(64); got != want {
		t.Errorf("Execute() = %d, want %d", got, want)
	}
}

func TestExecuteSimpleAdd(t *testing.T) {
	m := New()
	got, err := m.Execute([]ir.Instruction{ir.LoadImm(10), ir.LoadImm(5), ir.Add(), ir.Return()})
	if err != nil {
		t.Fatal(err)
	}
	if got != 15 {
		t.Errorf("Execute() = %d, want 15", got)
	}
}

func TestExecutePrintIsTransparent(t *testing.T) {
	m := New()
	got, err := m.Execute([]ir.Instruction{
		ir.LoadImm(15), ir.LoadImm(3), ir.Sub(),
		ir.LoadImm(2), ir.Mul(),
		ir.LoadImm(4), ir.Div(),
		ir.Print(),
		ir.Return(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(6); got != want {
		t.Errorf("Execute() = %d, want %d", got, want)
	}
}

func TestExecuteDivideByZeroLeavesStackEmpty(t *testing.T) {
	m := New()
	_, err := m.Execute([]ir.Instruction{ir.LoadImm(10), ir.LoadImm(0), ir.Div()})
	if !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("Execute() err = %v, want ErrDivideByZero", err)
	}
	if len(m.stack) != 0 {
		t.Errorf("stack after DivideByZero = %v, want empty", m.stack)
	}
}

func TestExecuteEmptyInstructionList(t *testing.T) {
	m := New()
	got, err := m.Execute(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("Execute(nil) = %d, want 0", got)
	}
}

func TestExecuteStackUnderflowOnEachOp(t *testing.T) {
	for _, tc := range []struct {
		name string
		inst ir.Instruction
	}{
		{"Add", ir.Add()},
		{"Sub", ir.Sub()},
		{"Mul", ir.Mul()},
		{"Div", ir.Div()},
		{"Print", ir.Print()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := New()
			_, err := m.Execute([]ir.Instruction{tc.inst})
			if !errors.Is(err, ErrStackUnderflow) {
				t.Errorf("Execute([%s]) err = %v, want ErrStackUnderflow", tc.name, err)
			}
		})
	}
}

func TestExecuteArithmeticWraps(t *testing.T) {
	m := New()
	got, err := m.Execute([]ir.Instruction{
		ir.LoadImm(int64(^uint64(0) >> 1)), // math.MaxInt64
		ir.LoadImm(1),
		ir.Add(),
		ir.Return(),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := int64(-1) << 63 // math.MinInt64, via two's-complement wraparound
	if got != want {
		t.Errorf("Execute() = %d, want %d (wraparound)", got, want)
	}
}

func TestExecuteLoadImmBoundaryValues(t *testing.T) {
	cases := []int64{9223372036854775807, -9223372036854775808, 0, -1}
	for _, v := range cases {
		m := New()
		got, err := m.Execute([]ir.Instruction{ir.LoadImm(v), ir.Return()})
		if err != nil {
			t.Fatal(err)
		}
		if got != v {
			t.Errorf("Execute(LoadImm(%d)) = %d, want %d", v, got, v)
		}
	}
}

func TestExecuteProgramNoMain(t *testing.T) {
	m := New()
	p := ir.NewProgram(ir.Function{Name: "NotMain", Body: []ir.Instruction{ir.Return()}})
	_, err := m.ExecuteProgram(p)
	if !errors.Is(err, ErrNoMainFunction) {
		t.Errorf("ExecuteProgram() err = %v, want ErrNoMainFunction", err)
	}
}

func TestExecuteProgramSingleCall(t *testing.T) {
	// Main(){ LoadImm 10; LoadImm 5; Call Step1; LoadImm 2; Mul; Return }
	// Step1(int,int){ LoadArg 0; LoadArg 1; Add; Return }
	p := ir.NewProgram(
		ir.Function{
			Name: "Main",
			Body: []ir.Instruction{
				ir.LoadImm(10), ir.LoadImm(5), ir.Call("Step1"),
				ir.LoadImm(2), ir.Mul(), ir.Return(),
			},
		},
		ir.Function{
			Name:           "Step1",
			ParameterTypes: []ir.ParameterType{"int", "int"},
			Body:           []ir.Instruction{ir.LoadArg(0), ir.LoadArg(1), ir.Add(), ir.Return()},
		},
	)
	m := New()
	got, err := m.ExecuteProgram(p)
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(30); got != want {
		t.Errorf("ExecuteProgram() = %d, want %d", got, want)
	}
	if depth := m.CallDepth(); depth != 0 {
		t.Errorf("CallDepth() after return = %d, want 0", depth)
	}
}

func TestExecuteProgramNestedCalls(t *testing.T) {
	// Main(){ LoadImm 6; LoadImm 4; Call Mul2; Return }
	// Mul2(int,int){ LoadArg 0; LoadArg 1; Call Add2; LoadArg 0; Mul; Return }
	// Add2(int,int){ LoadArg 0; LoadArg 1; Add; Return }
	p := ir.NewProgram(
		ir.Function{
			Name: "Main",
			Body: []ir.Instruction{ir.LoadImm(6), ir.LoadImm(4), ir.Call("Mul2"), ir.Return()},
		},
		ir.Function{
			Name:           "Mul2",
			ParameterTypes: []ir.ParameterType{"int", "int"},
			Body: []ir.Instruction{
				ir.LoadArg(0), ir.LoadArg(1), ir.Call("Add2"),
				ir.LoadArg(0), ir.Mul(), ir.Return(),
			},
		},
		ir.Function{
			Name:           "Add2",
			ParameterTypes: []ir.ParameterType{"int", "int"},
			Body:           []ir.Instruction{ir.LoadArg(0), ir.LoadArg(1), ir.Add(), ir.Return()},
		},
	)
	m := New()
	got, err := m.ExecuteProgram(p)
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(60); got != want { // (6+4)*6
		t.Errorf("ExecuteProgram() = %d, want %d", got, want)
	}
}

func TestExecuteProgramUnknownFunction(t *testing.T) {
	p := ir.NewProgram(ir.Function{
		Name: "Main",
		Body: []ir.Instruction{ir.Call("Nope"), ir.Return()},
	})
	m := New()
	_, err := m.ExecuteProgram(p)
	if !errors.Is(err, ErrUnknownFunction) {
		t.Errorf("ExecuteProgram() err = %v, want ErrUnknownFunction", err)
	}
}

func TestExecuteCallOutsideProgramContext(t *testing.T) {
	m := New()
	_, err := m.Execute([]ir.Instruction{ir.Call("Anything")})
	if !errors.Is(err, ErrNoProgramContext) {
		t.Errorf("Execute([Call]) err = %v, want ErrNoProgramContext", err)
	}
}

func TestExecuteArgIndexOutOfRange(t *testing.T) {
	p := ir.NewProgram(
		ir.Function{Name: "Main", Body: []ir.Instruction{ir.LoadImm(7), ir.Call("One")}},
		ir.Function{Name: "One", ParameterTypes: []ir.ParameterType{"int"}, Body: []ir.Instruction{ir.LoadArg(1), ir.Return()}},
	)
	m := New()
	_, err := m.ExecuteProgram(p)
	if !errors.Is(err, ErrArgIndexOutOfRange) {
		t.Errorf("ExecuteProgram() err = %v, want ErrArgIndexOutOfRange", err)
	}
}

func TestExecuteProgramDeeplyNestedCalls(t *testing.T) {
	const depth = 50
	fns := []ir.Function{{
		Name: "Main",
		Body: []ir.Instruction{ir.LoadImm(1), ir.Call("Level0"), ir.Return()},
	}}
	for i := 0; i < depth; i++ {
		name := levelName(i)
		next := levelName(i + 1)
		body := []ir.Instruction{ir.LoadArg(0), ir.LoadImm(1), ir.Add()}
		if i == depth-1 {
			body = append(body, ir.Return())
		} else {
			body = append(body, ir.Call(next), ir.Return())
		}
		fns = append(fns, ir.Function{Name: name, ParameterTypes: []ir.ParameterType{"int"}, Body: body})
	}
	p := ir.NewProgram(fns...)
	m := New()
	got, err := m.ExecuteProgram(p)
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(1 + depth); got != want {
		t.Errorf("ExecuteProgram() = %d, want %d", got, want)
	}
}

func levelName(i int) string {
	return "Level" + strconv.Itoa(i)
}
