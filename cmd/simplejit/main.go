// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command simplejit is a small driver around the jit/vm/parse packages.
// It is explicitly out of the core's contract (spec §1 "Out of scope"),
// shipped only because every teacher-adjacent repo in the pack ships a
// CLI front end for its library.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/bholmes/SimpleJIT/ir"
	"github.com/bholmes/SimpleJIT/jit"
	"github.com/bholmes/SimpleJIT/parse"
	"github.com/bholmes/SimpleJIT/vm"
)

func main() {
	app := &cli.Command{
		Name:  "simplejit",
		Usage: "parse, interpret, and JIT-compile the simplejit instruction set",
		Commands: []*cli.Command{
			runCommand,
			callCommand,
			replCommand,
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "simplejit: %v\n", err)
		os.Exit(1)
	}
}

// engineFlag is shared by run, call and repl: without it the driver asks
// for native compilation with automatic fallback to the VM when the JIT
// declines (spec §4.5 rule 3, an absent artifact); --vm forces
// interpretation.
var engineFlag = &cli.BoolFlag{
	Name:  "vm",
	Usage: "force interpretation on the stack VM instead of JIT compilation",
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "parse a flat-grammar file and execute its Main function",
	ArgsUsage: "<file>",
	Flags:     []cli.Flag{engineFlag},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		path := cmd.Args().First()
		if path == "" {
			return fmt.Errorf("run requires a file argument")
		}
		program, err := parse.ParseFlat(path)
		if err != nil {
			return err
		}
		return executeAndPrint(program, cmd.Bool("vm"))
	},
}

var callCommand = &cli.Command{
	Name:      "call",
	Usage:     "parse a function-block file and execute its Main function",
	ArgsUsage: "<file>",
	Flags:     []cli.Flag{engineFlag},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		path := cmd.Args().First()
		if path == "" {
			return fmt.Errorf("call requires a file argument")
		}
		program, err := parse.ParseProgram(path)
		if err != nil {
			return err
		}
		return executeAndPrint(program, cmd.Bool("vm"))
	},
}

// executeAndPrint runs program's Main function, preferring the JIT unless
// forceVM is set or the JIT declines (nil artifact), and prints the
// result the same way across both engines so the two are interchangeable
// from the caller's perspective (spec §8's cross-engine agreement
// property).
func executeAndPrint(program *ir.Program, forceVM bool) error {
	result, engine, err := executeProgram(program, forceVM)
	if err != nil {
		return err
	}
	fmt.Printf("%d (%s)\n", result, engine)
	return nil
}

func executeProgram(program *ir.Program, forceVM bool) (int64, string, error) {
	if !forceVM {
		compiled, err := jit.CompileProgram(program, jit.Config{})
		if err != nil {
			return 0, "", err
		}
		if compiled != nil {
			defer compiled.Release()
			return compiled.Invoke(), "jit", nil
		}
	}

	machine := vm.New()
	result, err := machine.ExecuteProgram(program)
	if err != nil {
		return 0, "", err
	}
	return result, "vm", nil
}
