// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v3"

	"github.com/bholmes/SimpleJIT/parse"
)

var replCommand = &cli.Command{
	Name:  "repl",
	Usage: "interactively build and run a flat-grammar function, one line at a time",
	Flags: []cli.Flag{engineFlag},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		return runRepl(cmd.Bool("vm"))
	},
}

// runRepl accumulates flat-grammar lines typed by the user and reruns
// the whole accumulated body after every line, mirroring the one-shot
// `run` command's engine selection. "ret"/"return" terminates the body
// without clearing it, matching the flat grammar's own termination
// instruction; a blank line at the prompt also evaluates the current
// body without adding to it.
func runRepl(forceVM bool) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "simplejit> ",
		HistoryFile: "",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	var lines []string
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, line)
		}

		body := strings.Join(append(append([]string(nil), lines...), "ret"), "\n") + "\n"
		program, err := parse.ParseFlatReader(strings.NewReader(body))
		if err != nil {
			fmt.Println(err)
			continue
		}

		result, engine, err := executeProgram(program, forceVM)
		if err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Printf("=> %d (%s)\n", result, engine)
	}
}
