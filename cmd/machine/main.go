// Command machine runs stack-machine programs, either standalone or as a
// cooperative multi-machine router session. Debug traces and the final
// status summary are rendered with fatih/color and olekukonko/tablewriter.
package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/opcodes-vm/machine/asm"
	"github.com/opcodes-vm/machine/bytecode"
	"github.com/opcodes-vm/machine/machine"
	"github.com/opcodes-vm/machine/router"
)

func main() {
	app := &cli.App{
		Name:  "machine",
		Usage: "run stack-machine programs, standalone or under the router",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "trace each decoded instruction before it executes"},
			&cli.StringSliceFlag{Name: "router", Usage: "additional source or bytecode file to load as another cooperating machine"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		color.Red("%s", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return cli.Exit("usage: machine [--debug] [--router file]... <path>", 2)
	}

	paths := append([]string{ctx.Args().First()}, ctx.StringSlice("router")...)
	debugMode := ctx.Bool("debug")

	r := router.New()
	r.PrintFunc = func(id machine.Word, text string) {
		fmt.Println(text)
	}
	ids := make([]machine.Word, 0, len(paths))
	for _, path := range paths {
		id := r.Add()
		ids = append(ids, id)

		ops, symbols, err := loadProgram(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("%s: %s", path, err), 1)
		}
		if err := r.LoadProgram(id, ops, symbols); err != nil {
			return cli.Exit(fmt.Sprintf("%s: %s", path, err), 1)
		}

		if debugMode {
			m, _ := r.Get(id)
			m.IsDebug = true
			m.Trace = traceFunc(id, m)
		}
	}

	if err := r.Run(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	printStatuses(r, ids)

	for _, id := range ids {
		m, _ := r.Get(id)
		if m.Errored() {
			return cli.Exit(fmt.Sprintf("machine %d errored", id), 1)
		}
	}
	return nil
}

// loadProgram sniffs a file's content and dispatches to the bytecode
// container reader or the source assembler accordingly.
func loadProgram(path string) ([]machine.Op, []string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	if bytecode.HasMagic(buf) {
		ops, data, err := bytecode.Decode(bytes.NewReader(buf))
		if err != nil {
			return nil, nil, err
		}
		symbols, err := bytecode.Symbols(data)
		if err != nil {
			return nil, nil, err
		}
		return ops, symbols, nil
	}

	return asm.Assemble(string(buf))
}

// traceFunc builds a per-machine instruction trace callback: one line per
// decoded instruction plus the top few data-stack words, so a --debug run
// shows both what's about to execute and what it's about to execute
// against.
func traceFunc(id machine.Word, m *machine.Machine) func(pc machine.Word, op machine.Op) {
	return func(pc machine.Word, op machine.Op) {
		top := m.Mem.ReadStack(m.Reg.Get(machine.SP), 4)
		color.Cyan("[%d] %04x  %-24s stack=%v", id, pc, op, top)
	}
}

func printStatuses(r *router.Router, ids []machine.Word) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"machine", "status", "top of stack"})
	for _, id := range ids {
		m, err := r.Get(id)
		if err != nil {
			continue
		}
		table.Append([]string{
			fmt.Sprintf("%d", id),
			m.Status().String(),
			fmt.Sprintf("%d", m.Stack().Peek()),
		})
	}
	table.Render()
}
