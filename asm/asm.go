// Package asm implements the line-oriented source assembler: the external,
// non-core interface that turns mnemonic text into a machine.Op sequence
// plus an interned string table, ready for Machine.Load. It works in two
// passes: strip comments and whitespace and resolve labels, then parse
// each line's mnemonic and arguments.
package asm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/opcodes-vm/machine/machine"
)

var commentPattern = regexp.MustCompile(`//.*`)

var mnemonics = map[string]machine.OpKind{
	"noop":       machine.Noop,
	"halt":       machine.Halt,
	"eof":        machine.Eof,
	"jump":       machine.Jump,
	"jz":         machine.JumpZero,
	"jnz":        machine.JumpNotZero,
	"call":       machine.Call,
	"return":     machine.Return,
	"push":       machine.Push,
	"pop":        machine.Pop,
	"dup":        machine.Dup,
	"swap":       machine.Swap,
	"over":       machine.Over,
	"load":       machine.Load,
	"store":      machine.Store,
	"loadstring": machine.LoadString,
	"add":        machine.Add,
	"sub":        machine.Sub,
	"mul":        machine.Mul,
	"div":        machine.Div,
	"inc":        machine.Inc,
	"dec":        machine.Dec,
	"eq":         machine.Equal,
	"neq":        machine.NotEqual,
	"lt":         machine.LessThan,
	"lte":        machine.LessThanOrEqual,
	"gt":         machine.GreaterThan,
	"gte":        machine.GreaterThanOrEqual,
	"print":      machine.Print,
	"send":       machine.Send,
	"receive":    machine.Receive,
	"memorymap":  machine.MemoryMap,
}

// entry is one non-label source line, captured before label addresses are
// known.
type entry struct {
	kind     machine.OpKind
	args     []string
	lineNo   int
	sourceLn string
}

// Assemble turns line-oriented source text into an Op sequence and an
// interned string table. A trailing Eof is always appended, so that a
// program with no explicit halt still terminates after its last real
// instruction.
func Assemble(source string) ([]machine.Op, []string, error) {
	labels := map[string]machine.Word{}
	entries := make([]entry, 0)
	cursor := machine.Word(0)

	for lineNo, raw := range strings.Split(source, "\n") {
		line := commentPattern.ReplaceAllString(raw, "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasSuffix(line, ":") {
			name := strings.TrimSuffix(line, ":")
			if strings.ContainsAny(name, " \t") {
				return nil, nil, errors.Errorf("line %d: invalid label %q", lineNo+1, line)
			}
			if _, exists := labels[name]; exists {
				return nil, nil, errors.Errorf("line %d: duplicate label %q", lineNo+1, name)
			}
			labels[name] = cursor
			continue
		}

		fields := strings.Fields(line)
		mnemonic := strings.ToLower(fields[0])
		kind, ok := mnemonics[mnemonic]
		if !ok {
			return nil, nil, errors.Errorf("line %d: unknown mnemonic %q", lineNo+1, fields[0])
		}

		args := fields[1:]
		// a quoted string literal counts as one argument even with spaces
		// inside it; loadstring is the only mnemonic that takes one.
		if kind == machine.LoadString {
			rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
			args = []string{rest}
		}

		entries = append(entries, entry{kind: kind, args: args, lineNo: lineNo + 1, sourceLn: line})
		cursor += Word1(kind)
	}

	var ops []machine.Op
	var symbols []string

	for _, e := range entries {
		op := machine.Op{Kind: e.kind}
		width := e.kind.ImmWidth()

		if len(e.args) < width {
			return nil, nil, errors.Errorf("line %d: %q needs %d argument(s)", e.lineNo, e.sourceLn, width)
		}

		switch {
		case e.kind == machine.LoadString:
			text, err := unquote(e.args[0])
			if err != nil {
				return nil, nil, errors.Wrapf(err, "line %d", e.lineNo)
			}
			op.Arg = machine.Word(len(symbols))
			symbols = append(symbols, text)

		case width == 1:
			v, err := resolveArg(e.args[0], labels)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "line %d", e.lineNo)
			}
			op.Arg = v

		case width == 2:
			to, err := resolveArg(e.args[0], labels)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "line %d", e.lineNo)
			}
			size, err := resolveArg(e.args[1], labels)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "line %d", e.lineNo)
			}
			op.Arg, op.Arg2 = to, size
		}

		ops = append(ops, op)
	}

	ops = append(ops, machine.Op{Kind: machine.Eof})
	return ops, symbols, nil
}

// Word1 is ImmWidth()+1, the total word count an op occupies in CODE.
func Word1(kind machine.OpKind) machine.Word {
	return machine.Word(1 + kind.ImmWidth())
}

func resolveArg(s string, labels map[string]machine.Word) (machine.Word, error) {
	if addr, ok := labels[s]; ok {
		return addr, nil
	}

	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		s = s[2:]
	}
	n, err := strconv.ParseUint(s, base, 16)
	if err != nil {
		return 0, fmt.Errorf("not a label or number: %q", s)
	}
	return machine.Word(n), nil
}

func unquote(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", errors.Errorf("loadstring requires a quoted string, got %q", s)
	}
	return s[1 : len(s)-1], nil
}
