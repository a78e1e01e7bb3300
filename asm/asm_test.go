package asm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opcodes-vm/machine/machine"
)

func TestAssembleArithmetic(t *testing.T) {
	ops, symbols, err := Assemble(`
		push 5
		push 10
		add
		push 3
		sub
		halt
	`)
	require.NoError(t, err)
	require.Empty(t, symbols)
	require.Equal(t, []machine.Op{
		{Kind: machine.Push, Arg: 5},
		{Kind: machine.Push, Arg: 10},
		{Kind: machine.Add},
		{Kind: machine.Push, Arg: 3},
		{Kind: machine.Sub},
		{Kind: machine.Halt},
		{Kind: machine.Eof},
	}, ops)
}

func TestAssembleLabelsAndCallReturn(t *testing.T) {
	ops, _, err := Assemble(`
		call target
		halt
		target:
			push 7
			return
	`)
	require.NoError(t, err)
	require.Equal(t, machine.Word(3), ops[0].Arg, "call should resolve the label to the address after call+halt")
}

func TestAssembleLoadStringInternsSymbol(t *testing.T) {
	ops, symbols, err := Assemble(`loadstring "hi"` + "\n" + `print` + "\n" + `halt`)
	require.NoError(t, err)
	require.Equal(t, []string{"hi"}, symbols)
	require.Equal(t, machine.LoadString, ops[0].Kind)
	require.Equal(t, machine.Word(0), ops[0].Arg, "first interned symbol gets index 0")
}

func TestAssembleSendTakesTwoArgs(t *testing.T) {
	ops, _, err := Assemble("push 6\nsend 1 1\nhalt")
	require.NoError(t, err)
	send := ops[1]
	require.Equal(t, machine.Send, send.Kind)
	require.Equal(t, machine.Word(1), send.Arg)
	require.Equal(t, machine.Word(1), send.Arg2)
}

func TestAssembleUnknownMnemonic(t *testing.T) {
	_, _, err := Assemble("frobnicate 1")
	require.Error(t, err)
}

func TestAssembleMissingArgument(t *testing.T) {
	_, _, err := Assemble("push")
	require.Error(t, err)
}

func TestAssembleHexLiteral(t *testing.T) {
	ops, _, err := Assemble("push 0xAA\nhalt")
	require.NoError(t, err)
	require.Equal(t, machine.Word(0xAA), ops[0].Arg)
}

func TestAssembleAlwaysAppendsEof(t *testing.T) {
	ops, _, err := Assemble("push 1\npush 2\npush 3")
	require.NoError(t, err)
	require.Equal(t, machine.Eof, ops[len(ops)-1].Kind)
}
