package machine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusHaltedAfterHalt(t *testing.T) {
	m := New()
	require.NoError(t, m.LoadCode([]Op{{Kind: Push, Arg: 1}, {Kind: Halt}}))
	require.NoError(t, m.Run())
	require.Equal(t, Halted, m.Status())
}

func TestStatusRunningMidProgram(t *testing.T) {
	m := New()
	require.NoError(t, m.LoadCode([]Op{{Kind: Push, Arg: 1}, {Kind: Push, Arg: 2}, {Kind: Halt}}))
	require.NoError(t, m.Tick())
	require.Equal(t, Running, m.Status())
}

func TestStatusErroredAfterRuntimeError(t *testing.T) {
	m := New()
	require.NoError(t, m.LoadCode([]Op{{Kind: Pop}, {Kind: Halt}}))
	require.Error(t, m.Run())
	require.Equal(t, Errored, m.Status())
}

func TestStatusWaitingWhenExpectingReceive(t *testing.T) {
	m := New()
	require.NoError(t, m.LoadCode([]Op{{Kind: Receive}, {Kind: Halt}}))
	require.NoError(t, m.Tick())
	require.Equal(t, Word(1), m.ExpectedReceives)
	require.Equal(t, Waiting, m.Status())

	m.Inbox = append(m.Inbox, Message{From: 1, To: 2})
	require.Equal(t, Halted, m.Status(), "status is Halted once the inbox has a message and PC sits on halt")
}

func TestStatusLoadedBeforeReady(t *testing.T) {
	m := New()
	require.NoError(t, m.LoadCode([]Op{{Kind: Push, Arg: 1}, {Kind: Halt}}))
	require.Equal(t, Loaded, m.Status(), "status is Loaded until PartialReset (Router.Ready) marks the machine ready")
}

func TestStatusReadyAfterPartialResetBeforeFirstTick(t *testing.T) {
	m := New()
	require.NoError(t, m.LoadCode([]Op{{Kind: Push, Arg: 1}, {Kind: Push, Arg: 2}, {Kind: Halt}}))
	m.PartialReset()
	require.Equal(t, Ready, m.Status(), "status is Ready once PartialReset has run but no tick has executed yet")

	require.NoError(t, m.Tick())
	require.Equal(t, Running, m.Status(), "the first tick moves a Ready machine to Running")
}

func TestDecodeUnknownOpcode(t *testing.T) {
	m := New()
	require.NoError(t, m.Mem.LoadCode([]Word{0xBEEF}))
	_, err := m.Decode()
	require.ErrorIs(t, err, ErrUnknownOpcode)
}

func TestDecodeReadsInlineArgs(t *testing.T) {
	m := New()
	require.NoError(t, m.LoadCode([]Op{{Kind: Send, Arg: 3, Arg2: 7}}))
	op, err := m.Decode()
	require.NoError(t, err)
	require.Equal(t, Send, op.Kind)
	require.Equal(t, Word(3), op.Arg)
	require.Equal(t, Word(7), op.Arg2)
}

func TestPartialResetPreservesCodeAndData(t *testing.T) {
	m := New()
	addr, err := m.Mem.String().AddStr("keep")
	require.NoError(t, err)
	require.NoError(t, m.LoadCode([]Op{{Kind: LoadString, Arg: addr}, {Kind: Halt}}))
	require.NoError(t, m.Run())

	m.PartialReset()
	require.Equal(t, Word(0), m.Reg.Get(PC))
	require.Equal(t, StackStart, m.Reg.Get(SP))

	bytes, err := m.Mem.String().GetStrBytes(addr)
	require.NoError(t, err)
	text, err := m.Mem.String().GetStrFromBytes(bytes)
	require.NoError(t, err)
	require.Equal(t, "keep", text, "data region survives a partial reset")
}

func TestFullResetClearsData(t *testing.T) {
	m := New()
	_, err := m.Mem.String().AddStr("gone")
	require.NoError(t, err)

	m.FullReset()
	require.Equal(t, DataStart, m.Mem.dataCursor)
}
