package router

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opcodes-vm/machine/machine"
)

func TestSendAndReceive(t *testing.T) {
	src1 := `
		push 10
		push 20
		add
		send 1 1
	`
	src2 := `
		push 6
		receive
		mul
	`

	r := New()
	r.Add()
	r.Add()

	require.NoError(t, r.Load(0, src1))
	require.NoError(t, r.Load(1, src2))
	require.NoError(t, r.Run())

	m1, err := r.Get(1)
	require.NoError(t, err)
	require.Equal(t, machine.Word(180), m1.Stack().Peek())
	require.Equal(t, machine.Halted, r.Statuses()[1], "machine must be halted after message is received")
}

func TestReceiveOnly(t *testing.T) {
	src1 := `
		push 10
		push 20
		add
		send 1 1
	`

	r := New()
	r.Add()
	r.Add()

	require.NoError(t, r.Load(0, src1))
	require.NoError(t, r.Load(1, "receive"))
	require.NoError(t, r.Run())

	m1, err := r.Get(1)
	require.NoError(t, err)
	require.Equal(t, machine.Word(30), m1.Stack().Peek())
	require.Equal(t, machine.Halted, r.Statuses()[1], "machine must be halted after message is received")
}

func TestStepping(t *testing.T) {
	src1 := `
		push 0xAA
		push 0xBB
		push 0xCC
	`

	r := New()
	r.Add()

	require.NoError(t, r.Load(0, src1))
	r.Ready()

	require.NoError(t, r.Step())
	require.NoError(t, r.Step())
	require.Equal(t, machine.Running, r.Statuses()[0])

	require.NoError(t, r.Step())
	require.Equal(t, machine.Halted, r.Statuses()[0])
}

func TestStatusProgressesLoadedReadyRunningHalted(t *testing.T) {
	r := New()
	r.Add()
	require.NoError(t, r.Load(0, "push 1\npush 2\nhalt"))
	require.Equal(t, machine.Loaded, r.Statuses()[0], "a loaded-but-not-readied machine reports Loaded")

	r.Ready()
	require.Equal(t, machine.Ready, r.Statuses()[0], "Ready() moves a loaded machine to Ready before any step runs")

	require.NoError(t, r.Step())
	require.Equal(t, machine.Running, r.Statuses()[0])

	require.NoError(t, r.Step())
	require.NoError(t, r.Step())
	require.Equal(t, machine.Halted, r.Statuses()[0])
}

func TestPrintFuncReceivesPrintedText(t *testing.T) {
	src := `
		push 0
		push 104
		push 105
		print
		halt
	`

	r := New()
	r.Add()
	require.NoError(t, r.Load(0, src))

	var got []string
	r.PrintFunc = func(id machine.Word, text string) {
		got = append(got, text)
	}

	require.NoError(t, r.Run())
	require.Equal(t, []string{"hi"}, got)
}

func TestDeadlockWhenMessageNeverArrives(t *testing.T) {
	r := New()
	r.Add()

	require.NoError(t, r.Load(0, "receive\nhalt"))
	require.ErrorIs(t, r.Run(), ErrDeadlock)
}

func TestUnknownMachineID(t *testing.T) {
	r := New()
	_, err := r.Get(99)
	require.ErrorIs(t, err, ErrNoMachine)
}
