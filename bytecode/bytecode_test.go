package bytecode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opcodes-vm/machine/machine"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ops := []machine.Op{
		{Kind: machine.Push, Arg: 5},
		{Kind: machine.Push, Arg: 10},
		{Kind: machine.Add},
		{Kind: machine.Halt},
	}

	buf, err := Encode(ops, []string{"hi"})
	require.NoError(t, err)
	require.True(t, HasMagic(buf))

	decodedOps, data, err := Decode(bytes.NewReader(buf))
	require.NoError(t, err)
	require.Equal(t, ops, decodedOps)
	require.Equal(t, []machine.Word{2, 'h', 'i'}, data)

	symbols, err := Symbols(data)
	require.NoError(t, err)
	require.Equal(t, []string{"hi"}, symbols)
}

func TestSymbolsRoundTripsMultipleStrings(t *testing.T) {
	ops := []machine.Op{
		{Kind: machine.LoadString, Arg: 0},
		{Kind: machine.LoadString, Arg: 1},
		{Kind: machine.Halt},
	}

	buf, err := Encode(ops, []string{"hello", "world"})
	require.NoError(t, err)

	_, data, err := Decode(bytes.NewReader(buf))
	require.NoError(t, err)

	symbols, err := Symbols(data)
	require.NoError(t, err)
	require.Equal(t, []string{"hello", "world"}, symbols)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, _, err := Decode(bytes.NewReader([]byte("nope")))
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestHasMagicOnShortBuffer(t *testing.T) {
	require.False(t, HasMagic([]byte{1, 2}))
}
