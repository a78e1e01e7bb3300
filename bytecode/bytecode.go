// Package bytecode implements the compiled-program container format: a
// magic-tagged header describing where the CODE and DATA sections sit in
// the word stream, followed by the words themselves. It is the on-disk
// counterpart to asm.Assemble's in-memory (ops, symbols) pair, built on
// encoding/binary.
package bytecode

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/opcodes-vm/machine/machine"
)

// Magic identifies a bytecode container; a stream is rejected before
// anything else is trusted if it doesn't begin with these bytes.
var Magic = [4]byte{'G', 'V', 'M', 2}

// ErrBadMagic is returned when a stream does not begin with Magic.
var ErrBadMagic = errors.New("bytecode: bad magic bytes")

// Header describes the two sections stored after it: CODE (the encoded op
// stream) and DATA (the interned strings, each length-prefixed, in symbol
// order).
type Header struct {
	CodePtr machine.Word
	CodeLen machine.Word
	DataPtr machine.Word
	DataLen machine.Word
}

// Encode assembles ops and symbols into a self-contained bytecode stream:
// magic, header, code words, then data words (each interned string
// length-prefixed the same way StringManager.AddStr lays it out). Symbols
// turns the decoded DATA section back into the symbol list.
func Encode(ops []machine.Op, symbols []string) ([]byte, error) {
	code := machine.EncodeOps(ops)

	var data []machine.Word
	for _, s := range symbols {
		data = append(data, machine.Word(len(s)))
		for _, b := range []byte(s) {
			data = append(data, machine.Word(b))
		}
	}

	hdr := Header{
		CodePtr: 0,
		CodeLen: machine.Word(len(code)),
		DataPtr: machine.Word(len(code)),
		DataLen: machine.Word(len(data)),
	}

	buf := new(bytes.Buffer)
	buf.Write(Magic[:])
	if err := binary.Write(buf, binary.LittleEndian, hdr); err != nil {
		return nil, errors.Wrap(err, "encoding bytecode header")
	}
	for _, w := range append(code, data...) {
		if err := binary.Write(buf, binary.LittleEndian, w); err != nil {
			return nil, errors.Wrap(err, "encoding bytecode words")
		}
	}

	return buf.Bytes(), nil
}

// Decode parses a bytecode stream back into ops and the raw DATA word
// section. The returned ops' LoadString.Arg fields are still symbol
// indices, exactly as asm.Assemble produced them — Encode never rewrites
// them to addresses, since doing so would fix them to one machine's DATA
// layout. Pass the DATA section through Symbols to recover the ordered
// string list a caller can hand to Machine.Load alongside these ops.
func Decode(r io.Reader) ([]machine.Op, []machine.Word, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, nil, errors.Wrap(err, "reading magic")
	}
	if magic != Magic {
		return nil, nil, ErrBadMagic
	}

	var hdr Header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, nil, errors.Wrap(err, "reading header")
	}

	codeWords := make([]machine.Word, hdr.CodeLen)
	if err := binary.Read(r, binary.LittleEndian, &codeWords); err != nil {
		return nil, nil, errors.Wrap(err, "reading code section")
	}

	dataWords := make([]machine.Word, hdr.DataLen)
	if err := binary.Read(r, binary.LittleEndian, &dataWords); err != nil {
		return nil, nil, errors.Wrap(err, "reading data section")
	}

	ops, err := decodeOps(codeWords)
	if err != nil {
		return nil, nil, err
	}

	return ops, dataWords, nil
}

// decodeOps mirrors Machine.Decode but walks a plain word slice instead of
// live memory, since the bytecode loader runs before any machine exists.
func decodeOps(words []machine.Word) ([]machine.Op, error) {
	var ops []machine.Op
	for i := 0; i < len(words); {
		kind := machine.OpKind(words[i])
		op := machine.Op{Kind: kind}
		width := kind.ImmWidth()

		if i+1+width > len(words) {
			return nil, errors.New("bytecode: truncated instruction")
		}
		if width >= 1 {
			op.Arg = words[i+1]
		}
		if width >= 2 {
			op.Arg2 = words[i+2]
		}

		ops = append(ops, op)
		i += 1 + width
	}
	return ops, nil
}

// HasMagic reports whether buf begins with the bytecode container's magic
// bytes, used by the CLI to sniff source text vs. compiled bytecode.
func HasMagic(buf []byte) bool {
	return len(buf) >= len(Magic) && bytes.Equal(buf[:len(Magic)], Magic[:])
}

// Symbols decodes a DATA section (as returned by Decode) back into the
// ordered symbol strings Encode folded it from: a length word followed by
// that many character words, repeated. A decoded program's LoadString ops
// still carry symbol indices (Encode never rewrites them to addresses), so
// a caller loading a decoded program goes through Machine.Load with these
// symbols exactly as it would with asm.Assemble's output, rather than
// poking the DATA section into memory directly.
func Symbols(data []machine.Word) ([]string, error) {
	var out []string
	for i := 0; i < len(data); {
		length := int(data[i])
		i++
		if i+length > len(data) {
			return nil, errors.New("bytecode: truncated data section")
		}
		raw := make([]byte, length)
		for j := 0; j < length; j++ {
			raw[j] = byte(data[i+j])
		}
		out = append(out, string(raw))
		i += length
	}
	return out, nil
}
