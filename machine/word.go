// Package machine implements the execution core of a single stack machine:
// the word/memory model, stack and string managers, the decoder, and the
// fetch/decode/execute loop. Multiple machines are driven concurrently by
// the router package, which owns scheduling and message delivery.
package machine

// Word is the universal 16-bit value: stack cells, register values, memory
// cells and addresses are all Words. Arithmetic on Word wraps on overflow
// for free, since Go's uint16 is already modulo-2^16.
type Word uint16

// Memory region bounds. MemorySize is intentionally smaller than the full
// 16-bit address space so that InvalidAddress has real teeth: any Word
// value >= MemorySize addresses outside the machine entirely.
const (
	MemorySize Word = 0x8000

	CodeStart Word = 0x0000
	CodeEnd   Word = 0x2000

	DataStart Word = 0x2000
	DataEnd   Word = 0x3000

	StackStart Word = 0x3000
	StackEnd   Word = 0x5000

	CallStackStart Word = 0x5000
	CallStackEnd   Word = 0x6000
)
