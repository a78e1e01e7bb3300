package machine

import "fmt"

// OpKind tags the variant of a decoded instruction.
type OpKind uint16

const (
	Noop OpKind = iota
	Halt
	Eof

	Jump
	JumpZero
	JumpNotZero
	Call
	Return

	Push
	Pop
	Dup
	Swap
	Over
	Load
	Store
	LoadString

	Add
	Sub
	Mul
	Div
	Inc
	Dec

	Equal
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual

	Print

	Send
	Receive

	MemoryMap
)

var opNames = map[OpKind]string{
	Noop:               "noop",
	Halt:               "halt",
	Eof:                "eof",
	Jump:               "jump",
	JumpZero:           "jz",
	JumpNotZero:        "jnz",
	Call:               "call",
	Return:             "return",
	Push:               "push",
	Pop:                "pop",
	Dup:                "dup",
	Swap:               "swap",
	Over:               "over",
	Load:               "load",
	Store:              "store",
	LoadString:         "loadstring",
	Add:                "add",
	Sub:                "sub",
	Mul:                "mul",
	Div:                "div",
	Inc:                "inc",
	Dec:                "dec",
	Equal:              "eq",
	NotEqual:           "neq",
	LessThan:           "lt",
	LessThanOrEqual:    "lte",
	GreaterThan:        "gt",
	GreaterThanOrEqual: "gte",
	Print:              "print",
	Send:               "send",
	Receive:            "receive",
	MemoryMap:          "memorymap",
}

func (k OpKind) String() string {
	if s, ok := opNames[k]; ok {
		return s
	}
	return "?unknown?"
}

// ImmWidth returns how many inline argument words follow the opcode word
// for ops of this kind. Every op is one opcode word; Send is the sole
// two-argument op (to, size), the one op whose data model needs both.
func (k OpKind) ImmWidth() int {
	switch k {
	case Push, Jump, JumpZero, JumpNotZero, Call, Load, Store, LoadString:
		return 1
	case Send:
		return 2
	default:
		return 0
	}
}

// Op is a decoded instruction: a kind plus up to two inline argument words.
type Op struct {
	Kind OpKind
	Arg  Word // single-argument ops (Push v, Jump a, Load a, Store a, LoadString a, Call a)
	Arg2 Word // Send's size; Arg holds Send's "to"
}

func (o Op) String() string {
	switch o.Kind.ImmWidth() {
	case 1:
		return fmt.Sprintf("%s %d", o.Kind, o.Arg)
	case 2:
		return fmt.Sprintf("%s %d %d", o.Kind, o.Arg, o.Arg2)
	default:
		return o.Kind.String()
	}
}

// Encode lays out an Op as its inline code words (opcode, then 0-2 args),
// used (via EncodeOps) by Machine.LoadCode and the bytecode container writer.
func (o Op) Encode() []Word {
	switch o.Kind.ImmWidth() {
	case 1:
		return []Word{Word(o.Kind), o.Arg}
	case 2:
		return []Word{Word(o.Kind), o.Arg, o.Arg2}
	default:
		return []Word{Word(o.Kind)}
	}
}

// EncodeOps flattens a sequence of ops into a contiguous code-word stream.
func EncodeOps(ops []Op) []Word {
	words := make([]Word, 0, len(ops)*2)
	for _, op := range ops {
		words = append(words, op.Encode()...)
	}
	return words
}

// Opcode reads the raw opcode tag at PC without decoding arguments. Used by
// ShouldHalt so it doesn't need to fully decode an op just to compare its
// kind against Halt/Eof.
func (m *Machine) Opcode() (OpKind, error) {
	pc := m.Reg.Get(PC)
	raw, err := m.Mem.Get(pc)
	if err != nil {
		return 0, err
	}
	return OpKind(raw), nil
}

// Decode reads the op at PC (opcode word, then its inline arguments) without
// advancing PC.
func (m *Machine) Decode() (Op, error) {
	kind, err := m.Opcode()
	if err != nil {
		return Op{}, err
	}
	if _, ok := opNames[kind]; !ok {
		return Op{}, ErrUnknownOpcode
	}

	op := Op{Kind: kind}
	pc := m.Reg.Get(PC)

	switch kind.ImmWidth() {
	case 1:
		arg, err := m.Mem.Get(pc + 1)
		if err != nil {
			return Op{}, err
		}
		op.Arg = arg
	case 2:
		arg, err := m.Mem.Get(pc + 1)
		if err != nil {
			return Op{}, err
		}
		arg2, err := m.Mem.Get(pc + 2)
		if err != nil {
			return Op{}, err
		}
		op.Arg, op.Arg2 = arg, arg2
	}

	return op, nil
}
