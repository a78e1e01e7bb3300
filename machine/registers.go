package machine

// RegisterName names one of the machine's registers.
type RegisterName int

const (
	PC RegisterName = iota // program counter: code address of the next op to fetch
	SP                     // data-stack pointer: next free slot
	FP                     // call-stack pointer: next free slot
)

// Registers holds the fixed named register set. Reset sets PC to 0 and
// SP/FP to the base of their stack regions.
type Registers struct {
	pc, sp, fp Word
}

// NewRegisters returns a register file with PC at 0 and SP/FP parked at the
// base of their respective stack regions (an empty stack's pointer sits at
// its region's first address, not at 0 — 0 is inside CODE).
func NewRegisters() *Registers {
	return &Registers{pc: 0, sp: StackStart, fp: CallStackStart}
}

func (r *Registers) ptr(name RegisterName) *Word {
	switch name {
	case PC:
		return &r.pc
	case SP:
		return &r.sp
	case FP:
		return &r.fp
	default:
		panic("machine: unknown register")
	}
}

// Get returns the current value of the named register.
func (r *Registers) Get(name RegisterName) Word {
	return *r.ptr(name)
}

// Set writes the named register.
func (r *Registers) Set(name RegisterName, value Word) {
	*r.ptr(name) = value
}

// Inc advances the named register by delta (wrapping, per Word semantics).
func (r *Registers) Inc(name RegisterName, delta Word) {
	p := r.ptr(name)
	*p += delta
}

// Reset returns every register to its initial value: PC to 0, SP/FP to the
// base of their stack regions.
func (r *Registers) Reset() {
	r.pc, r.sp, r.fp = 0, StackStart, CallStackStart
}
