package machine

// Machine owns one program's memory, registers, event queue, and message
// queues. It is created empty, loaded via LoadCode/LoadSymbols (or the
// combined Load), and driven one op at a time by Tick, or to completion by
// Run.
type Machine struct {
	ID *Word

	Mem *Memory
	Reg *Registers

	Events []Event

	Inbox  []Message
	Outbox []Message

	IsDebug bool

	ExpectedReceives Word

	// Trace, when set and IsDebug is true, receives a one-line trace of
	// each decoded op before it executes.
	Trace func(pc Word, op Op)

	errored bool

	// ready and ticked track the Loaded/Ready/Running distinction: ready
	// becomes true once PartialReset runs (Router.Ready's per-machine
	// call), ticked becomes true on this machine's first Tick since then.
	// Neither set -> Loaded; ready but not yet ticked -> Ready; ticked ->
	// Running (absent Halted/Waiting/Errored).
	ready  bool
	ticked bool
}

// New returns a freshly constructed, unloaded machine.
func New() *Machine {
	return &Machine{
		Mem: NewMemory(),
		Reg: NewRegisters(),
	}
}

// Stack returns a StackView over the data stack (SP, [StackStart,StackEnd]).
func (m *Machine) Stack() *StackView {
	return newStackView(m.Mem, m.Reg, SP, StackStart, StackEnd)
}

// CallStack returns a StackView over the call stack (FP, [CallStackStart,
// CallStackEnd]).
func (m *Machine) CallStack() *StackView {
	return newStackView(m.Mem, m.Reg, FP, CallStackStart, CallStackEnd)
}

// LoadCode writes already-encoded ops into CODE.
func (m *Machine) LoadCode(ops []Op) error {
	return m.Mem.LoadCode(EncodeOps(ops))
}

// LoadSymbols interns each string into DATA in order and returns the
// address assigned to each, for a caller to patch into any ops (typically
// LoadString) that reference a symbol by index.
func (m *Machine) LoadSymbols(symbols []string) ([]Word, error) {
	addrs := make([]Word, len(symbols))
	sm := m.Mem.String()
	for i, s := range symbols {
		addr, err := sm.AddStr(s)
		if err != nil {
			return nil, err
		}
		addrs[i] = addr
	}
	return addrs, nil
}

// Load is the combined entry point used by the router: it interns symbols,
// patches any LoadString op's Arg (parsed as a symbol index) to the real
// DATA address, and loads the resulting code. This mirrors the original's
// "parser returns (ops, symbols); machine is loaded via load_code +
// load_symbols".
func (m *Machine) Load(ops []Op, symbols []string) error {
	addrs, err := m.LoadSymbols(symbols)
	if err != nil {
		return err
	}

	patched := make([]Op, len(ops))
	for i, op := range ops {
		if op.Kind == LoadString {
			op.Arg = addrs[op.Arg]
		}
		patched[i] = op
	}

	return m.LoadCode(patched)
}

// FullReset resets the machine completely: execution state, memory
// (including CODE/DATA), inbox, outbox, and events.
func (m *Machine) FullReset() {
	m.PartialReset()
	m.Mem.Reset()
	m.Inbox = nil
	m.Outbox = nil
	m.Events = nil
	m.ready = false
}

// PartialReset resets only execution state: registers, stacks, and
// expected receives. CODE and DATA are preserved, so a loaded program can
// be re-run from scratch. This is what Router.Ready calls per machine —
// it is also the moment a machine's status becomes Ready rather than
// Loaded.
func (m *Machine) PartialReset() {
	m.Reg.Reset()
	m.Mem.ResetStacks()
	m.ExpectedReceives = 0
	m.errored = false
	m.ready = true
	m.ticked = false
}

// Errored reports whether a runtime error has terminated this machine's
// execution (distinct from Halted, a clean stop).
func (m *Machine) Errored() bool {
	return m.errored
}

// Status derives this machine's current scheduler-visible status.
func (m *Machine) Status() Status {
	return m.DeriveStatus(m.errored)
}
