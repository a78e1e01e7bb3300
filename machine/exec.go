package machine

// Execute runs one or many instructions against a machine's state. The
// only rule that governs PC: no op body mutates PC directly. ExecOp
// computes an optional jump target into a local variable and applies the
// single transition (jump, or PC += 1 + immWidth) once, at the very end.
// Mixing a mid-op PC write with the default +1 advance is a known category
// of bug; this file avoids it by construction — there is exactly one place
// PC is written.

// ExecOp executes one decoded op against the current registers and
// memory, producing side effects on the stack, call stack, events, or
// outbox.
func (m *Machine) ExecOp(op Op) error {
	var jump *Word
	s := m.Stack()

	switch op.Kind {
	case Noop, Halt, Eof:
		// no effect on state; Halt/Eof stop the run loop via ShouldHalt.

	case Push:
		if err := s.Push(op.Arg); err != nil {
			return err
		}

	case Pop:
		if _, err := s.Pop(); err != nil {
			return err
		}

	case Load:
		v, err := m.Mem.Get(op.Arg)
		if err != nil {
			return err
		}
		if err := s.Push(v); err != nil {
			return err
		}

	case Store:
		v, err := s.Pop()
		if err != nil {
			return err
		}
		if err := m.Mem.Set(op.Arg, v); err != nil {
			return err
		}

	case Add:
		if err := s.ApplyTwo(func(a, b Word) Word { return a + b }); err != nil {
			return err
		}

	case Sub:
		if err := s.ApplyTwo(func(a, b Word) Word { return b - a }); err != nil {
			return err
		}

	case Mul:
		if err := s.ApplyTwo(func(a, b Word) Word { return a * b }); err != nil {
			return err
		}

	case Div:
		a, err := s.Pop()
		if err != nil {
			return err
		}
		b, err := s.Pop()
		if err != nil {
			return err
		}
		if a == 0 {
			return ErrDivisionByZero
		}
		if err := s.Push(b / a); err != nil {
			return err
		}

	case Inc:
		if err := s.Apply(func(v Word) Word { return v + 1 }); err != nil {
			return err
		}

	case Dec:
		if err := s.Apply(func(v Word) Word { return v - 1 }); err != nil {
			return err
		}

	case Equal:
		if err := s.ApplyTwo(boolOp(func(a, b Word) bool { return a == b })); err != nil {
			return err
		}

	case NotEqual:
		if err := s.ApplyTwo(boolOp(func(a, b Word) bool { return a != b })); err != nil {
			return err
		}

	case LessThan:
		if err := s.ApplyTwo(boolOp(func(a, b Word) bool { return a < b })); err != nil {
			return err
		}

	case LessThanOrEqual:
		if err := s.ApplyTwo(boolOp(func(a, b Word) bool { return a <= b })); err != nil {
			return err
		}

	case GreaterThan:
		if err := s.ApplyTwo(boolOp(func(a, b Word) bool { return a > b })); err != nil {
			return err
		}

	case GreaterThanOrEqual:
		if err := s.ApplyTwo(boolOp(func(a, b Word) bool { return a >= b })); err != nil {
			return err
		}

	case Jump:
		target := op.Arg
		jump = &target

	case JumpZero:
		v, err := s.Pop()
		if err != nil {
			return err
		}
		if v == 0 {
			target := op.Arg
			jump = &target
		}

	case JumpNotZero:
		v, err := s.Pop()
		if err != nil {
			return err
		}
		if v != 0 {
			target := op.Arg
			jump = &target
		}

	case Dup:
		if err := s.Push(s.Peek()); err != nil {
			return err
		}

	case Swap:
		a, err := s.Pop()
		if err != nil {
			return err
		}
		b, err := s.Pop()
		if err != nil {
			return err
		}
		if err := s.Push(a); err != nil {
			return err
		}
		if err := s.Push(b); err != nil {
			return err
		}

	case Over:
		if err := s.Push(s.Get(1)); err != nil {
			return err
		}

	case LoadString:
		bytes, err := m.Mem.String().GetStrBytes(op.Arg)
		if err != nil {
			return err
		}
		for _, b := range bytes {
			if err := s.Push(b); err != nil {
				return err
			}
		}

	case Print:
		var bytes []Word
		for {
			v, err := s.Pop()
			if err != nil {
				// underflow loop-break: whatever was collected (possibly
				// nothing) becomes the printed text.
				break
			}
			if v == 0 {
				break
			}
			bytes = append(bytes, v)
		}

		// reverse: the op popped in reverse-push order.
		for i, j := 0, len(bytes)-1; i < j; i, j = i+1, j-1 {
			bytes[i], bytes[j] = bytes[j], bytes[i]
		}

		text, err := m.Mem.String().GetStrFromBytes(bytes)
		if err != nil {
			return err
		}
		m.Events = append(m.Events, Event{Kind: PrintEvent, Text: text})

	case Call:
		// Push the address of Call's own inline argument word (PC+1, not
		// PC), so that Return's target=r+1 lands one past the whole
		// two-word Call instruction rather than inside it.
		pc := m.Reg.Get(PC)
		if err := m.CallStack().Push(pc + 1); err != nil {
			return err
		}
		target := op.Arg
		jump = &target

	case Return:
		addr, err := m.CallStack().Pop()
		if err != nil {
			return err
		}
		target := addr + 1
		jump = &target

	case Send:
		to, size := op.Arg, op.Arg2
		body := make([]Word, 0, size)
		for i := Word(0); i < size; i++ {
			v, err := s.Pop()
			if err != nil {
				return err
			}
			body = append(body, v)
		}

		if m.ID != nil {
			msg := Message{From: *m.ID, To: to, Action: Action{Kind: DataAction, Body: body}}
			m.Events = append(m.Events, Event{Kind: SendEvent, Message: msg})
			m.Outbox = append(m.Outbox, msg)
		}

	case Receive:
		m.ExpectedReceives++

	case MemoryMap:
		// reserved; no-op hook.

	default:
		return ErrUnknownOpcode
	}

	if jump != nil {
		m.Reg.Set(PC, *jump)
	} else {
		m.Reg.Inc(PC, Word(1+op.Kind.ImmWidth()))
	}

	return nil
}

func boolOp(pred func(a, b Word) bool) func(a, b Word) Word {
	return func(a, b Word) Word {
		if pred(a, b) {
			return 1
		}
		return 0
	}
}

// Tick fetches, decodes and executes the instruction at PC. On error, Tick
// marks the machine errored, so Status() reports Errored immediately, and
// returns the error to the caller.
func (m *Machine) Tick() error {
	m.ticked = true

	op, err := m.Decode()
	if err != nil {
		m.errored = true
		return err
	}

	if m.IsDebug && m.Trace != nil {
		m.Trace(m.Reg.Get(PC), op)
	}

	if err := m.ExecOp(op); err != nil {
		m.errored = true
		return err
	}
	return nil
}

// ShouldHalt reports whether the raw opcode at the current PC is Halt or
// Eof.
func (m *Machine) ShouldHalt() bool {
	kind, err := m.Opcode()
	if err != nil {
		return true
	}
	return kind == Halt || kind == Eof
}

// Run resets PC to 0 and ticks until ShouldHalt.
func (m *Machine) Run() error {
	m.Reg.Set(PC, 0)
	for !m.ShouldHalt() {
		if err := m.Tick(); err != nil {
			return err
		}
	}
	return nil
}
