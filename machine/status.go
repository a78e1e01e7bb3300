package machine

// Status is the scheduler-visible state of a machine at any router tick.
type Status int

const (
	Loaded Status = iota
	Ready
	Running
	Waiting
	Halted
	Errored
)

func (s Status) String() string {
	switch s {
	case Loaded:
		return "Loaded"
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Waiting:
		return "Waiting"
	case Halted:
		return "Halted"
	case Errored:
		return "Errored"
	default:
		return "Unknown"
	}
}

// DeriveStatus computes a machine's status from its current opcode,
// ExpectedReceives, inbox, and ready/ticked history. errored should be
// true once a runtime error has terminated the machine's execution.
func (m *Machine) DeriveStatus(errored bool) Status {
	if errored {
		return Errored
	}

	if m.ExpectedReceives > 0 && len(m.Inbox) == 0 {
		return Waiting
	}

	kind, err := m.Opcode()
	if err != nil {
		return Errored
	}
	if kind == Halt || kind == Eof {
		return Halted
	}

	if !m.ticked {
		if m.ready {
			return Ready
		}
		return Loaded
	}

	return Running
}
