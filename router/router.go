// Package router implements the cooperative, deterministic multi-machine
// scheduler: message delivery between machine outboxes and inboxes, the
// Receive protocol's stack-push side effect, round stepping, and deadlock
// detection.
package router

import (
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/opcodes-vm/machine/asm"
	"github.com/opcodes-vm/machine/machine"
)

// ErrNoMachine is returned by any operation referencing an id the router
// does not know about.
var ErrNoMachine = errors.New("router: no such machine")

// ErrDeadlock is returned by Run when a round delivers no messages and
// advances no machine while at least one machine remains Waiting — the
// cooperative scheduler has nothing left to do but can't finish either.
var ErrDeadlock = errors.New("router: deadlock detected")

// Router owns a set of machines, schedules them in deterministic
// ascending-id rounds, and shuttles Send/Receive messages between them.
type Router struct {
	machines map[machine.Word]*machine.Machine
	loaded   map[machine.Word]bool
	nextID   machine.Word

	// eventCursor tracks, per machine, how far into its Events slice the
	// drain-events phase has already consumed — Events itself is left
	// intact (callers may still want the full trace after Run returns),
	// so draining is "process the new suffix", not "truncate".
	eventCursor map[machine.Word]int

	// SessionID tags one router's lifetime for debug tracing, letting
	// logs from a single run be correlated even across multiple machines.
	SessionID uuid.UUID

	// Trace, when set, is called once per advanced or errored tick and once
	// per message routed into an inbox, in round order.
	Trace func(format string, args ...any)

	// PrintFunc, when set, receives the text of every Print event drained
	// from a machine's event queue, in ascending-id, in-queue order. A
	// no-op when nil.
	PrintFunc func(id machine.Word, text string)
}

// New returns an empty router.
func New() *Router {
	return &Router{
		machines:    make(map[machine.Word]*machine.Machine),
		loaded:      make(map[machine.Word]bool),
		eventCursor: make(map[machine.Word]int),
		SessionID:   uuid.New(),
	}
}

// Add creates a new, empty machine and returns its id.
func (r *Router) Add() machine.Word {
	id := r.nextID
	r.nextID++

	m := machine.New()
	m.ID = &id
	r.machines[id] = m
	return id
}

// Get returns the machine with the given id.
func (r *Router) Get(id machine.Word) (*machine.Machine, error) {
	m, ok := r.machines[id]
	if !ok {
		return nil, errors.Wrapf(ErrNoMachine, "id %d", id)
	}
	return m, nil
}

// Load assembles source and loads the resulting program into the machine
// with the given id.
func (r *Router) Load(id machine.Word, source string) error {
	ops, symbols, err := asm.Assemble(source)
	if err != nil {
		return errors.Wrapf(err, "assembling program for machine %d", id)
	}
	return r.LoadProgram(id, ops, symbols)
}

// LoadProgram loads an already-assembled program (ops, interned symbols)
// into the machine with the given id, bypassing the source assembler —
// used by the bytecode container loader.
func (r *Router) LoadProgram(id machine.Word, ops []machine.Op, symbols []string) error {
	m, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := m.Load(ops, symbols); err != nil {
		return errors.Wrapf(err, "loading program into machine %d", id)
	}
	r.loaded[id] = true
	return nil
}

// Ready partially resets every machine so it can be run or stepped
// from scratch, without discarding its CODE/DATA.
func (r *Router) Ready() {
	for _, m := range r.machines {
		m.PartialReset()
	}
}

// ids returns machine ids in ascending order, the basis of the router's
// deterministic scheduling.
func (r *Router) ids() []machine.Word {
	ids := make([]machine.Word, 0, len(r.machines))
	for id := range r.machines {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Loaded reports whether a program has been loaded into the given machine.
func (r *Router) Loaded(id machine.Word) bool {
	return r.loaded[id]
}

// Statuses returns a snapshot of every machine's current status, keyed by
// id.
func (r *Router) Statuses() map[machine.Word]machine.Status {
	out := make(map[machine.Word]machine.Status, len(r.machines))
	for id, m := range r.machines {
		out[id] = m.Status()
	}
	return out
}

// Step runs one round in three phases, in that order: deliver, advance,
// drain events. Determinism: every phase iterates machines in ascending id
// order, and within a machine its inbox/outbox is drained in arrival/send
// order (FIFO per (from, to) pair falls out of ascending id plus
// per-machine FIFO).
func (r *Router) Step() error {
	delivered, advanced := 0, 0

	// Deliver: for each machine with a pending Receive and a non-empty
	// inbox, pop one message and push its body onto the data stack,
	// decrementing ExpectedReceives. A machine can have more than one
	// message satisfied in the same round if it called Receive more than
	// once.
	for _, id := range r.ids() {
		m := r.machines[id]
		for m.ExpectedReceives > 0 && len(m.Inbox) > 0 {
			msg := m.Inbox[0]
			m.Inbox = m.Inbox[1:]
			for _, w := range msg.Action.Body {
				if err := m.Stack().Push(w); err != nil {
					return errors.Wrapf(err, "applying receive on machine %d", id)
				}
			}
			m.ExpectedReceives--
			delivered++
		}
	}

	// Advance: tick every machine not Halted, Errored or Waiting.
	for _, id := range r.ids() {
		m := r.machines[id]
		switch m.Status() {
		case machine.Halted, machine.Errored, machine.Waiting:
			continue
		}
		if err := m.Tick(); err != nil {
			if r.Trace != nil {
				r.Trace("machine %d errored: %s", id, err)
			}
			continue
		}
		advanced++
		if r.Trace != nil {
			r.Trace("machine %d advanced", id)
		}
	}

	// Drain events: route every Send event's message into its
	// destination's inbox (draining and clearing the sender's outbox),
	// and invoke the host print callback for any Print event queued since
	// the last drain.
	for _, fromID := range r.ids() {
		from := r.machines[fromID]
		for _, msg := range from.Outbox {
			to, err := r.Get(msg.To)
			if err != nil {
				continue // undeliverable: destination does not exist, drop it.
			}
			to.Inbox = append(to.Inbox, msg)
			if r.Trace != nil {
				r.Trace("route %d -> %d (%d word(s))", msg.From, msg.To, len(msg.Action.Body))
			}
		}
		from.Outbox = nil

		cursor := r.eventCursor[fromID]
		for _, ev := range from.Events[cursor:] {
			if ev.Kind == machine.PrintEvent && r.PrintFunc != nil {
				r.PrintFunc(fromID, ev.Text)
			}
		}
		r.eventCursor[fromID] = len(from.Events)
	}

	anyWaiting := false
	for _, m := range r.machines {
		if m.Status() == machine.Waiting {
			anyWaiting = true
			break
		}
	}
	if delivered == 0 && advanced == 0 && anyWaiting {
		return ErrDeadlock
	}

	return nil
}

// Done reports whether every machine has reached a terminal status
// (Halted or Errored) with no Receive still waiting to be applied.
func (r *Router) Done() bool {
	for _, m := range r.machines {
		if m.ExpectedReceives > 0 {
			return false
		}
		switch m.Status() {
		case machine.Halted, machine.Errored:
		default:
			return false
		}
	}
	return true
}

// Run readies every machine and steps until all machines reach a
// terminal status or a deadlock is detected.
func (r *Router) Run() error {
	r.Ready()
	for !r.Done() {
		if err := r.Step(); err != nil {
			return err
		}
	}
	return nil
}
