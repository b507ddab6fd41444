package game

import (
	"fmt"

	"naturedex/internal/stat"
)

type Phase int

const (
	PhaseAwaitingChoice Phase = iota + 1
	PhaseAwaitingAmount
	PhaseCommitted
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingChoice:
		return "awaiting_choice"
	case PhaseAwaitingAmount:
		return "awaiting_amount"
	case PhaseCommitted:
		return "committed"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Allocation is the point-allocation state machine for one session. It does
// no I/O: callers feed it choices and amounts and read back the phase.
type Allocation struct {
	initial   int
	remaining int
	chosen    stat.Stat
	phase     Phase
	deltas    stat.Block
}

// NewAllocation starts in AwaitingChoice, or directly in Committed when
// there is nothing to allocate.
func NewAllocation(budget int) *Allocation {
	if budget < 0 {
		budget = 0
	}
	a := &Allocation{
		initial:   budget,
		remaining: budget,
		phase:     PhaseAwaitingChoice,
		deltas:    stat.NewBlock(),
	}
	if budget == 0 {
		a.phase = PhaseCommitted
	}
	return a
}

func (a *Allocation) Phase() Phase      { return a.phase }
func (a *Allocation) Remaining() int    { return a.remaining }
func (a *Allocation) Consumed() int     { return a.initial - a.remaining }
func (a *Allocation) Chosen() stat.Stat { return a.chosen }

func (a *Allocation) Deltas() stat.Block {
	return a.deltas.Clone()
}

// Choose selects the stat the next amount goes to. Unknown stats leave the
// machine in AwaitingChoice.
func (a *Allocation) Choose(s stat.Stat) error {
	if a.phase != PhaseAwaitingChoice {
		return fmt.Errorf("%w: not awaiting a choice (%s)", ErrInvalidChoice, a.phase)
	}
	if !s.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidChoice, s)
	}
	a.chosen = s
	a.phase = PhaseAwaitingAmount
	return nil
}

// Assign adds v points to the chosen stat. Values outside [0, remaining]
// keep the machine in AwaitingAmount with the budget untouched. Zero is a
// valid no-op.
func (a *Allocation) Assign(v int) error {
	if a.phase != PhaseAwaitingAmount {
		return fmt.Errorf("%w: not awaiting an amount (%s)", ErrInvalidAmount, a.phase)
	}
	if v < 0 || v > a.remaining {
		return fmt.Errorf("%w: you can allocate between 0 and %d points", ErrInvalidAmount, a.remaining)
	}
	a.deltas[a.chosen] += v
	a.remaining -= v
	a.chosen = ""
	if a.remaining == 0 {
		a.phase = PhaseCommitted
		return nil
	}
	a.phase = PhaseAwaitingChoice
	return nil
}

// Abort discards the session. Terminal phases are left as they are.
func (a *Allocation) Abort() {
	if a.phase == PhaseCommitted {
		return
	}
	a.phase = PhaseAborted
	a.chosen = ""
}

func (a *Allocation) Done() bool {
	return a.phase == PhaseCommitted || a.phase == PhaseAborted
}
