package domain

import (
	"errors"
	"fmt"
)

// Phase is the room-wide game phase. The room row carries the authoritative
// value; rounds do not track their own phase.
type Phase string

const (
	PhaseLobby   Phase = "LOBBY"
	PhaseWord    Phase = "WORD"
	PhaseDraw    Phase = "DRAW"
	PhaseReveal  Phase = "REVEAL"
	PhaseVote    Phase = "VOTE"
	PhaseResults Phase = "RESULTS"
)

// AllPhases lists every phase in play order.
var AllPhases = []Phase{PhaseLobby, PhaseWord, PhaseDraw, PhaseReveal, PhaseVote, PhaseResults}

var ErrIllegalTransition = errors.New("illegal phase transition")

// phaseTransitions is the whole guard table. RESULTS fans out to a revote,
// the next round, or the lobby.
var phaseTransitions = map[Phase][]Phase{
	PhaseLobby:   {PhaseWord},
	PhaseWord:    {PhaseDraw},
	PhaseDraw:    {PhaseReveal},
	PhaseReveal:  {PhaseVote},
	PhaseVote:    {PhaseResults},
	PhaseResults: {PhaseVote, PhaseWord, PhaseLobby},
}

func (p Phase) IsValid() bool {
	_, ok := phaseTransitions[p]
	return ok
}

func (p Phase) String() string {
	return string(p)
}

// CanTransitionTo reports whether the guard table allows p -> target.
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, next := range phaseTransitions[p] {
		if next == target {
			return true
		}
	}
	return false
}

// TransitionError describes a rejected phase change. It matches
// ErrIllegalTransition under errors.Is.
type TransitionError struct {
	From Phase
	To   Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal phase transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// CheckTransition returns a *TransitionError unless from -> to is allowed.
func CheckTransition(from, to Phase) error {
	if !from.CanTransitionTo(to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// CheckPath validates every hop of a multi-step move, e.g. RESULTS -> WORD -> DRAW
// when a new round skips straight to drawing.
func CheckPath(from Phase, hops ...Phase) error {
	current := from
	for _, next := range hops {
		if err := CheckTransition(current, next); err != nil {
			return err
		}
		current = next
	}
	return nil
}
