package model

import "github.com/rotisserie/eris"

// ItemState tracks a WorkItem through one run.
type ItemState string

const (
	StatePending            ItemState = "pending"
	StateCollectingEvidence ItemState = "collecting_evidence"
	StateRunningSteps       ItemState = "running_steps"
	StateAssembling         ItemState = "assembling"
	StatePersisting         ItemState = "persisting"
	StateDone               ItemState = "done"
	StateFailed             ItemState = "failed"
)

var itemTransitions = map[ItemState][]ItemState{
	StatePending:            {StateCollectingEvidence, StateFailed},
	StateCollectingEvidence: {StateRunningSteps, StateFailed},
	StateRunningSteps:       {StateAssembling, StateFailed},
	StateAssembling:         {StatePersisting, StateFailed},
	StatePersisting:         {StateDone, StateFailed},
}

// Terminal reports whether no further transition is allowed.
func (s ItemState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether from → to is a legal step. States are
// never revisited.
func CanTransition(from, to ItemState) bool {
	for _, next := range itemTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Advance moves s to next. Illegal transitions leave s unchanged and
// return an error.
func (s *ItemState) Advance(next ItemState) error {
	if !CanTransition(*s, next) {
		return eris.Errorf("model: illegal state transition %s -> %s", *s, next)
	}
	*s = next
	return nil
}
