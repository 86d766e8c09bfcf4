package domain

// transitions is the complete lifecycle table. Anything absent is a state error.
var transitions = map[DocumentState]map[DocumentState]bool{
	StateDraft: {
		StateEmitted: true,
	},
	StateEmitted: {
		StateSubmitted: true,
		StateVoided:    true,
	},
	StateSubmitted: {
		StateAccepted: true,
		StateRejected: true,
		StateObserved: true,
		StateVoided:   true,
	},
	StateAccepted: {
		StateVoided: true,
	},
	StateObserved: {
		StateVoided: true,
	},
}

// CanTransition reports whether from -> to is in the lifecycle table.
func CanTransition(from, to DocumentState) bool {
	return transitions[from][to]
}

// CheckTransition returns a *StateError when from -> to is not allowed.
func CheckTransition(from, to DocumentState) error {
	if !CanTransition(from, to) {
		return &StateError{From: from, To: to}
	}
	return nil
}

// Transition moves the document to the next state or fails without mutating it.
func (d *FiscalDocument) Transition(to DocumentState) error {
	if err := CheckTransition(d.State, to); err != nil {
		return err
	}
	d.State = to
	return nil
}

// IsTerminal reports whether no further transition leaves s.
func IsTerminal(s DocumentState) bool {
	return len(transitions[s]) == 0
}

// Correctable reports whether a credit or debit note may reference a document in state s.
func Correctable(s DocumentState) bool {
	switch s {
	case StateEmitted, StateSubmitted, StateAccepted, StateObserved:
		return true
	default:
		return false
	}
}
