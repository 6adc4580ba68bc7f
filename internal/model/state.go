package model

import "fmt"

// State is the position of a unit in the evaluation state machine.
//
//	Unknown -> Resolved -> Fresh
//	                    -> Stale -> Building -> Built | Failed
//	                             -> NotAttempted | Cancelled
type State int32

const (
	Unknown State = iota
	Resolved
	Fresh
	Stale
	Building
	Built
	Failed
	// NotAttempted marks a stale unit skipped because a dependency did not build.
	NotAttempted
	// Cancelled marks a stale unit that was still queued when the run was cancelled.
	Cancelled
)

var stateNames = [...]string{
	Unknown:      "unknown",
	Resolved:     "resolved",
	Fresh:        "fresh",
	Stale:        "stale",
	Building:     "building",
	Built:        "built",
	Failed:       "failed",
	NotAttempted: "not_attempted",
	Cancelled:    "cancelled",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int32(s))
	}
	return stateNames[s]
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// IsTerminal reports whether no further transition is possible in this
// evaluation.
func (s State) IsTerminal() bool {
	switch s {
	case Fresh, Built, Failed, NotAttempted, Cancelled:
		return true
	}
	return false
}

var transitions = map[State][]State{
	Unknown:  {Resolved},
	Resolved: {Fresh, Stale},
	Stale:    {Building, NotAttempted, Cancelled},
	Building: {Built, Failed},
}

// CanTransition reports whether a unit may move from one state to another.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
