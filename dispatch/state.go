package dispatch

// State is a step of one dispatch.
//
// StateIdle and StateFiltering are internal phases. Dispatch never
// returns them and no Outcome carries them.
type State int

const (
	StateIdle State = iota
	StateFiltering
	StateDisabled
	StateShortCircuited
	StateCredentialMissing
	StateDispatching
	StateSucceeded
	StateFailed
)

var stateNames = [...]string{
	StateIdle:              "idle",
	StateFiltering:         "filtering",
	StateDisabled:          "disabled",
	StateShortCircuited:    "short_circuited",
	StateCredentialMissing: "credential_missing",
	StateDispatching:       "dispatching",
	StateSucceeded:         "succeeded",
	StateFailed:            "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case StateDisabled, StateShortCircuited, StateCredentialMissing, StateSucceeded, StateFailed:
		return true
	}
	return false
}
