package session

// State is a step of the session lifecycle. Runs move forward only:
// Init, ResolvingPaths, Scanning, Planning, Executing, then one of the
// terminal states.
type State int

const (
	StateInit State = iota
	StateResolvingPaths
	StateScanning
	StatePlanning
	StateExecuting
	StateSucceeded
	StateCancelled
	StateFailed
)

var stateNames = map[State]string{
	StateInit:           "init",
	StateResolvingPaths: "resolving_paths",
	StateScanning:       "scanning",
	StatePlanning:       "planning",
	StateExecuting:      "executing",
	StateSucceeded:      "succeeded",
	StateCancelled:      "cancelled",
	StateFailed:         "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateCancelled || s == StateFailed
}

// Outcome is the externally reported result of a run.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

func (o Outcome) state() State {
	switch o {
	case OutcomeSucceeded:
		return StateSucceeded
	case OutcomeCancelled:
		return StateCancelled
	default:
		return StateFailed
	}
}
