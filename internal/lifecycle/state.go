package lifecycle

// State of one workload invocation.
type State string

const (
	StateIdle      State = "IDLE"
	StateLoading   State = "LOADING"
	StateWarming   State = "WARMING"
	StateExecuting State = "EXECUTING"
	StateUnloading State = "UNLOADING"
	StateDone      State = "DONE"
	StateFailed    State = "FAILED"
)

// transitions holds the forward edges of the invocation state machine.
// Failed is reachable from every non-idle, non-terminal state.
var transitions = map[State][]State{
	StateIdle:      {StateLoading},
	StateLoading:   {StateWarming, StateUnloading, StateFailed},
	StateWarming:   {StateExecuting, StateUnloading, StateFailed},
	StateExecuting: {StateUnloading, StateFailed},
	StateUnloading: {StateDone, StateFailed},
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
