package wizard

import "fmt"

// Step is one screen of the kid intake flow.
type Step string

// Steps in completion order. Departure depends on activity restrictions, so
// the order is fixed.
const (
	StepPersonal   Step = "personal"
	StepHealth     Step = "health"
	StepAllergies  Step = "allergies"
	StepActivities Step = "activities"
	StepDeparture  Step = "departure"
	StepInclusion  Step = "inclusion"
)

// Sequence is the canonical step order.
var Sequence = []Step{StepPersonal, StepHealth, StepAllergies, StepActivities, StepDeparture, StepInclusion}

// Index returns a step's position in the sequence, or -1 for unknown steps.
func Index(step Step) int {
	for i, s := range Sequence {
		if s == step {
			return i
		}
	}
	return -1
}

// State tracks which steps have been completed.
type State struct {
	Completed map[Step]bool `json:"completed"`
}

// NewState returns an empty state.
func NewState() State {
	return State{Completed: map[Step]bool{}}
}

// CanEnter reports whether a step may be visited: every earlier step must be
// complete. Completed steps stay enterable so earlier answers can be revised.
func (st State) CanEnter(step Step) bool {
	idx := Index(step)
	if idx < 0 {
		return false
	}
	for _, prior := range Sequence[:idx] {
		if !st.Completed[prior] {
			return false
		}
	}
	return true
}

// Complete marks a step done. Completing a step out of order is an error.
func (st *State) Complete(step Step) error {
	if !st.CanEnter(step) {
		return fmt.Errorf("step %s cannot be completed yet", step)
	}
	if st.Completed == nil {
		st.Completed = map[Step]bool{}
	}
	st.Completed[step] = true
	return nil
}

// Next returns the first incomplete step, or "" when all steps are done.
func (st State) Next() Step {
	for _, s := range Sequence {
		if !st.Completed[s] {
			return s
		}
	}
	return ""
}

// Done reports whether every step has been completed.
func (st State) Done() bool {
	return st.Next() == ""
}
