package order

import "fmt"

// InvalidTransitionError rejects an illegal status change. It carries both
// states so callers can report exactly what was refused.
type InvalidTransitionError struct {
	Current   Status
	Requested Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.Current, e.Requested)
}

// legalTransitions is the complete state machine. Pending may go straight to
// Delivered for manual correction. Nothing leaves a terminal state.
var legalTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusShipped:   true,
		StatusDelivered: true,
		StatusCancelled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
		StatusCancelled: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

// CanTransition reports whether moving from current to next is legal.
func CanTransition(current, next Status) bool {
	return legalTransitions[current][next]
}

// IsTerminal reports whether no further transitions are allowed from s.
func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s Status) bool {
	_, ok := legalTransitions[s]
	return ok
}
