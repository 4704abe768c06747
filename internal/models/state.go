package models

import "slices"

// checkTransition validates from -> to against a transition table.
func checkTransition[S ~string](table map[S][]S, entity string, id int64, from, to S) error {
	if slices.Contains(table[from], to) {
		return nil
	}
	return &InvalidStateTransitionError{
		Entity: entity,
		ID:     id,
		From:   string(from),
		To:     string(to),
	}
}

func isTerminal[S ~string](table map[S][]S, s S) bool {
	next, ok := table[s]
	return ok && len(next) == 0
}
