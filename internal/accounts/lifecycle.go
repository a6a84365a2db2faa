package accounts

import (
	"fmt"

	"github.com/lumina-id/lumina-id/internal/shared"
)

// transitions enumerates the allowed lifecycle moves. Deleted is terminal;
// locked can only be released by manual review back to active, or deleted.
// active -> pending is deliberately absent.
var transitions = map[Status]map[Status]struct{}{
	StatusPending: {
		StatusActive:  {},
		StatusDeleted: {},
	},
	StatusActive: {
		StatusLocked:  {},
		StatusDeleted: {},
	},
	StatusLocked: {
		StatusActive:  {},
		StatusDeleted: {},
	},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to Status) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// Transition validates a lifecycle move for the given account. It returns
// ErrInvalidState rather than silently succeeding when the move is not in the
// transition table, including any attempt to leave the deleted state.
func Transition(acct *Account, target Status) error {
	if acct == nil || target == "" {
		return shared.ErrInvalidState
	}
	if acct.Status == target {
		return fmt.Errorf("%w: already %s", shared.ErrInvalidState, target)
	}
	if !CanTransition(acct.Status, target) {
		return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidState, acct.Status, target)
	}
	acct.Status = target
	return nil
}
