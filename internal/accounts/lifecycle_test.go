package accounts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumina-id/lumina-id/internal/shared"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusActive},
		{StatusPending, StatusDeleted},
		{StatusActive, StatusLocked},
		{StatusActive, StatusDeleted},
		{StatusLocked, StatusActive},
		{StatusLocked, StatusDeleted},
	}
	for _, tc := range allowed {
		require.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to Status }{
		{StatusActive, StatusPending},
		{StatusLocked, StatusPending},
		{StatusPending, StatusLocked},
		{StatusDeleted, StatusActive},
		{StatusDeleted, StatusPending},
		{StatusDeleted, StatusLocked},
	}
	for _, tc := range denied {
		require.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestTransitionMutatesOnSuccess(t *testing.T) {
	acct := &Account{Status: StatusPending}
	require.NoError(t, Transition(acct, StatusActive))
	require.Equal(t, StatusActive, acct.Status)
}

func TestTransitionRejectsSameStatus(t *testing.T) {
	acct := &Account{Status: StatusActive}
	err := Transition(acct, StatusActive)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Equal(t, StatusActive, acct.Status)
}

func TestTransitionDeletedIsTerminal(t *testing.T) {
	acct := &Account{Status: StatusDeleted}
	for _, target := range []Status{StatusPending, StatusActive, StatusLocked} {
		require.ErrorIs(t, Transition(acct, target), shared.ErrInvalidState)
	}
	require.Equal(t, StatusDeleted, acct.Status)
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))
	// NFKC folds compatibility characters, e.g. the fullwidth form.
	require.Equal(t, "a@example.com", NormalizeEmail("Ａ@example.com"))
}
