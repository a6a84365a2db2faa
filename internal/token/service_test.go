package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumina-id/lumina-id/internal/shared"
	_ "github.com/lumina-id/lumina-id/testing"
)

func TestNewServiceRequiresKey(t *testing.T) {
	_, err := NewService(Config{})
	require.Error(t, err)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc, err := NewService(Config{SigningKey: "secret", Issuer: "lumina-id"})
	require.NoError(t, err)

	signed, expiresAt, err := svc.Issue("account-1", []string{"user", "staff"}, 7)
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	claims, err := svc.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, "account-1", claims.Subject)
	require.Equal(t, []string{"user", "staff"}, claims.Roles)
	require.Equal(t, int64(7), claims.CredentialVersion)
	require.Equal(t, "lumina-id", claims.Issuer)
}

func TestIssueRequiresAccountID(t *testing.T) {
	svc, err := NewService(Config{SigningKey: "secret"})
	require.NoError(t, err)
	_, _, err = svc.Issue("", nil, 1)
	require.Error(t, err)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc, err := NewService(Config{SigningKey: "secret"})
	require.NoError(t, err)

	signed, _, err := svc.Issue("account-1", nil, 1)
	require.NoError(t, err)

	_, err = svc.Verify(signed + "x")
	require.ErrorIs(t, err, shared.ErrUnauthorized)
	_, err = svc.Verify("")
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	issuer, err := NewService(Config{SigningKey: "secret-a"})
	require.NoError(t, err)
	verifier, err := NewService(Config{SigningKey: "secret-b"})
	require.NoError(t, err)

	signed, _, err := issuer.Issue("account-1", nil, 1)
	require.NoError(t, err)
	_, err = verifier.Verify(signed)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	issuer, err := NewService(Config{SigningKey: "secret", Issuer: "someone-else"})
	require.NoError(t, err)
	verifier, err := NewService(Config{SigningKey: "secret", Issuer: "lumina-id"})
	require.NoError(t, err)

	signed, _, err := issuer.Issue("account-1", nil, 1)
	require.NoError(t, err)
	_, err = verifier.Verify(signed)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	now := time.Now()
	past := func() time.Time { return now.Add(-2 * time.Hour) }

	issuer, err := NewService(Config{SigningKey: "secret", SessionTTL: time.Hour, Clock: past})
	require.NoError(t, err)
	verifier, err := NewService(Config{SigningKey: "secret"})
	require.NoError(t, err)

	signed, _, err := issuer.Issue("account-1", nil, 1)
	require.NoError(t, err)
	_, err = verifier.Verify(signed)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestActionTokenHashIsStable(t *testing.T) {
	raw, hash, err := NewActionToken()
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	require.NotEqual(t, raw, hash)
	require.Equal(t, hash, HashActionToken(raw))
	require.True(t, EqualHashes(hash, HashActionToken(raw)))
	require.False(t, EqualHashes(hash, HashActionToken(raw+"x")))
}

func TestActionTokensAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		raw, _, err := NewActionToken()
		require.NoError(t, err)
		_, dup := seen[raw]
		require.False(t, dup)
		seen[raw] = struct{}{}
	}
}
