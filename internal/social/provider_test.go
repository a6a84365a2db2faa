package social

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumina-id/lumina-id/internal/shared"
	_ "github.com/lumina-id/lumina-id/testing"
)

func TestRegistryRejectsUnknownProvider(t *testing.T) {
	reg := NewRegistry(NewGoogle(GoogleConfig{}))

	_, err := reg.Verify(context.Background(), "facebook", "tok")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = reg.Verify(context.Background(), "google", "")
	require.ErrorIs(t, err, shared.ErrValidation)

	require.Equal(t, []string{"google"}, reg.Names())
}

func TestGoogleUserInfo(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"sub": "108",
			"email": "ada@example.com",
			"email_verified": true,
			"given_name": "Ada",
			"family_name": "Lovelace"
		}`))
	}))
	defer srv.Close()

	provider := NewGoogle(GoogleConfig{UserInfoURL: srv.URL, HTTPClient: srv.Client()})
	profile, err := provider.UserInfo(context.Background(), "tok-123")
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-123", gotAuth)
	require.Equal(t, "google", profile.Provider)
	require.Equal(t, "108", profile.Subject)
	require.Equal(t, "ada@example.com", profile.Email)
	require.True(t, profile.EmailVerified)
	require.Equal(t, "Ada", profile.FirstName)
	require.Equal(t, "Lovelace", profile.LastName)
}

func TestGoogleRejectsBadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	provider := NewGoogle(GoogleConfig{UserInfoURL: srv.URL, HTTPClient: srv.Client()})
	_, err := provider.UserInfo(context.Background(), "bad")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr))
	require.Equal(t, http.StatusUnauthorized, provErr.Status)
}

func TestGitHubUserInfoResolvesPrimaryEmail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 42, "login": "ada", "name": "Ada Lovelace"}`))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"email": "secondary@example.com", "primary": false, "verified": true},
			{"email": "ada@example.com", "primary": true, "verified": true}
		]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	provider := NewGitHub(GitHubConfig{
		UserURL:    srv.URL + "/user",
		EmailsURL:  srv.URL + "/user/emails",
		HTTPClient: srv.Client(),
	})
	profile, err := provider.UserInfo(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, "github", profile.Provider)
	require.Equal(t, "42", profile.Subject)
	require.Equal(t, "ada@example.com", profile.Email)
	require.True(t, profile.EmailVerified)
	require.Equal(t, "Ada", profile.FirstName)
	require.Equal(t, "Lovelace", profile.LastName)
}
