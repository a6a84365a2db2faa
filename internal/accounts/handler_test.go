package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumina-id/lumina-id/internal/token"
)

// captureNotifier records the raw tokens handed to the dispatcher so tests
// can follow the activation and reset links.
type captureNotifier struct {
	activation string
	reset      string
}

func (n *captureNotifier) AccountRegistered(ctx context.Context, email, firstName, activationToken string) {
	n.activation = activationToken
}

func (n *captureNotifier) PasswordResetRequested(ctx context.Context, email, firstName, resetToken string) {
	n.reset = resetToken
}

type apiFixture struct {
	router   chi.Router
	notifier *captureNotifier
	service  *Service
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	notifier := &captureNotifier{}
	tokens, err := token.NewService(token.Config{SigningKey: "test-signing-key", Issuer: "lumina-id"})
	require.NoError(t, err)
	svc, err := NewService(newMemoryRepo(), tokens, notifier, nil, nil, ServiceConfig{
		ActionTokenTTL:   time.Hour,
		MaxLoginAttempts: 3,
		BcryptCost:       bcrypt.MinCost,
	})
	require.NoError(t, err)

	handler := NewHandler(nil, svc, nil)
	router := chi.NewRouter()
	router.Route("/api/users", handler.MountRoutes)
	return &apiFixture{router: router, notifier: notifier, service: svc}
}

func (f *apiFixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) registerAndActivate(t *testing.T, email string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/users/register/", "", map[string]string{
		"email":            email,
		"password":         "correct horse battery",
		"confirm_password": "correct horse battery",
		"first_name":       "Ada",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/users/activate/"+f.notifier.activation+"/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func (f *apiFixture) login(t *testing.T, email string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/users/login/", "", map[string]string{
		"email":    email,
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegisterEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/users/register/", "", map[string]string{
		"email":            "ada@example.com",
		"password":         "correct horse battery",
		"confirm_password": "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotContains(t, rec.Body.String(), "password")

	var created struct {
		Status string `json:"status"`
		Email  string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "pending", created.Status)
	require.Equal(t, "ada@example.com", created.Email)
}

func TestRegisterEndpointValidation(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/users/register/", "", map[string]string{
		"email":            "ada@example.com",
		"password":         "correct horse battery",
		"confirm_password": "does not match",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestRegisterEndpointDuplicate(t *testing.T) {
	f := newAPIFixture(t)
	f.registerAndActivate(t, "ada@example.com")

	rec := f.do(t, http.MethodPost, "/api/users/register/", "", map[string]string{
		"email":            "ada@example.com",
		"password":         "correct horse battery",
		"confirm_password": "correct horse battery",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "DUPLICATE_EMAIL")
}

func TestActivateEndpointInvalidToken(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/users/activate/bogus/", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_TOKEN")
}

func TestLoginEndpointRejectsPendingAccount(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/api/users/register/", "", map[string]string{
		"email":            "ada@example.com",
		"password":         "correct horse battery",
		"confirm_password": "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/users/login/", "", map[string]string{
		"email":    "ada@example.com",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_CREDENTIALS")
}

func TestProfileRequiresBearer(t *testing.T) {
	f := newAPIFixture(t)
	f.registerAndActivate(t, "ada@example.com")

	rec := f.do(t, http.MethodGet, "/api/users/profile/", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/users/profile/", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	bearer := f.login(t, "ada@example.com")
	rec = f.do(t, http.MethodGet, "/api/users/profile/", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ada@example.com")
	require.Contains(t, rec.Body.String(), "Ada")
}

func TestProfileUpdateEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.registerAndActivate(t, "ada@example.com")
	bearer := f.login(t, "ada@example.com")

	rec := f.do(t, http.MethodPut, "/api/users/profile/", bearer, map[string]string{
		"first_name": "Grace",
		"last_name":  "Hopper",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Grace")
}

func TestRolesEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.registerAndActivate(t, "ada@example.com")
	bearer := f.login(t, "ada@example.com")

	rec := f.do(t, http.MethodGet, "/api/users/roles/", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "user")
}

func TestChangePasswordEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.registerAndActivate(t, "ada@example.com")
	bearer := f.login(t, "ada@example.com")

	rec := f.do(t, http.MethodPost, "/api/users/password/change/", bearer, map[string]string{
		"current_password": "correct horse battery",
		"new_password":     "a brand new password",
		"confirm_password": "a brand new password",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// The pre-change token no longer authenticates.
	rec = f.do(t, http.MethodGet, "/api/users/profile/", bearer, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.registerAndActivate(t, "ada@example.com")
	bearer := f.login(t, "ada@example.com")

	// The bearer token is proof enough; no body is required.
	rec := f.do(t, http.MethodDelete, "/api/users/", bearer, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/users/profile/", bearer, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteEndpointVerifiesSuppliedPassword(t *testing.T) {
	f := newAPIFixture(t)
	f.registerAndActivate(t, "ada@example.com")
	bearer := f.login(t, "ada@example.com")

	rec := f.do(t, http.MethodDelete, "/api/users/", bearer, map[string]string{
		"password": "not the password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/users/", bearer, map[string]string{
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestResetEndpointsAreUniform(t *testing.T) {
	f := newAPIFixture(t)
	f.registerAndActivate(t, "ada@example.com")

	known := f.do(t, http.MethodPost, "/api/users/password/reset/", "", map[string]string{"email": "ada@example.com"})
	unknown := f.do(t, http.MethodPost, "/api/users/password/reset/", "", map[string]string{"email": "nobody@example.com"})
	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, http.StatusOK, unknown.Code)
	require.Equal(t, known.Body.String(), unknown.Body.String())

	rec := f.do(t, http.MethodPost, "/api/users/password/reset/confirm/", "", map[string]string{
		"token":            f.notifier.reset,
		"new_password":     "a brand new password",
		"confirm_password": "a brand new password",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/users/login/", "", map[string]string{
		"email":    "ada@example.com",
		"password": "a brand new password",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAssignRoleRequiresAdmin(t *testing.T) {
	f := newAPIFixture(t)
	f.registerAndActivate(t, "ada@example.com")
	bearer := f.login(t, "ada@example.com")

	target := fmt.Sprintf("/api/users/%s/roles/", "00000000-0000-0000-0000-000000000001")
	rec := f.do(t, http.MethodPost, target, bearer, map[string]string{"role": "staff"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "FORBIDDEN")
}
