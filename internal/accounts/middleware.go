package accounts

import (
	"net/http"
	"strings"

	"github.com/lumina-id/lumina-id/internal/platform/httpx"
	"github.com/lumina-id/lumina-id/internal/shared"
)

// Authenticator verifies the Authorization bearer token against live account
// state and stores the resulting identity in the request context.
func Authenticator(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			identity, err := svc.VerifySession(r.Context(), raw)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole rejects authenticated requests whose identity lacks the role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.IdentityFromContext(r.Context())
			if identity == nil {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if !identity.HasRole(role) {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
