package accounts

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lumina-id/lumina-id/internal/platform/httpx"
	"github.com/lumina-id/lumina-id/internal/shared"
)

// Handler wires HTTP endpoints for account flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	// throttle, when set, rate limits the anonymous endpoints.
	throttle func(http.Handler) http.Handler
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, throttle func(http.Handler) http.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		throttle:  throttle,
	}
}

// MountRoutes registers account routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.throttle != nil {
			r.Use(h.throttle)
		}
		r.Post("/register/", h.handleRegister)
		r.Get("/activate/{token}/", h.handleActivate)
		r.Post("/login/", h.handleLogin)
		r.Post("/password/reset/", h.handleRequestReset)
		r.Post("/password/reset/confirm/", h.handleConfirmReset)
		r.Post("/social/auth/", h.handleSocialAuth)
	})

	r.Group(func(r chi.Router) {
		r.Use(Authenticator(h.service))
		r.Post("/password/change/", h.handleChangePassword)
		r.Delete("/", h.handleDelete)
		r.Get("/roles/", h.handleRoles)
		r.Get("/profile/", h.handleProfile)
		r.Put("/profile/", h.handleUpdateProfile)
		r.With(RequireRole(RoleAdmin)).Post("/{accountID}/roles/", h.handleAssignRole)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	acct, err := h.service.Register(r.Context(), RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.respondError(w, r, "register", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, acct)
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	acct, err := h.service.Activate(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.respondError(w, r, "activate", err)
		return
	}
	httpx.JSON(w, http.StatusOK, acct)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	sess, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, r, "login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	var req changePasswordRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	sess, err := h.service.ChangePassword(r.Context(), identity.AccountID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.respondError(w, r, "change password", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt})
}

// handleDelete removes the caller's account. The body is optional: a bare
// authenticated DELETE succeeds, and a supplied password is re-verified first.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	var req deleteAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body", httpx.CodeValidation)
		return
	}
	if err := h.service.Delete(r.Context(), identity.AccountID, req.Password); err != nil {
		h.respondError(w, r, "delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if err := h.service.RequestReset(r.Context(), req.Email); err != nil {
		// Infra failure. The response still must not distinguish accounts,
		// so log and return the generic success body.
		h.logger.ErrorContext(r.Context(), "request password reset", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "If the email is registered, a reset link has been sent."})
}

func (h *Handler) handleConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if err := h.service.ConfirmReset(r.Context(), req.Token, req.NewPassword); err != nil {
		h.respondError(w, r, "confirm password reset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "Password has been reset."})
}

func (h *Handler) handleSocialAuth(w http.ResponseWriter, r *http.Request) {
	var req socialAuthRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	sess, err := h.service.SocialLogin(r.Context(), req.Provider, req.AccessToken)
	if err != nil {
		h.respondError(w, r, "social auth", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt})
}

func (h *Handler) handleRoles(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	roles, err := h.service.Roles(r.Context(), identity.AccountID)
	if err != nil {
		h.respondError(w, r, "list roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rolesResponse{Roles: roles})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	acct, err := h.service.Profile(r.Context(), identity.AccountID)
	if err != nil {
		h.respondError(w, r, "load profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, acct)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	var req profileUpdateRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	acct, err := h.service.UpdateProfile(r.Context(), identity.AccountID, req.FirstName, req.LastName)
	if err != nil {
		h.respondError(w, r, "update profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, acct)
}

func (h *Handler) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id", httpx.CodeValidation)
		return
	}
	var req assignRoleRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if err := h.service.AssignRole(r.Context(), accountID, req.Role); err != nil {
		h.respondError(w, r, "assign role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeValid parses the JSON body and runs struct validation, writing the
// problem response itself on failure.
func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body", httpx.CodeValidation)
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err), httpx.CodeValidation)
		return false
	}
	return true
}

func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "invalid request"
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.ErrorContext(r.Context(), op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
