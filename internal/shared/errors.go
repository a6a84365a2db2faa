package shared

import "errors"

var (
	// ErrDuplicateEmail indicates a register attempt for an email that already
	// belongs to a pending or active account.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials indicates login failure. The same error is returned
	// for unknown emails, wrong passwords, and non-active accounts so callers
	// cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates an unknown, expired, or already consumed
	// activation or reset token.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidState indicates a lifecycle transition that is not allowed
	// from the account's current status.
	ErrInvalidState = errors.New("invalid account state")
	// ErrUnauthorized indicates a missing or unverifiable bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates an authenticated caller lacking a required role.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation indicates malformed request input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
)
