// Package accounts implements the credential store and account lifecycle:
// registration, activation, authentication, password changes and resets,
// role-gated profile access, and soft deletion.
package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Status is the lifecycle state of an account.
type Status string

const (
	// StatusPending means the account was registered but not yet activated.
	StatusPending Status = "pending"
	// StatusActive means the account may authenticate.
	StatusActive Status = "active"
	// StatusLocked means the account is held for manual review, e.g. after
	// repeated failed logins.
	StatusLocked Status = "locked"
	// StatusDeleted is terminal.
	StatusDeleted Status = "deleted"
)

// Enumerated roles attached to accounts.
const (
	RoleUser  = "user"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// Account represents a user account. PasswordHash is excluded from JSON so it
// can never leak through a serialized response or log attribute.
type Account struct {
	ID                uuid.UUID  `json:"id"`
	Email             string     `json:"email"`
	FirstName         string     `json:"first_name,omitempty"`
	LastName          string     `json:"last_name,omitempty"`
	PasswordHash      string     `json:"-"`
	Status            Status     `json:"status"`
	CredentialVersion int64      `json:"-"`
	LoginAttempts     int        `json:"-"`
	Roles             []string   `json:"roles,omitempty"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"-"`
}

// TokenPurpose distinguishes the two kinds of single-use action tokens.
type TokenPurpose string

const (
	// PurposeActivation authorizes the pending to active transition.
	PurposeActivation TokenPurpose = "activation"
	// PurposeReset authorizes a password replacement.
	PurposeReset TokenPurpose = "password_reset"
)

// ActionToken is the stored form of a single-use token. Only the SHA-256 of
// the raw value is persisted.
type ActionToken struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Purpose   TokenPurpose
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NormalizeEmail canonicalizes an email address for storage and lookup:
// NFKC normalization followed by lowercasing, so visually identical addresses
// collide on the unique index instead of creating near-duplicate accounts.
func NormalizeEmail(email string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(email)))
}
