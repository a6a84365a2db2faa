package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines data access for accounts, roles, action tokens, and
// social identity links. WithTx yields a Repository bound to a transaction so
// multi-step mutations (token consumption plus status change) commit as one
// unit.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	Create(ctx context.Context, acct *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) (int64, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName string) (*Account, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	IncrementLoginAttempts(ctx context.Context, id uuid.UUID) (int, error)

	ListRoles(ctx context.Context, id uuid.UUID) ([]string, error)
	AssignRole(ctx context.Context, id uuid.UUID, role string) error

	ReplaceActionToken(ctx context.Context, t ActionToken) error
	ConsumeActionToken(ctx context.Context, tokenHash string, purpose TokenPurpose) (uuid.UUID, error)
	PurgeExpired(ctx context.Context, pendingCutoff time.Time) (tokens, accounts int64, err error)

	GetBySocial(ctx context.Context, provider, subject string) (*Account, error)
	LinkSocial(ctx context.Context, id uuid.UUID, provider, subject string) error
}
