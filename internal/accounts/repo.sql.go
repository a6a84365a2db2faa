package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-id/lumina-id/internal/platform/db"
	"github.com/lumina-id/lumina-id/internal/shared"
)

const uniqueViolation = "23505"

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const accountColumns = `a.id, a.email, a.first_name, a.last_name, a.password_hash, a.status,
       a.credential_version, a.login_attempts, a.last_login_at, a.created_at, a.updated_at, a.deleted_at`

const selectAccount = `SELECT ` + accountColumns + ` FROM accounts a `

func (r *repository) Create(ctx context.Context, acct *Account) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO accounts (id, email, first_name, last_name, password_hash, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at, credential_version`,
		acct.ID, acct.Email, acct.FirstName, acct.LastName, acct.PasswordHash, acct.Status,
	).Scan(&acct.CreatedAt, &acct.UpdatedAt, &acct.CredentialVersion)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return shared.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.queryOne(ctx, selectAccount+`WHERE a.id = $1 AND a.deleted_at IS NULL`, id)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.queryOne(ctx, selectAccount+`WHERE a.email = $1 AND a.deleted_at IS NULL`, email)
}

// GetForUpdate locks the account row for the remainder of the transaction so
// concurrent lifecycle mutations for one account serialize.
func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.queryOne(ctx, selectAccount+`WHERE a.id = $1 AND a.deleted_at IS NULL FOR UPDATE`, id)
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET status = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`,
		id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the hash and bumps the credential version, which
// invalidates every session token issued before this call.
func (r *repository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) (int64, error) {
	var version int64
	err := r.db.QueryRow(ctx, `
		UPDATE accounts
		SET password_hash = $2, credential_version = credential_version + 1, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING credential_version`, id, hash).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return version, nil
}

func (r *repository) UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName string) (*Account, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET first_name = $2, last_name = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id, firstName, lastName)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET status = $2, deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id, StatusDeleted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE accounts SET login_attempts = 0, last_login_at = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id, at)
	return err
}

func (r *repository) IncrementLoginAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := r.db.QueryRow(ctx, `
		UPDATE accounts SET login_attempts = login_attempts + 1, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING login_attempts`, id).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return attempts, nil
}

func (r *repository) ListRoles(ctx context.Context, id uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT role FROM account_roles WHERE account_id = $1 ORDER BY role`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *repository) AssignRole(ctx context.Context, id uuid.UUID, role string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO account_roles (account_id, role) VALUES ($1, $2)
		ON CONFLICT (account_id, role) DO NOTHING`, id, role)
	return err
}

// ReplaceActionToken enforces the at-most-one-unconsumed-token invariant with
// an upsert keyed on (account_id, purpose). A single statement keeps
// concurrent replacements from racing a separate delete and insert into a
// uniqueness violation.
func (r *repository) ReplaceActionToken(ctx context.Context, t ActionToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO action_tokens (id, account_id, purpose, token_hash, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, purpose) DO UPDATE
		SET id         = EXCLUDED.id,
		    token_hash = EXCLUDED.token_hash,
		    expires_at = EXCLUDED.expires_at,
		    created_at = now()`,
		t.ID, t.AccountID, t.Purpose, t.TokenHash, t.ExpiresAt)
	return err
}

// ConsumeActionToken deletes the token and returns its account in one
// statement. Under concurrent consumption exactly one caller gets a row; the
// rest see ErrInvalidToken.
func (r *repository) ConsumeActionToken(ctx context.Context, tokenHash string, purpose TokenPurpose) (uuid.UUID, error) {
	var accountID uuid.UUID
	err := r.db.QueryRow(ctx, `
		DELETE FROM action_tokens
		WHERE token_hash = $1 AND purpose = $2 AND expires_at > now()
		RETURNING account_id`, tokenHash, purpose).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, shared.ErrInvalidToken
		}
		return uuid.Nil, err
	}
	return accountID, nil
}

// PurgeExpired removes expired action tokens, then pending accounts whose
// activation window has lapsed with no live token left.
func (r *repository) PurgeExpired(ctx context.Context, pendingCutoff time.Time) (tokens, accounts int64, err error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM action_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, 0, err
	}
	tokens = tag.RowsAffected()

	tag, err = r.db.Exec(ctx, `
		DELETE FROM accounts a
		WHERE a.status = $1 AND a.created_at < $2
		  AND NOT EXISTS (
			SELECT 1 FROM action_tokens t
			WHERE t.account_id = a.id AND t.purpose = $3 AND t.expires_at > now()
		  )`, StatusPending, pendingCutoff, PurposeActivation)
	if err != nil {
		return tokens, 0, err
	}
	return tokens, tag.RowsAffected(), nil
}

func (r *repository) GetBySocial(ctx context.Context, provider, subject string) (*Account, error) {
	return r.queryOne(ctx, selectAccount+`
		JOIN social_identities si ON si.account_id = a.id
		WHERE si.provider = $1 AND si.subject = $2 AND a.deleted_at IS NULL`, provider, subject)
}

func (r *repository) LinkSocial(ctx context.Context, id uuid.UUID, provider, subject string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO social_identities (provider, subject, account_id) VALUES ($1, $2, $3)
		ON CONFLICT (provider, subject) DO NOTHING`, provider, subject, id)
	return err
}

func (r *repository) queryOne(ctx context.Context, query string, args ...any) (*Account, error) {
	row := r.db.QueryRow(ctx, query, args...)
	var acct Account
	if err := scanAccount(row, &acct); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &acct, nil
}

func scanAccount(row pgx.Row, acct *Account) error {
	return row.Scan(
		&acct.ID, &acct.Email, &acct.FirstName, &acct.LastName, &acct.PasswordHash,
		&acct.Status, &acct.CredentialVersion, &acct.LoginAttempts, &acct.LastLoginAt,
		&acct.CreatedAt, &acct.UpdatedAt, &acct.DeletedAt,
	)
}
