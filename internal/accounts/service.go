package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/lumina-id/lumina-id/internal/shared"
	"github.com/lumina-id/lumina-id/internal/social"
	"github.com/lumina-id/lumina-id/internal/token"
)

// Notifier delivers lifecycle notifications after the surrounding database
// transaction has committed. Implementations must not be able to roll the
// commit back; failures are logged and counted, never propagated to the
// caller.
type Notifier interface {
	AccountRegistered(ctx context.Context, email, firstName, activationToken string)
	PasswordResetRequested(ctx context.Context, email, firstName, resetToken string)
}

// SessionIssuer issues and verifies signed session tokens.
type SessionIssuer interface {
	Issue(accountID string, roles []string, credentialVersion int64) (string, time.Time, error)
	Verify(tokenString string) (*token.Claims, error)
}

// SocialVerifier resolves an external provider access token to a profile.
type SocialVerifier interface {
	Verify(ctx context.Context, provider, accessToken string) (*social.Profile, error)
}

// ServiceConfig tunes the account service.
type ServiceConfig struct {
	// ActionTokenTTL bounds the validity of activation and reset tokens.
	ActionTokenTTL time.Duration
	// MaxLoginAttempts is the consecutive failure count that locks an
	// account. Zero disables lockout.
	MaxLoginAttempts int
	// BcryptCost overrides the password hashing cost; zero uses the
	// library default.
	BcryptCost int
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service implements account registration, activation, authentication,
// password management, social login, and profile access.
type Service struct {
	repo             Repository
	sessions         SessionIssuer
	notifier         Notifier
	socials          SocialVerifier
	logger           *slog.Logger
	actionTokenTTL   time.Duration
	maxLoginAttempts int
	bcryptCost       int
	now              func() time.Time

	// dummyHash is compared against when the email is unknown so login
	// latency does not reveal account existence.
	dummyHash []byte
}

// NewService wires the account service.
func NewService(repo Repository, sessions SessionIssuer, notifier Notifier, socials SocialVerifier, logger *slog.Logger, cfg ServiceConfig) (*Service, error) {
	if repo == nil {
		return nil, errors.New("accounts: repository is required")
	}
	if sessions == nil {
		return nil, errors.New("accounts: session issuer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ActionTokenTTL <= 0 {
		cfg.ActionTokenTTL = 24 * time.Hour
	}
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("accounts: prepare dummy hash: %w", err)
	}

	return &Service{
		repo:             repo,
		sessions:         sessions,
		notifier:         notifier,
		socials:          socials,
		logger:           logger,
		actionTokenTTL:   cfg.ActionTokenTTL,
		maxLoginAttempts: cfg.MaxLoginAttempts,
		bcryptCost:       cfg.BcryptCost,
		now:              cfg.Now,
		dummyHash:        dummy,
	}, nil
}

// RegisterInput carries validated registration fields.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a pending account, stores an activation token, and hands
// the raw token to the notifier once the transaction has committed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	raw, tokenHash, err := token.NewActionToken()
	if err != nil {
		return nil, err
	}

	acct := &Account{
		ID:           uuid.New(),
		Email:        NormalizeEmail(in.Email),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Status:       StatusPending,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.Create(ctx, acct); err != nil {
			return err
		}
		if err := repo.AssignRole(ctx, acct.ID, RoleUser); err != nil {
			return err
		}
		return repo.ReplaceActionToken(ctx, ActionToken{
			ID:        uuid.New(),
			AccountID: acct.ID,
			Purpose:   PurposeActivation,
			TokenHash: tokenHash,
			ExpiresAt: s.now().Add(s.actionTokenTTL),
		})
	})
	if err != nil {
		return nil, err
	}
	acct.Roles = []string{RoleUser}

	if s.notifier != nil {
		s.notifier.AccountRegistered(ctx, acct.Email, acct.FirstName, raw)
	}
	return acct, nil
}

// Activate consumes an activation token and moves the account from pending to
// active. Consuming and transitioning happen in one transaction so a token is
// never burned without the status change landing.
func (s *Service) Activate(ctx context.Context, rawToken string) (*Account, error) {
	var acct *Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		accountID, err := repo.ConsumeActionToken(ctx, token.HashActionToken(rawToken), PurposeActivation)
		if err != nil {
			return err
		}
		acct, err = repo.GetForUpdate(ctx, accountID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.ErrInvalidToken
			}
			return err
		}
		if err := Transition(acct, StatusActive); err != nil {
			return err
		}
		return repo.UpdateStatus(ctx, acct.ID, StatusActive)
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// Session bundles an issued session token with its account.
type Session struct {
	Account   *Account
	Token     string
	ExpiresAt time.Time
}

// Authenticate verifies an email and password pair and issues a session
// token. Unknown emails, wrong passwords, and non-active accounts all produce
// the same ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	acct, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Equalize timing with the real comparison below.
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		s.registerFailedLogin(ctx, acct)
		return nil, shared.ErrInvalidCredentials
	}

	if acct.Status != StatusActive {
		return nil, shared.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.repo.RecordLogin(ctx, acct.ID, now); err != nil {
		return nil, err
	}
	acct.LoginAttempts = 0
	acct.LastLoginAt = &now

	return s.issueSession(ctx, acct)
}

// registerFailedLogin bumps the failure counter and locks the account once it
// crosses the threshold. Errors here are logged only; the caller already
// returns ErrInvalidCredentials.
func (s *Service) registerFailedLogin(ctx context.Context, acct *Account) {
	attempts, err := s.repo.IncrementLoginAttempts(ctx, acct.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "record failed login", "account_id", acct.ID, "error", err)
		return
	}
	if s.maxLoginAttempts <= 0 || attempts < s.maxLoginAttempts {
		return
	}
	if !CanTransition(acct.Status, StatusLocked) {
		return
	}
	if err := s.repo.UpdateStatus(ctx, acct.ID, StatusLocked); err != nil {
		s.logger.ErrorContext(ctx, "lock account", "account_id", acct.ID, "error", err)
		return
	}
	s.logger.WarnContext(ctx, "account locked after repeated login failures",
		"account_id", acct.ID, "attempts", attempts)
}

// ChangePassword replaces the password after re-verifying the current one.
// The credential version bump invalidates every outstanding session token, so
// a fresh one is issued for the caller.
func (s *Service) ChangePassword(ctx context.Context, accountID uuid.UUID, current, next string) (*Session, error) {
	acct, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(current)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}

	hash, err := s.hashPassword(next)
	if err != nil {
		return nil, err
	}
	version, err := s.repo.UpdatePassword(ctx, accountID, hash)
	if err != nil {
		return nil, err
	}
	acct.CredentialVersion = version

	return s.issueSession(ctx, acct)
}

// RequestReset stores a reset token and notifies the account owner. It
// reports success even when the email is unknown or the account cannot reset,
// so the endpoint cannot be used to enumerate accounts.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	acct, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if acct.Status != StatusActive {
		return nil
	}

	raw, tokenHash, err := token.NewActionToken()
	if err != nil {
		return err
	}
	// Delete and insert run in one transaction so concurrent requests for
	// the same account serialize instead of tripping the per-purpose
	// uniqueness constraint.
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.ReplaceActionToken(ctx, ActionToken{
			ID:        uuid.New(),
			AccountID: acct.ID,
			Purpose:   PurposeReset,
			TokenHash: tokenHash,
			ExpiresAt: s.now().Add(s.actionTokenTTL),
		})
	})
	if err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.PasswordResetRequested(ctx, acct.Email, acct.FirstName, raw)
	}
	return nil
}

// ConfirmReset consumes a reset token and installs the new password,
// invalidating all existing sessions via the credential version bump.
func (s *Service) ConfirmReset(ctx context.Context, rawToken, newPassword string) error {
	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		accountID, err := repo.ConsumeActionToken(ctx, token.HashActionToken(rawToken), PurposeReset)
		if err != nil {
			return err
		}
		_, err = repo.UpdatePassword(ctx, accountID, hash)
		return err
	})
}

// Delete soft-deletes the caller's account. The bearer token already proves
// possession, so the password is optional; when one is supplied it is
// re-verified before the account goes away.
func (s *Service) Delete(ctx context.Context, accountID uuid.UUID, password string) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		acct, err := repo.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if password != "" {
			if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
				return shared.ErrInvalidCredentials
			}
		}
		if err := Transition(acct, StatusDeleted); err != nil {
			return err
		}
		return repo.SoftDelete(ctx, accountID)
	})
}

// Profile loads the account and its roles, fetching both concurrently.
func (s *Service) Profile(ctx context.Context, accountID uuid.UUID) (*Account, error) {
	var (
		acct  *Account
		roles []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		acct, err = s.repo.GetByID(gctx, accountID)
		return err
	})
	g.Go(func() error {
		var err error
		roles, err = s.repo.ListRoles(gctx, accountID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	acct.Roles = roles
	return acct, nil
}

// UpdateProfile sets the account's name fields.
func (s *Service) UpdateProfile(ctx context.Context, accountID uuid.UUID, firstName, lastName string) (*Account, error) {
	acct, err := s.repo.UpdateProfile(ctx, accountID, firstName, lastName)
	if err != nil {
		return nil, err
	}
	acct.Roles, err = s.repo.ListRoles(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// Roles returns the account's role assignments.
func (s *Service) Roles(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	return s.repo.ListRoles(ctx, accountID)
}

// AssignRole grants a role to an account. Granting an already held role is a
// no-op.
func (s *Service) AssignRole(ctx context.Context, accountID uuid.UUID, role string) error {
	switch role {
	case RoleUser, RoleStaff, RoleAdmin:
	default:
		return fmt.Errorf("%w: unknown role %q", shared.ErrValidation, role)
	}
	if _, err := s.repo.GetByID(ctx, accountID); err != nil {
		return err
	}
	return s.repo.AssignRole(ctx, accountID, role)
}

// SocialLogin verifies a provider access token and signs the matching account
// in, creating an active account on first contact. Provider rejections map to
// ErrInvalidCredentials like any other failed login.
func (s *Service) SocialLogin(ctx context.Context, provider, accessToken string) (*Session, error) {
	if s.socials == nil {
		return nil, fmt.Errorf("%w: social login not configured", shared.ErrValidation)
	}
	profile, err := s.socials.Verify(ctx, provider, accessToken)
	if err != nil {
		return nil, err
	}

	acct, err := s.repo.GetBySocial(ctx, profile.Provider, profile.Subject)
	if errors.Is(err, shared.ErrNotFound) {
		acct, err = s.linkOrCreateSocial(ctx, profile)
	}
	if err != nil {
		return nil, err
	}
	if acct.Status != StatusActive {
		return nil, shared.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.repo.RecordLogin(ctx, acct.ID, now); err != nil {
		return nil, err
	}
	acct.LastLoginAt = &now

	return s.issueSession(ctx, acct)
}

// linkOrCreateSocial attaches the social identity to an existing account with
// the same verified email, or provisions a fresh active account. Provisioned
// accounts get an unguessable password hash; the owner can set a real one
// through the reset flow.
func (s *Service) linkOrCreateSocial(ctx context.Context, profile *social.Profile) (*Account, error) {
	if profile.Email == "" || !profile.EmailVerified {
		return nil, shared.ErrInvalidCredentials
	}
	email := NormalizeEmail(profile.Email)

	var acct *Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		acct, err = repo.GetByEmail(ctx, email)
		if err == nil {
			return repo.LinkSocial(ctx, acct.ID, profile.Provider, profile.Subject)
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		hash, err := s.hashPassword(uuid.NewString())
		if err != nil {
			return err
		}
		acct = &Account{
			ID:           uuid.New(),
			Email:        email,
			FirstName:    profile.FirstName,
			LastName:     profile.LastName,
			PasswordHash: hash,
			Status:       StatusActive,
		}
		if err := repo.Create(ctx, acct); err != nil {
			return err
		}
		if err := repo.AssignRole(ctx, acct.ID, RoleUser); err != nil {
			return err
		}
		return repo.LinkSocial(ctx, acct.ID, profile.Provider, profile.Subject)
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// VerifySession validates a bearer token against the live account state: the
// signature and expiry via the token service, then the account's status and
// credential version. A version mismatch means the password changed after
// issuance and the token is dead.
func (s *Service) VerifySession(ctx context.Context, tokenString string) (*shared.Identity, error) {
	claims, err := s.sessions.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, shared.ErrUnauthorized
	}

	acct, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthorized
		}
		return nil, err
	}
	if acct.Status != StatusActive {
		return nil, shared.ErrUnauthorized
	}
	if claims.CredentialVersion != acct.CredentialVersion {
		return nil, shared.ErrUnauthorized
	}

	return &shared.Identity{
		AccountID:         acct.ID,
		Email:             acct.Email,
		Roles:             claims.Roles,
		CredentialVersion: acct.CredentialVersion,
	}, nil
}

func (s *Service) issueSession(ctx context.Context, acct *Account) (*Session, error) {
	roles := acct.Roles
	if roles == nil {
		var err error
		roles, err = s.repo.ListRoles(ctx, acct.ID)
		if err != nil {
			return nil, err
		}
		acct.Roles = roles
	}
	signed, expiresAt, err := s.sessions.Issue(acct.ID.String(), roles, acct.CredentialVersion)
	if err != nil {
		return nil, err
	}
	return &Session{Account: acct, Token: signed, ExpiresAt: expiresAt}, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("accounts: hash password: %w", err)
	}
	return string(hash), nil
}
