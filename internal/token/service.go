// Package token issues and verifies the two credential shapes used by the
// service: signed stateless session tokens and single-use action tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lumina-id/lumina-id/internal/shared"
)

// DefaultSessionTTL defines the fallback validity period for session tokens.
const DefaultSessionTTL = time.Hour

// Claims represents the custom claims embedded in issued session tokens.
// CredentialVersion mirrors the account's counter at issuance time; a
// mismatch during verification invalidates the token without a revocation
// list.
type Claims struct {
	Roles             []string `json:"roles,omitempty"`
	CredentialVersion int64    `json:"cv"`
	jwt.RegisteredClaims
}

// Config bundles the configuration required to build a Service.
type Config struct {
	SigningKey string
	Issuer     string
	SessionTTL time.Duration
	Clock      func() time.Time
}

// Service signs and verifies session tokens. It holds no per-account state
// and is safe for concurrent use.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

// NewService constructs a Service from the provided configuration.
func NewService(cfg Config) (*Service, error) {
	if cfg.SigningKey == "" {
		return nil, errors.New("token: signing key must be provided")
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &Service{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		ttl:        ttl,
		now:        now,
	}, nil
}

// Issue signs a session token for the given account.
func (s *Service) Issue(accountID string, roles []string, credentialVersion int64) (string, time.Time, error) {
	if accountID == "" {
		return "", time.Time{}, errors.New("token: account id is required")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := &Claims{
		Roles:             append([]string(nil), roles...),
		CredentialVersion: credentialVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: sign: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify parses and validates a signed session token, returning its claims.
// Signature, expiry, and issuer failures all surface as ErrUnauthorized; the
// caller is expected to additionally compare the embedded credential version
// against the account's current one.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, shared.ErrUnauthorized
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnauthorized, err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, shared.ErrUnauthorized
	}
	if claims.Subject == "" {
		return nil, shared.ErrUnauthorized
	}

	return &claims, nil
}
