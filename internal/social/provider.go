// Package social verifies external identity-provider access tokens. Providers
// are pluggable: each one knows how to turn a bearer token into a normalized
// profile, and the registry dispatches by provider name.
package social

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lumina-id/lumina-id/internal/shared"
)

// Profile is the normalized identity returned by a provider.
type Profile struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
}

// Provider verifies an access token with an external identity provider.
type Provider interface {
	Name() string
	UserInfo(ctx context.Context, accessToken string) (*Profile, error)
}

// ProviderError carries the upstream failure detail for logging; callers map
// it to a generic credential error at the boundary.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("social: %s: status %d: %s", e.Provider, e.Status, e.Message)
}

// Unwrap lets errors.Is treat any provider rejection as invalid credentials.
func (e *ProviderError) Unwrap() error {
	return shared.ErrInvalidCredentials
}

// Registry holds the configured providers.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the given providers.
func NewRegistry(providers ...Provider) *Registry {
	reg := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p != nil {
			reg.providers[strings.ToLower(p.Name())] = p
		}
	}
	return reg
}

// Verify resolves the named provider and fetches the token's profile.
func (r *Registry) Verify(ctx context.Context, provider, accessToken string) (*Profile, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: no social providers configured", shared.ErrValidation)
	}
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", shared.ErrValidation, provider)
	}
	if accessToken == "" {
		return nil, fmt.Errorf("%w: access token required", shared.ErrValidation)
	}
	return p.UserInfo(ctx, accessToken)
}

// Names lists the registered provider names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
