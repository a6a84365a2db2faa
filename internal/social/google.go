package social

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleConfig holds Google provider configuration.
type GoogleConfig struct {
	UserInfoURL string
	HTTPClient  *http.Client
}

// Google verifies Google OAuth2 access tokens through the userinfo endpoint.
type Google struct {
	userInfoURL string
	httpClient  *http.Client
}

// NewGoogle creates a Google provider.
func NewGoogle(cfg GoogleConfig) *Google {
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultGoogleUserInfoURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Google{userInfoURL: cfg.UserInfoURL, httpClient: client}
}

// Name implements Provider.
func (g *Google) Name() string { return "google" }

// UserInfo implements Provider.
func (g *Google) UserInfo(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: "google", Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var info struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &ProviderError{Provider: "google", Status: resp.StatusCode, Message: "invalid userinfo response"}
	}
	if info.Sub == "" {
		return nil, &ProviderError{Provider: "google", Status: resp.StatusCode, Message: "missing subject"}
	}

	return &Profile{
		Provider:      "google",
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		FirstName:     info.GivenName,
		LastName:      info.FamilyName,
	}, nil
}
