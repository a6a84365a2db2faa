package social

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultGitHubUserURL   = "https://api.github.com/user"
	defaultGitHubEmailsURL = "https://api.github.com/user/emails"
)

// GitHubConfig holds GitHub provider configuration.
type GitHubConfig struct {
	UserURL    string
	EmailsURL  string
	HTTPClient *http.Client
}

// GitHub verifies GitHub access tokens through the user API. The user payload
// omits private emails, so a second call to the emails endpoint resolves the
// primary verified address.
type GitHub struct {
	userURL    string
	emailsURL  string
	httpClient *http.Client
}

// NewGitHub creates a GitHub provider.
func NewGitHub(cfg GitHubConfig) *GitHub {
	if cfg.UserURL == "" {
		cfg.UserURL = defaultGitHubUserURL
	}
	if cfg.EmailsURL == "" {
		cfg.EmailsURL = defaultGitHubEmailsURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GitHub{userURL: cfg.UserURL, emailsURL: cfg.EmailsURL, httpClient: client}
}

// Name implements Provider.
func (g *GitHub) Name() string { return "github" }

// UserInfo implements Provider.
func (g *GitHub) UserInfo(ctx context.Context, accessToken string) (*Profile, error) {
	body, status, err := g.get(ctx, g.userURL, accessToken)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &ProviderError{Provider: "github", Status: status, Message: strings.TrimSpace(string(body))}
	}

	var user struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, &ProviderError{Provider: "github", Status: status, Message: "invalid user response"}
	}
	if user.ID == 0 {
		return nil, &ProviderError{Provider: "github", Status: status, Message: "missing subject"}
	}

	profile := &Profile{
		Provider:      "github",
		Subject:       strconv.FormatInt(user.ID, 10),
		Email:         user.Email,
		EmailVerified: user.Email != "",
	}
	profile.FirstName, profile.LastName = splitName(user.Name)

	if profile.Email == "" {
		email, verified := g.primaryEmail(ctx, accessToken)
		profile.Email = email
		profile.EmailVerified = verified
	}
	return profile, nil
}

// primaryEmail looks up the primary verified address. Failures degrade to an
// empty email rather than failing the login.
func (g *GitHub) primaryEmail(ctx context.Context, accessToken string) (string, bool) {
	body, status, err := g.get(ctx, g.emailsURL, accessToken)
	if err != nil || status != http.StatusOK {
		return "", false
	}
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.Unmarshal(body, &emails); err != nil {
		return "", false
	}
	for _, e := range emails {
		if e.Primary {
			return e.Email, e.Verified
		}
	}
	return "", false
}

func (g *GitHub) get(ctx context.Context, url, accessToken string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func splitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.SplitN(full, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
