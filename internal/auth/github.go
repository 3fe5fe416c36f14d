package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// githubAPIURL is the REST endpoint the profile fetch hits. Overridable in
// tests.
var githubAPIURL = "https://api.github.com"

// GitHubProvider wraps the OAuth2 config for GitHub dashboard login.
// GitHub speaks plain OAuth2 (no OIDC discovery, no ID token), so identity
// comes from a profile fetch after the code exchange.
type GitHubProvider struct {
	oauth2Config *oauth2.Config
	apiURL       string
}

// GitHubProfile is the subset of the GitHub user object we keep.
type GitHubProfile struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// NewGitHubProvider creates a provider for the authorization-code flow.
func NewGitHubProvider(clientID, clientSecret, redirectURL string) *GitHubProvider {
	return &GitHubProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiURL: githubAPIURL,
	}
}

// AuthCodeURL generates the authorization URL for the given state.
func (p *GitHubProvider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// Exchange exchanges an authorization code for an access token and fetches
// the user's profile with it.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubProfile, error) {
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	return p.fetchProfile(ctx, token)
}

// fetchProfile fetches the authenticated user from the GitHub API.
func (p *GitHubProvider) fetchProfile(ctx context.Context, token *oauth2.Token) (*GitHubProfile, error) {
	client := p.oauth2Config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("building profile request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile fetch returned status %d", resp.StatusCode)
	}

	var profile GitHubProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	if profile.ID == 0 {
		return nil, fmt.Errorf("profile response missing user id")
	}

	return &profile, nil
}

// GenerateSecureString generates a cryptographically secure random string.
func GenerateSecureString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
