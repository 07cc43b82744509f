// Package auth provides Google OAuth2 authentication for mailwatch.
//
// It reads the credentials.json and token.json files written by the
// google-auth Python library, so tokens minted by the usual Google
// quickstart flow work without re-authentication.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Scopes the monitor needs. Read-only: mailwatch never mutates the mailbox.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
}

// googleAuthToken is the token.json format used by google-auth.
type googleAuthToken struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Expiry       string   `json:"expiry"`
}

// LoadGmailService returns an authenticated Gmail API service.
// credentialsPath should point to a credentials.json; token.json is
// expected next to it.
func LoadGmailService(ctx context.Context, credentialsPath string) (*gmail.Service, error) {
	client, err := getClient(ctx, credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("get oauth client: %w", err)
	}
	return gmail.NewService(ctx, option.WithHTTPClient(client))
}

// getClient returns an authenticated HTTP client by loading the OAuth
// config from credentials.json and the token from token.json.
func getClient(ctx context.Context, credentialsPath string) (*http.Client, error) {
	config, err := loadOAuthConfig(credentialsPath)
	if err != nil {
		return nil, err
	}

	tokenPath := filepath.Join(filepath.Dir(credentialsPath), "token.json")
	token, err := loadToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("load token from %s: %w", tokenPath, err)
	}

	// Token source auto-refreshes; persist the refreshed token so the
	// next run skips the refresh round-trip.
	ts := config.TokenSource(ctx, token)
	newToken, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	if newToken.AccessToken != token.AccessToken {
		if saveErr := saveToken(tokenPath, newToken, config); saveErr != nil {
			// Non-fatal: the refreshed token still works for this run.
			fmt.Fprintf(os.Stderr, "warning: could not save refreshed token: %v\n", saveErr)
		}
	}

	return oauth2.NewClient(ctx, ts), nil
}

// loadOAuthConfig reads credentials.json and returns an OAuth2 config.
func loadOAuthConfig(credentialsPath string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials from %s: %w", credentialsPath, err)
	}

	config, err := google.ConfigFromJSON(data, DefaultScopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return config, nil
}

// loadToken reads a token.json in google-auth format and converts it to
// a Go oauth2.Token.
func loadToken(tokenPath string) (*oauth2.Token, error) {
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}

	var gt googleAuthToken
	if err := json.Unmarshal(data, &gt); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	// google-auth writes ISO 8601 with microseconds.
	var expiry time.Time
	if gt.Expiry != "" {
		for _, layout := range []string{
			"2006-01-02T15:04:05.999999Z",
			"2006-01-02T15:04:05Z",
			time.RFC3339,
			time.RFC3339Nano,
		} {
			if t, err := time.Parse(layout, gt.Expiry); err == nil {
				expiry = t
				break
			}
		}
	}

	return &oauth2.Token{
		AccessToken:  gt.Token,
		RefreshToken: gt.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       expiry,
	}, nil
}

// saveToken writes the token back in google-auth format so other tools
// sharing the account directory can still use it.
func saveToken(tokenPath string, token *oauth2.Token, config *oauth2.Config) error {
	gt := googleAuthToken{
		Token:        token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenURI:     config.Endpoint.TokenURL,
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Scopes:       DefaultScopes,
		Expiry:       token.Expiry.UTC().Format("2006-01-02T15:04:05.999999Z"),
	}

	data, err := json.MarshalIndent(gt, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tokenPath, data, 0o600)
}
