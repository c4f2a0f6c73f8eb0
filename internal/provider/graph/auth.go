package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenExpiryBuffer is the time before actual expiry when we consider a token expired.
const tokenExpiryBuffer = 5 * time.Minute

// tokenCache holds an OAuth2 access token and refreshes it before expiry.
type tokenCache struct {
	mu           sync.Mutex
	accessToken  string
	expiresAt    time.Time
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	httpClient   *http.Client
}

func newTokenCache(tokenURL, clientID, clientSecret string, httpClient *http.Client) *tokenCache {
	return &tokenCache{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        "https://graph.microsoft.com/.default",
		httpClient:   httpClient,
	}
}

// Token returns a valid access token, refreshing it if necessary.
// It is safe for concurrent use.
func (tc *tokenCache) Token(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.accessToken != "" && time.Now().Before(tc.expiresAt) {
		return tc.accessToken, nil
	}

	return tc.refresh(ctx)
}

// ForceRefresh discards the current token and acquires a new one.
func (tc *tokenCache) ForceRefresh(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.accessToken = ""
	tc.expiresAt = time.Time{}

	return tc.refresh(ctx)
}

// refresh acquires a new token from the OAuth2 token endpoint.
// The caller must hold tc.mu.
func (tc *tokenCache) refresh(ctx context.Context) (string, error) {
	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {tc.clientID},
		"client_secret": {tc.clientSecret},
		"scope":         {tc.scope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	tc.accessToken = tokenResp.AccessToken
	tc.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - tokenExpiryBuffer)

	return tc.accessToken, nil
}
