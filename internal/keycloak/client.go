package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/config"
)

var (
	ErrNotConfigured = errors.New("keycloak is not configured")
	ErrUserExists    = errors.New("user already exists in keycloak")
	ErrUserNotFound  = errors.New("user not found in keycloak")
)

// tokenExpiryBuffer makes the cached token expire early so a request
// dispatched just before the real expiry still carries a valid token.
const tokenExpiryBuffer = 30 * time.Second

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

func newCachedToken(token string, expiresIn int64) cachedToken {
	ttl := time.Duration(expiresIn) * time.Second
	if ttl > tokenExpiryBuffer {
		ttl -= tokenExpiryBuffer
	}
	return cachedToken{accessToken: token, expiresAt: time.Now().Add(ttl)}
}

func (t cachedToken) valid() bool {
	return t.accessToken != "" && time.Now().Before(t.expiresAt)
}

// Client talks to the Keycloak admin REST API using the client-credentials
// grant. The access token is shared across callers behind a read-write
// lock; concurrent callers racing an expired token may each issue a refresh
// request, there is no single-flight deduplication.
type Client struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	profileTTL   time.Duration
	http         *http.Client

	mu    sync.RWMutex
	token cachedToken
}

func New(cfg *config.Config) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.KeycloakURL, "/"),
		realm:        cfg.KeycloakRealm,
		clientID:     cfg.KeycloakClientID,
		clientSecret: cfg.KeycloakClientSecret,
		profileTTL:   cfg.KeycloakProfileCacheTTL,
		http:         &http.Client{Timeout: cfg.KeycloakTimeout},
	}
}

// IsConfigured reports whether a client secret is present. An unconfigured
// client fails writes but must not break reads: callers degrade to a
// synthesized profile.
func (c *Client) IsConfigured() bool {
	return c.clientSecret != ""
}

func (c *Client) ProfileCacheTTL() time.Duration {
	return c.profileTTL
}

func (c *Client) tokenURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.baseURL, c.realm)
}

func (c *Client) usersURL() string {
	return fmt.Sprintf("%s/admin/realms/%s/users", c.baseURL, c.realm)
}

func (c *Client) userURL(keycloakID string) string {
	return fmt.Sprintf("%s/admin/realms/%s/users/%s", c.baseURL, c.realm, keycloakID)
}

func (c *Client) getToken(ctx context.Context) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	c.mu.RLock()
	if c.token.valid() {
		token := c.token.accessToken
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	resp, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.token = newCachedToken(resp.AccessToken, resp.ExpiresIn)
	c.mu.Unlock()

	return resp.AccessToken, nil
}

func (c *Client) fetchToken(ctx context.Context) (*tokenResponse, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, body)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &token, nil
}

func (c *Client) doJSON(ctx context.Context, method, reqURL string, payload any) (*http.Response, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keycloak request failed: %w", err)
	}
	return resp, nil
}

// CreateUser creates a user and returns the Keycloak id parsed from the
// Location header. A 409 maps to ErrUserExists so the caller can surface a
// conflict instead of an infrastructure error.
func (c *Client) CreateUser(ctx context.Context, email string, firstName, lastName *string, password string) (string, error) {
	reqBody := createUserRequest{
		Username:  email,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Enabled:   true,
	}
	if password != "" {
		reqBody.Credentials = []credential{{Type: "password", Value: password, Temporary: false}}
	}

	resp, err := c.doJSON(ctx, http.MethodPost, c.usersURL(), &reqBody)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		// Location format: http://host/admin/realms/{realm}/users/{id}
		location := resp.Header.Get("Location")
		if idx := strings.LastIndex(location, "/"); idx >= 0 && idx < len(location)-1 {
			return location[idx+1:], nil
		}
		return "", fmt.Errorf("missing Location header in create response")
	case http.StatusConflict:
		return "", fmt.Errorf("%w: %s", ErrUserExists, email)
	default:
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("create user failed with status %d: %s", resp.StatusCode, body)
	}
}

// GetUser returns the profile, or (nil, nil) when the user does not exist.
func (c *Client) GetUser(ctx context.Context, keycloakID string) (*Profile, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, c.userURL(keycloakID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var profile Profile
		if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
			return nil, fmt.Errorf("failed to decode user response: %w", err)
		}
		return &profile, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get user failed with status %d: %s", resp.StatusCode, body)
	}
}

func (c *Client) UpdateUser(ctx context.Context, keycloakID string, firstName, lastName *string) error {
	reqBody := updateUserRequest{FirstName: firstName, LastName: lastName}

	resp, err := c.doJSON(ctx, http.MethodPut, c.userURL(keycloakID), &reqBody)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrUserNotFound, keycloakID)
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("update user failed with status %d: %s", resp.StatusCode, body)
	}
}

// DeleteUser removes the user. A 404 counts as success: the identity is
// already gone, which is what compensation wants.
func (c *Client) DeleteUser(ctx context.Context, keycloakID string) error {
	resp, err := c.doJSON(ctx, http.MethodDelete, c.userURL(keycloakID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete user failed with status %d: %s", resp.StatusCode, body)
	}
}

// FindUsersByEmail does an exact-match lookup, used by the root user
// bootstrap to recover from a half-finished initialization.
func (c *Client) FindUsersByEmail(ctx context.Context, email string) ([]Profile, error) {
	reqURL := fmt.Sprintf("%s?email=%s&exact=true", c.usersURL(), url.QueryEscape(email))

	resp, err := c.doJSON(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search users failed with status %d: %s", resp.StatusCode, body)
	}

	var profiles []Profile
	if err := json.NewDecoder(resp.Body).Decode(&profiles); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return profiles, nil
}
