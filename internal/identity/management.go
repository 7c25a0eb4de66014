package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shunta27/auth0-poc-1/internal/models"
)

// tokenSlack renews the cached management token this long before its
// reported expiry so in-flight calls never race the deadline.
const tokenSlack = 30 * time.Second

// ManagementClient calls the provider's Management API under a
// client-credentials token. The token is fetched on first use and cached
// until shortly before expiry; the mutex only guards the cache, requests
// run concurrently.
type ManagementClient struct {
	baseRawURL   string
	clientID     string
	clientSecret string
	audience     string
	connection   string
	httpClient   *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewManagementClient(domain, clientID, clientSecret, audience, connection string, timeout time.Duration) *ManagementClient {
	base := baseURL(domain)
	if audience == "" {
		audience = base + "/api/v2/"
	}

	return &ManagementClient{
		baseRawURL:   base,
		clientID:     clientID,
		clientSecret: clientSecret,
		audience:     audience,
		connection:   connection,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// FindUsersByEmail returns every provisioned user whose email matches
// exactly. The provider is expected to enforce uniqueness; callers treat
// more than one match as an invariant violation.
func (c *ManagementClient) FindUsersByEmail(ctx context.Context, email string) ([]models.User, error) {
	const op = "identity.ManagementClient.FindUsersByEmail"

	var users []models.User
	err := c.do(ctx, http.MethodGet, "/api/v2/users-by-email?email="+url.QueryEscape(email), nil, &users)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

func (c *ManagementClient) CreateUser(ctx context.Context, email, password, name string) (models.User, error) {
	const op = "identity.ManagementClient.CreateUser"

	payload := map[string]any{
		"user_id":        email,
		"email":          email,
		"password":       password,
		"connection":     c.connection,
		"name":           name,
		"email_verified": false,
		"verify_email":   false,
	}

	var user models.User
	err := c.do(ctx, http.MethodPost, "/api/v2/users", payload, &user)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) && pe.StatusCode == http.StatusConflict {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// SetEmailVerified flips the user's verified flag. Setting it on an
// already-verified account is a no-op at the provider, which is what
// makes re-presented verification links idempotent.
func (c *ManagementClient) SetEmailVerified(ctx context.Context, userID string) error {
	const op = "identity.ManagementClient.SetEmailVerified"

	payload := map[string]any{"email_verified": true}

	if err := c.do(ctx, http.MethodPatch, "/api/v2/users/"+url.PathEscape(userID), payload, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *ManagementClient) DeleteUser(ctx context.Context, userID string) error {
	const op = "identity.ManagementClient.DeleteUser"

	if err := c.do(ctx, http.MethodDelete, "/api/v2/users/"+url.PathEscape(userID), nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserOrganizations lists the organizations the user belongs to. The
// provider answers 404 for users with no memberships; that is an empty
// list, not an error.
func (c *ManagementClient) UserOrganizations(ctx context.Context, userID string) ([]models.Organization, error) {
	const op = "identity.ManagementClient.UserOrganizations"

	var orgs []models.Organization
	err := c.do(ctx, http.MethodGet, "/api/v2/users/"+url.PathEscape(userID)+"/organizations", nil, &orgs)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) && pe.StatusCode == http.StatusNotFound {
			return []models.Organization{}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return orgs, nil
}

func (c *ManagementClient) do(ctx context.Context, method, path string, payload, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseRawURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readProviderError(resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// accessToken returns the cached management token, fetching a fresh one
// via the client-credentials grant when missing or near expiry.
func (c *ManagementClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenSlack)) {
		return c.token, nil
	}

	raw, err := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"audience":      c.audience,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseRawURL+"/oauth/token", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readProviderError(resp)
	}

	var grant struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.token = grant.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(grant.ExpiresIn) * time.Second)

	return c.token, nil
}
