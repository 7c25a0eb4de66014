package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shunta27/auth0-poc-1/internal/models"
)

// OAuthClient talks to the provider's OAuth endpoints on behalf of the
// application itself: userinfo lookups, the refresh-token grant and the
// authorization-code exchange behind the hosted login flow.
type OAuthClient struct {
	baseRawURL   string
	clientID     string
	clientSecret string
	scopes       string
	httpClient   *http.Client
}

func NewOAuthClient(domain, clientID, clientSecret, scopes string, timeout time.Duration) *OAuthClient {
	return &OAuthClient{
		baseRawURL:   baseURL(domain),
		clientID:     clientID,
		clientSecret: clientSecret,
		scopes:       scopes,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// UserInfo exchanges a bearer access token for the profile it represents.
func (c *OAuthClient) UserInfo(ctx context.Context, accessToken string) (models.UserInfo, error) {
	const op = "identity.OAuthClient.UserInfo"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseRawURL+"/userinfo", nil)
	if err != nil {
		return models.UserInfo{}, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.UserInfo{}, fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.UserInfo{}, fmt.Errorf("%s: %w", op, readProviderError(resp))
	}

	var info models.UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return models.UserInfo{}, fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}

	return info, nil
}

// Refresh performs the refresh-token grant and returns the new token set.
// The provider may omit the rotated refresh token; callers fall back to
// the one they presented.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (models.TokenSet, error) {
	const op = "identity.OAuthClient.Refresh"

	return c.tokenGrant(ctx, op, map[string]string{
		"grant_type":    "refresh_token",
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"refresh_token": refreshToken,
	})
}

// ExchangeCode redeems an authorization code from the hosted login flow.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code, redirectURI string) (models.TokenSet, error) {
	const op = "identity.OAuthClient.ExchangeCode"

	return c.tokenGrant(ctx, op, map[string]string{
		"grant_type":    "authorization_code",
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"code":          code,
		"redirect_uri":  redirectURI,
	})
}

func (c *OAuthClient) tokenGrant(ctx context.Context, op string, form map[string]string) (models.TokenSet, error) {
	body, err := json.Marshal(form)
	if err != nil {
		return models.TokenSet{}, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseRawURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return models.TokenSet{}, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.TokenSet{}, fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.TokenSet{}, fmt.Errorf("%s: %w", op, readProviderError(resp))
	}

	var ts models.TokenSet
	if err := json.NewDecoder(resp.Body).Decode(&ts); err != nil {
		return models.TokenSet{}, fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}

	if ts.TokenType == "" {
		ts.TokenType = "Bearer"
	}
	if ts.ExpiresIn > 0 {
		ts.ExpiresAt = time.Now().Unix() + ts.ExpiresIn
	}

	return ts, nil
}

// AuthorizeURL builds the hosted-login entry point. The redirect target
// is assembled from configured values only.
func (c *OAuthClient) AuthorizeURL(redirectURI, state, loginHint string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", c.scopes)
	q.Set("state", state)
	if loginHint != "" {
		q.Set("login_hint", loginHint)
	}

	return c.baseRawURL + "/authorize?" + q.Encode()
}

func (c *OAuthClient) LogoutURL(returnTo string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	if returnTo != "" {
		q.Set("returnTo", returnTo)
	}

	return c.baseRawURL + "/v2/logout?" + q.Encode()
}

// readProviderError decodes the provider's error body, falling back to
// the raw text when it is not JSON.
func readProviderError(resp *http.Response) *ProviderError {
	raw, _ := io.ReadAll(resp.Body)

	var body struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Message          string `json:"message"`
	}

	pe := &ProviderError{StatusCode: resp.StatusCode}

	if err := json.Unmarshal(raw, &body); err != nil {
		pe.Code = "provider_error"
		pe.Description = string(raw)
		return pe
	}

	pe.Code = body.Error
	pe.Description = body.ErrorDescription
	if pe.Description == "" {
		pe.Description = body.Message
	}
	if pe.Code == "" {
		pe.Code = "provider_error"
	}

	return pe
}
