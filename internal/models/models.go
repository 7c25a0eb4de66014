package models

import "time"

// User is a provisioned account as the identity provider reports it.
type User struct {
	ID            string `json:"user_id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"email_verified"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// UserInfo is the profile returned by the provider's userinfo endpoint.
type UserInfo struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Picture       string `json:"picture"`
	EmailVerified bool   `json:"email_verified"`
	UpdatedAt     string `json:"updated_at"`
}

// TokenSet is the OAuth token material held by a session or returned
// by a token grant.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
}

// ExpiresInFrom recomputes the remaining lifetime relative to now.
// Zero ExpiresAt means the provider never reported one.
func (t TokenSet) ExpiresInFrom(now time.Time) int64 {
	if t.ExpiresAt == 0 {
		return 0
	}
	remaining := t.ExpiresAt - now.Unix()
	if remaining < 0 {
		return 0
	}
	return remaining
}

type Organization struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	DisplayName string         `json:"display_name,omitempty"`
	Description string         `json:"description,omitempty"`
	Branding    map[string]any `json:"branding,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// EmailMessage is the wire format between the gateway and the mail worker.
type EmailMessage struct {
	To      string `json:"to"`
	Name    string `json:"name,omitempty"`
	Subject string `json:"subject,omitempty"`
	Link    string `json:"link,omitempty"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
	Purpose string `json:"purpose"`
}

const (
	PurposeVerification = "email_verification"
	PurposeWelcome      = "welcome"
	PurposeCustom       = "custom"
)
