// Package identity holds the HTTP clients for the external identity
// provider: the OAuth surface (userinfo, token grants, hosted login URLs)
// and the Management API (user provisioning and lookups). Both are
// constructed once at startup and injected into their consumers.
package identity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable covers transport-level failures talking to the
	// provider: connection refused, timeout, unreadable response.
	ErrUnavailable = errors.New("identity provider unavailable")

	ErrUserExists = errors.New("user already exists")
)

// ProviderError is a non-2xx answer from the provider, preserving the
// status and the OAuth-style error fields for the caller to map.
type ProviderError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("provider returned %d: %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Code)
}

// baseURL turns a bare tenant domain into an origin. A domain that
// already carries a scheme is used as-is, which is how tests point the
// clients at an httptest server.
func baseURL(domain string) string {
	if strings.Contains(domain, "://") {
		return strings.TrimSuffix(domain, "/")
	}
	return "https://" + domain
}
