package me_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunta27/auth0-poc-1/internal/http_server/handlers/me"
	"github.com/shunta27/auth0-poc-1/internal/identity"
	"github.com/shunta27/auth0-poc-1/internal/models"
)

type fakeProvider struct {
	info  models.UserInfo
	err   error
	token string
	calls int
}

func (f *fakeProvider) UserInfo(_ context.Context, accessToken string) (models.UserInfo, error) {
	f.calls++
	f.token = accessToken
	if f.err != nil {
		return models.UserInfo{}, f.err
	}
	return f.info, nil
}

func newHandler(f *fakeProvider) http.HandlerFunc {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return me.New(log, f)
}

func get(handler http.HandlerFunc, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestMe(t *testing.T) {
	f := &fakeProvider{info: models.UserInfo{
		Sub:           "auth0|123",
		Email:         "user@example.com",
		EmailVerified: true,
	}}

	rec := get(newHandler(f), "Bearer the-token")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "the-token", f.token)

	var body me.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "auth0|123", body.User.Sub)
	assert.True(t, body.User.EmailVerified)
}

func TestMeMissingHeader(t *testing.T) {
	f := &fakeProvider{}

	rec := get(newHandler(f), "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, f.calls)
}

func TestMeNonBearerHeader(t *testing.T) {
	f := &fakeProvider{}

	rec := get(newHandler(f), "Basic dXNlcjpwYXNz")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, f.calls)
}

func TestMeInvalidToken(t *testing.T) {
	f := &fakeProvider{err: &identity.ProviderError{StatusCode: http.StatusUnauthorized, Code: "invalid_token"}}

	rec := get(newHandler(f), "Bearer stale")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired")
}

func TestMeInsufficientScope(t *testing.T) {
	f := &fakeProvider{err: &identity.ProviderError{StatusCode: http.StatusForbidden, Code: "insufficient_scope"}}

	rec := get(newHandler(f), "Bearer limited")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMeProviderDown(t *testing.T) {
	f := &fakeProvider{err: identity.ErrUnavailable}

	rec := get(newHandler(f), "Bearer any")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
