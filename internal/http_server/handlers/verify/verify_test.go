package verify_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunta27/auth0-poc-1/internal/auth"
	"github.com/shunta27/auth0-poc-1/internal/http_server/handlers/verify"
	"github.com/shunta27/auth0-poc-1/internal/lib/verification"
)

type fakeVerifier struct {
	email string
	err   error
	calls int
}

func (f *fakeVerifier) VerifyEmail(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.email, nil
}

func newRequest(token string) *http.Request {
	target := "/api/verify-email"
	if token != "" {
		target += "?token=" + url.QueryEscape(token)
	}
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMissingToken(t *testing.T) {
	verifier := &fakeVerifier{}
	handler := verify.New(discardLogger(), verifier)

	rec := httptest.NewRecorder()
	handler(rec, newRequest(""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, verifier.calls, "no verification attempt without a token parameter")
}

func TestInvalidToken(t *testing.T) {
	verifier := &fakeVerifier{err: fmt.Errorf("details stay server-side: %w", verification.ErrInvalidToken)}
	handler := verify.New(discardLogger(), verifier)

	rec := httptest.NewRecorder()
	handler(rec, newRequest("bad-token"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired")
}

func TestUserNotFound(t *testing.T) {
	verifier := &fakeVerifier{err: auth.ErrUserNotFound}
	handler := verify.New(discardLogger(), verifier)

	rec := httptest.NewRecorder()
	handler(rec, newRequest("some-token"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAmbiguousUser(t *testing.T) {
	verifier := &fakeVerifier{err: auth.ErrAmbiguousUser}
	handler := verify.New(discardLogger(), verifier)

	rec := httptest.NewRecorder()
	handler(rec, newRequest("some-token"))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProviderFailure(t *testing.T) {
	verifier := &fakeVerifier{err: auth.ErrProviderUnavailable}
	handler := verify.New(discardLogger(), verifier)

	rec := httptest.NewRecorder()
	handler(rec, newRequest("some-token"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRedirectShape(t *testing.T) {
	verifier := &fakeVerifier{email: "Case.Sensitive@Example.COM"}
	handler := verify.New(discardLogger(), verifier)

	rec := httptest.NewRecorder()
	handler(rec, newRequest("good-token"))

	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	assert.Equal(t, "/auth/login", loc.Path, "redirect path is the fixed login surface")
	assert.Equal(t, "Case.Sensitive@Example.COM", loc.Query().Get("login_hint"),
		"login_hint carries the email claim exactly as issued")
}
