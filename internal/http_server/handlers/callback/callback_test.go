package callback_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunta27/auth0-poc-1/internal/http_server/handlers/callback"
	"github.com/shunta27/auth0-poc-1/internal/http_server/handlers/token"
	"github.com/shunta27/auth0-poc-1/internal/models"
	"github.com/shunta27/auth0-poc-1/internal/storage"
)

const callbackURL = "http://localhost:8080/auth/callback"

type fakeExchanger struct {
	ts    models.TokenSet
	err   error
	calls int
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, _, _ string) (models.TokenSet, error) {
	f.calls++
	if f.err != nil {
		return models.TokenSet{}, f.err
	}
	return f.ts, nil
}

type fakeSessions struct {
	states map[string]bool
	saved  map[string]models.TokenSet
}

func newFakeSessions(states ...string) *fakeSessions {
	f := &fakeSessions{
		states: make(map[string]bool),
		saved:  make(map[string]models.TokenSet),
	}
	for _, s := range states {
		f.states[s] = true
	}
	return f
}

func (f *fakeSessions) ConsumeState(_ context.Context, state string) error {
	if !f.states[state] {
		return storage.ErrStateNotFound
	}
	delete(f.states, state)
	return nil
}

func (f *fakeSessions) SaveSession(_ context.Context, sessionID string, ts models.TokenSet) error {
	f.saved[sessionID] = ts
	return nil
}

func newHandler(e *fakeExchanger, s *fakeSessions) http.HandlerFunc {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return callback.New(log, e, s, callbackURL, time.Hour)
}

func TestCallback(t *testing.T) {
	e := &fakeExchanger{ts: models.TokenSet{AccessToken: "access"}}
	s := newFakeSessions("state-1")

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=state-1", nil)
	rec := httptest.NewRecorder()
	newHandler(e, s)(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, token.SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	saved, ok := s.saved[cookies[0].Value]
	require.True(t, ok, "the cookie references the stored session")
	assert.Equal(t, "access", saved.AccessToken)
}

func TestCallbackStateIsSingleUse(t *testing.T) {
	e := &fakeExchanger{ts: models.TokenSet{AccessToken: "access"}}
	s := newFakeSessions("state-1")
	handler := newHandler(e, s)

	first := httptest.NewRecorder()
	handler(first, httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=state-1", nil))
	require.Equal(t, http.StatusFound, first.Code)

	second := httptest.NewRecorder()
	handler(second, httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=state-1", nil))
	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Equal(t, 1, e.calls, "a replayed state never reaches the code exchange")
}

func TestCallbackMissingParams(t *testing.T) {
	e := &fakeExchanger{}
	s := newFakeSessions()

	rec := httptest.NewRecorder()
	newHandler(e, s)(rec, httptest.NewRequest(http.MethodGet, "/auth/callback", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, e.calls)
}

func TestCallbackExchangeFailure(t *testing.T) {
	e := &fakeExchanger{err: context.DeadlineExceeded}
	s := newFakeSessions("state-1")

	rec := httptest.NewRecorder()
	newHandler(e, s)(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=state-1", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, s.saved)
}
