package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunta27/auth0-poc-1/internal/identity"
	"github.com/shunta27/auth0-poc-1/internal/lib/verification"
	"github.com/shunta27/auth0-poc-1/internal/models"
)

const (
	testSecret  = "test-secret"
	testBaseURL = "http://localhost:8080"
)

type fakeUserManager struct {
	found     []models.User
	findErr   error
	createErr error
	updateErr error
	deleteErr error

	findCalls   int
	createCalls int
	updateCalls int
	deleteCalls int

	verifiedIDs []string
	deletedIDs  []string
}

func (f *fakeUserManager) FindUsersByEmail(_ context.Context, _ string) ([]models.User, error) {
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.found, nil
}

func (f *fakeUserManager) CreateUser(_ context.Context, email, _, name string) (models.User, error) {
	f.createCalls++
	if f.createErr != nil {
		return models.User{}, f.createErr
	}
	return models.User{ID: "auth0|" + email, Email: email, Name: name}, nil
}

func (f *fakeUserManager) SetEmailVerified(_ context.Context, userID string) error {
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.verifiedIDs = append(f.verifiedIDs, userID)
	return nil
}

func (f *fakeUserManager) DeleteUser(_ context.Context, userID string) error {
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, userID)
	return nil
}

type fakePublisher struct {
	err  error
	sent []models.EmailMessage
}

func (f *fakePublisher) SendMessage(_ context.Context, msg models.EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newTestAuth(users *fakeUserManager, pub *fakePublisher) *Auth {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, users, pub, 24*time.Hour, testSecret, testBaseURL)
}

func mustToken(t *testing.T, email string) string {
	t.Helper()
	token, err := verification.NewToken(email, time.Hour, testSecret)
	require.NoError(t, err)
	return token
}

func TestVerifyEmailSuccess(t *testing.T) {
	users := &fakeUserManager{found: []models.User{{ID: "auth0|1", Email: "user@example.com"}}}
	svc := newTestAuth(users, &fakePublisher{})

	email, err := svc.VerifyEmail(context.Background(), mustToken(t, "user@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email)
	assert.Equal(t, []string{"auth0|1"}, users.verifiedIDs)
}

func TestVerifyEmailIdempotent(t *testing.T) {
	users := &fakeUserManager{found: []models.User{{ID: "auth0|1", Email: "user@example.com"}}}
	svc := newTestAuth(users, &fakePublisher{})

	token := mustToken(t, "user@example.com")

	for i := 0; i < 2; i++ {
		email, err := svc.VerifyEmail(context.Background(), token)
		require.NoError(t, err, "re-presenting a still-valid token must succeed")
		assert.Equal(t, "user@example.com", email)
	}

	assert.Equal(t, 2, users.updateCalls, "the flag set is repeated, not tracked")
}

func TestVerifyEmailInvalidToken(t *testing.T) {
	users := &fakeUserManager{}
	svc := newTestAuth(users, &fakePublisher{})

	_, err := svc.VerifyEmail(context.Background(), "garbage")
	assert.ErrorIs(t, err, verification.ErrInvalidToken)
	assert.Zero(t, users.findCalls, "no provider call before the token checks out")
	assert.Zero(t, users.updateCalls)
}

func TestVerifyEmailUserNotFound(t *testing.T) {
	users := &fakeUserManager{found: []models.User{}}
	svc := newTestAuth(users, &fakePublisher{})

	_, err := svc.VerifyEmail(context.Background(), mustToken(t, "gone@example.com"))
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, 1, users.findCalls)
	assert.Zero(t, users.updateCalls, "no mutation for a deleted account")
}

func TestVerifyEmailAmbiguousUser(t *testing.T) {
	users := &fakeUserManager{found: []models.User{
		{ID: "auth0|1", Email: "user@example.com"},
		{ID: "auth0|2", Email: "user@example.com"},
	}}
	svc := newTestAuth(users, &fakePublisher{})

	_, err := svc.VerifyEmail(context.Background(), mustToken(t, "user@example.com"))
	assert.ErrorIs(t, err, ErrAmbiguousUser)
	assert.Zero(t, users.updateCalls, "never mutate when the match is ambiguous")
}

func TestVerifyEmailLookupFailure(t *testing.T) {
	users := &fakeUserManager{findErr: errors.New("connection refused")}
	svc := newTestAuth(users, &fakePublisher{})

	_, err := svc.VerifyEmail(context.Background(), mustToken(t, "user@example.com"))
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestVerifyEmailUpdateFailure(t *testing.T) {
	users := &fakeUserManager{
		found:     []models.User{{ID: "auth0|1", Email: "user@example.com"}},
		updateErr: errors.New("rate limited"),
	}
	svc := newTestAuth(users, &fakePublisher{})

	_, err := svc.VerifyEmail(context.Background(), mustToken(t, "user@example.com"))
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestProvisionUser(t *testing.T) {
	users := &fakeUserManager{}
	pub := &fakePublisher{}
	svc := newTestAuth(users, pub)

	user, err := svc.ProvisionUser(context.Background(), "new@example.com", "pass", "New User")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)

	require.Len(t, pub.sent, 1)
	msg := pub.sent[0]
	assert.Equal(t, "new@example.com", msg.To)
	assert.Equal(t, models.PurposeVerification, msg.Purpose)
	require.True(t, strings.HasPrefix(msg.Link, testBaseURL+"/api/verify-email?token="))

	// The emailed link must carry a token that verifies back to the
	// provisioned email.
	raw := strings.TrimPrefix(msg.Link, testBaseURL+"/api/verify-email?token=")
	email, err := verification.ParseToken(raw, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", email)
}

func TestProvisionUserRollsBackOnPublishFailure(t *testing.T) {
	users := &fakeUserManager{}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newTestAuth(users, pub)

	_, err := svc.ProvisionUser(context.Background(), "new@example.com", "pass", "New User")
	require.Error(t, err)

	assert.Equal(t, 1, users.createCalls)
	assert.Equal(t, []string{"auth0|new@example.com"}, users.deletedIDs,
		"create plus failed delivery must delete the account again")
}

func TestProvisionUserAlreadyExists(t *testing.T) {
	users := &fakeUserManager{createErr: identity.ErrUserExists}
	svc := newTestAuth(users, &fakePublisher{})

	_, err := svc.ProvisionUser(context.Background(), "dup@example.com", "pass", "Dup")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestResendVerification(t *testing.T) {
	users := &fakeUserManager{found: []models.User{{ID: "auth0|1", Email: "user@example.com", Name: "User"}}}
	pub := &fakePublisher{}
	svc := newTestAuth(users, pub)

	require.NoError(t, svc.ResendVerification(context.Background(), "user@example.com"))
	require.Len(t, pub.sent, 1)
	assert.Equal(t, models.PurposeVerification, pub.sent[0].Purpose)
}

func TestResendVerificationAlreadyVerified(t *testing.T) {
	users := &fakeUserManager{found: []models.User{{ID: "auth0|1", Email: "user@example.com", EmailVerified: true}}}
	pub := &fakePublisher{}
	svc := newTestAuth(users, pub)

	err := svc.ResendVerification(context.Background(), "user@example.com")
	assert.ErrorIs(t, err, ErrAlreadyVerified)
	assert.Empty(t, pub.sent)
}

func TestResendVerificationNotFound(t *testing.T) {
	users := &fakeUserManager{}
	svc := newTestAuth(users, &fakePublisher{})

	err := svc.ResendVerification(context.Background(), "gone@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
