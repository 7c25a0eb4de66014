// Package auth orchestrates user provisioning and email verification
// against the external identity provider. It owns no state of its own;
// every mutation lands at the provider, which is what keeps the
// verification flow idempotent and safe under concurrent requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/shunta27/auth0-poc-1/internal/identity"
	sl "github.com/shunta27/auth0-poc-1/internal/lib/logger"
	"github.com/shunta27/auth0-poc-1/internal/lib/verification"
	"github.com/shunta27/auth0-poc-1/internal/models"
)

var (
	ErrUserExists          = errors.New("user already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrAmbiguousUser       = errors.New("multiple users share this email")
	ErrAlreadyVerified     = errors.New("email is already verified")
	ErrProviderUnavailable = errors.New("identity provider request failed")
)

// UserManager is the slice of the provider's Management API this
// service needs.
type UserManager interface {
	FindUsersByEmail(ctx context.Context, email string) ([]models.User, error)
	CreateUser(ctx context.Context, email, password, name string) (models.User, error)
	SetEmailVerified(ctx context.Context, userID string) error
	DeleteUser(ctx context.Context, userID string) error
}

type Publisher interface {
	SendMessage(ctx context.Context, msg models.EmailMessage) error
}

type Auth struct {
	log                *slog.Logger
	users              UserManager
	publisher          Publisher
	verificationTTL    time.Duration
	verificationSecret string
	baseURL            string
}

func New(
	log *slog.Logger,
	users UserManager,
	publisher Publisher,
	verificationTTL time.Duration,
	verificationSecret string,
	baseURL string,
) *Auth {
	return &Auth{
		log:                log,
		users:              users,
		publisher:          publisher,
		verificationTTL:    verificationTTL,
		verificationSecret: verificationSecret,
		baseURL:            baseURL,
	}
}

// VerifyEmail validates a presented verification token and flips the
// matching user's verified flag at the provider. The flag set is
// idempotent, so re-presenting a still-valid link succeeds again
// without tracking consumption here.
func (a *Auth) VerifyEmail(ctx context.Context, token string) (string, error) {
	const op = "auth.VerifyEmail"

	log := a.log.With(slog.String("op", op))

	email, err := verification.ParseToken(token, a.verificationSecret)
	if err != nil {
		// The reason (forged, expired, wrong purpose) stays in the logs;
		// the caller only ever sees the collapsed category.
		log.Warn("rejected verification token", sl.Err(err))
		return "", err
	}

	users, err := a.users.FindUsersByEmail(ctx, email)
	if err != nil {
		log.Error("failed to look up user", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, ErrProviderUnavailable)
	}

	switch {
	case len(users) == 0:
		log.Warn("no user for verified email claim")
		return "", fmt.Errorf("%s: %w", op, ErrUserNotFound)
	case len(users) > 1:
		// The provider is supposed to enforce email uniqueness. Report
		// the violation instead of silently picking a record.
		log.Error("email matches multiple users", slog.Int("matches", len(users)))
		return "", fmt.Errorf("%s: %w", op, ErrAmbiguousUser)
	}

	if err := a.users.SetEmailVerified(ctx, users[0].ID); err != nil {
		log.Error("failed to mark user as verified", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, ErrProviderUnavailable)
	}

	log.Info("email verified", slog.String("user_id", users[0].ID))

	return email, nil
}

// ProvisionUser creates an unverified account at the provider and
// enqueues its verification email. Creation and delivery are one logical
// transaction: if the message cannot be enqueued the account is deleted
// again so the user can retry from scratch.
func (a *Auth) ProvisionUser(ctx context.Context, email, password, name string) (models.User, error) {
	const op = "auth.ProvisionUser"

	log := a.log.With(slog.String("op", op))

	user, err := a.users.CreateUser(ctx, email, password, name)
	if err != nil {
		if errors.Is(err, identity.ErrUserExists) {
			log.Warn("user already exists")
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("failed to create user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, ErrProviderUnavailable)
	}

	log.Info("user created", slog.String("user_id", user.ID))

	if err := a.sendVerification(ctx, email, name); err != nil {
		log.Error("failed to enqueue verification email, rolling back user", sl.Err(err))

		if delErr := a.users.DeleteUser(ctx, user.ID); delErr != nil {
			log.Error("rollback failed, user left unverified", sl.Err(delErr))
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// ResendVerification issues a fresh token for an existing unverified
// account and enqueues the email again.
func (a *Auth) ResendVerification(ctx context.Context, email string) error {
	const op = "auth.ResendVerification"

	log := a.log.With(slog.String("op", op))

	users, err := a.users.FindUsersByEmail(ctx, email)
	if err != nil {
		log.Error("failed to look up user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, ErrProviderUnavailable)
	}

	switch {
	case len(users) == 0:
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	case len(users) > 1:
		log.Error("email matches multiple users", slog.Int("matches", len(users)))
		return fmt.Errorf("%s: %w", op, ErrAmbiguousUser)
	}

	if users[0].EmailVerified {
		return fmt.Errorf("%s: %w", op, ErrAlreadyVerified)
	}

	if err := a.sendVerification(ctx, email, users[0].Name); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("verification email re-enqueued", slog.String("user_id", users[0].ID))

	return nil
}

func (a *Auth) sendVerification(ctx context.Context, email, name string) error {
	token, err := verification.NewToken(email, a.verificationTTL, a.verificationSecret)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/api/verify-email?token=%s", a.baseURL, url.QueryEscape(token))

	return a.publisher.SendMessage(ctx, models.EmailMessage{
		To:      email,
		Name:    name,
		Link:    link,
		Purpose: models.PurposeVerification,
	})
}
