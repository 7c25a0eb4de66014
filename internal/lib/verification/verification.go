// Package verification issues and checks the signed tokens embedded in
// email-verification links. A token proves that its email claim was
// reachable when the token was minted; validity is purely a function of
// the signature and the clock, there is no server-side revocation.
package verification

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Issuer and Subject scope tokens to this one purpose. A token signed
	// with the same secret but minted for anything else must not pass.
	Issuer  = "auth-poc"
	Subject = "email-verification"

	DefaultTTL = 24 * time.Hour
)

var (
	// ErrNoSecret means the signing secret was never configured. This is a
	// deployment fault, not a per-request condition.
	ErrNoSecret = errors.New("verification token secret is not configured")

	// ErrInvalidToken covers every way a presented token can be bad:
	// malformed, forged, minted for another purpose, or expired. Callers
	// must not report anything finer to the client, so the caller cannot
	// be used as a validity oracle. The wrapped detail is for logs only.
	ErrInvalidToken = errors.New("invalid or expired verification token")
)

func NewToken(email string, ttl time.Duration, secret string) (string, error) {
	const op = "verification.NewToken"

	if secret == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNoSecret)
	}

	now := time.Now()

	claims := jwt.MapClaims{
		"email": email,
		"iss":   Issuer,
		"sub":   Subject,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// ParseToken returns the email claim exactly as issued. Case and
// whitespace are preserved; normalization is the issuer's business.
func ParseToken(tokenStr, secret string) (string, error) {
	const op = "verification.ParseToken"

	if secret == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNoSecret)
	}

	claims := jwt.MapClaims{}

	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithSubject(Subject),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrInvalidToken, err)
	}

	if !parsed.Valid {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", fmt.Errorf("%s: %w: missing email claim", op, ErrInvalidToken)
	}

	return email, nil
}
