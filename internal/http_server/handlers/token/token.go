package token

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	resp "github.com/shunta27/auth0-poc-1/internal/lib/api/response"
	sl "github.com/shunta27/auth0-poc-1/internal/lib/logger"
	"github.com/shunta27/auth0-poc-1/internal/models"
	"github.com/shunta27/auth0-poc-1/internal/storage"
)

// SessionCookie carries the session ID set by the hosted-login callback.
const SessionCookie = "session_id"

type Response struct {
	resp.Response
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
}

type SessionProvider interface {
	Session(ctx context.Context, sessionID string) (models.TokenSet, error)
}

func New(log *slog.Logger, sessions SessionProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.token.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			log.Warn("no session cookie")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("not authenticated"))

			return
		}

		ts, err := sessions.Session(r.Context(), cookie.Value)
		if err != nil {
			if errors.Is(err, storage.ErrSessionNotFound) {
				log.Warn("session not found")

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("not authenticated"))

				return
			}

			log.Error("failed to load session", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response:     resp.OK(),
			AccessToken:  ts.AccessToken,
			RefreshToken: ts.RefreshToken,
			ExpiresAt:    ts.ExpiresAt,
			ExpiresIn:    ts.ExpiresInFrom(time.Now()),
			TokenType:    "Bearer",
			Scope:        ts.Scope,
		})
	}
}
