package callback

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/shunta27/auth0-poc-1/internal/http_server/handlers/token"
	resp "github.com/shunta27/auth0-poc-1/internal/lib/api/response"
	sl "github.com/shunta27/auth0-poc-1/internal/lib/logger"
	"github.com/shunta27/auth0-poc-1/internal/models"
	"github.com/shunta27/auth0-poc-1/internal/storage"
)

type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (models.TokenSet, error)
}

type SessionSaver interface {
	ConsumeState(ctx context.Context, state string) error
	SaveSession(ctx context.Context, sessionID string, ts models.TokenSet) error
}

// New completes the hosted-login flow: the state nonce is consumed
// (single use), the code is exchanged for a token set, and the set is
// stored as a server-side session referenced by an HttpOnly cookie.
func New(
	log *slog.Logger,
	exchanger CodeExchanger,
	sessions SessionSaver,
	callbackURL string,
	sessionTTL time.Duration,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.callback.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")

		if code == "" || state == "" {
			log.Warn("callback without code or state")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("code and state are required"))

			return
		}

		if err := sessions.ConsumeState(r.Context(), state); err != nil {
			if errors.Is(err, storage.ErrStateNotFound) {
				log.Warn("unknown or reused login state")

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("invalid login state"))

				return
			}

			log.Error("failed to consume login state", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal error"))

			return
		}

		ts, err := exchanger.ExchangeCode(r.Context(), code, callbackURL)
		if err != nil {
			log.Error("code exchange failed", sl.Err(err))

			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, resp.Error("failed to complete login"))

			return
		}

		sessionID := uuid.NewString()

		if err := sessions.SaveSession(r.Context(), sessionID, ts); err != nil {
			log.Error("failed to save session", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal error"))

			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     token.SessionCookie,
			Value:    sessionID,
			Path:     "/",
			MaxAge:   int(sessionTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		log.Info("login completed")

		http.Redirect(w, r, "/", http.StatusFound)
	}
}
