package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/shunta27/auth0-poc-1/internal/http_server/handlers/token"
	"github.com/shunta27/auth0-poc-1/internal/identity"
	sl "github.com/shunta27/auth0-poc-1/internal/lib/logger"
)

type SessionDeleter interface {
	DeleteSession(ctx context.Context, sessionID string) error
}

// New drops the local session and sends the browser to the provider's
// logout endpoint so the hosted session ends too.
func New(
	log *slog.Logger,
	oauth *identity.OAuthClient,
	sessions SessionDeleter,
	returnTo string,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if cookie, err := r.Cookie(token.SessionCookie); err == nil {
			if err := sessions.DeleteSession(r.Context(), cookie.Value); err != nil {
				// The cookie is cleared either way; the orphaned session
				// expires on its own.
				log.Error("failed to delete session", sl.Err(err))
			}
		}

		http.SetCookie(w, &http.Cookie{
			Name:     token.SessionCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		log.Info("logged out")

		http.Redirect(w, r, oauth.LogoutURL(returnTo), http.StatusFound)
	}
}
