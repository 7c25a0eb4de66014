package verify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/shunta27/auth0-poc-1/internal/auth"
	resp "github.com/shunta27/auth0-poc-1/internal/lib/api/response"
	sl "github.com/shunta27/auth0-poc-1/internal/lib/logger"
	"github.com/shunta27/auth0-poc-1/internal/lib/verification"
)

// loginPath is the only redirect target this handler ever produces.
// The email lands in a query parameter; the path itself is never
// derived from the request.
const loginPath = "/auth/login"

type EmailVerifier interface {
	VerifyEmail(ctx context.Context, token string) (string, error)
}

func New(log *slog.Logger, verifier EmailVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verify.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := r.URL.Query().Get("token")
		if token == "" {
			log.Warn("missing verification token")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("verification token is required"))

			return
		}

		email, err := verifier.VerifyEmail(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, verification.ErrInvalidToken):
				log.Warn("invalid verification token", sl.Err(err))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("invalid or expired verification token"))
			case errors.Is(err, auth.ErrUserNotFound):
				log.Warn("user not found for token", sl.Err(err))

				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("user not found"))
			case errors.Is(err, auth.ErrAmbiguousUser):
				log.Error("ambiguous user for token", sl.Err(err))

				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("email matches more than one account"))
			default:
				log.Error("failed to verify email", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("failed to verify email address"))
			}

			return
		}

		log.Info("email verified, redirecting to login")

		q := url.Values{}
		q.Set("login_hint", email)

		http.Redirect(w, r, loginPath+"?"+q.Encode(), http.StatusFound)
	}
}
