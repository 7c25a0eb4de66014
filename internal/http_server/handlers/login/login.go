package login

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/shunta27/auth0-poc-1/internal/identity"
	resp "github.com/shunta27/auth0-poc-1/internal/lib/api/response"
	sl "github.com/shunta27/auth0-poc-1/internal/lib/logger"
)

// stateTTL bounds how long a hosted-login round trip may take before
// the callback refuses the state nonce.
const stateTTL = 10 * time.Minute

type StateSaver interface {
	SaveState(ctx context.Context, state string, ttl time.Duration) error
}

// New redirects to the provider's hosted login page. An optional
// login_hint query parameter (set by the verification redirect) is
// passed through to prefill the login form.
func New(
	log *slog.Logger,
	oauth *identity.OAuthClient,
	states StateSaver,
	callbackURL string,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		state := uuid.NewString()

		if err := states.SaveState(r.Context(), state, stateTTL); err != nil {
			log.Error("failed to save login state", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal error"))

			return
		}

		loginHint := r.URL.Query().Get("login_hint")

		log.Info("redirecting to hosted login")

		http.Redirect(w, r, oauth.AuthorizeURL(callbackURL, state, loginHint), http.StatusFound)
	}
}
