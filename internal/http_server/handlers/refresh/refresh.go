package refresh

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/shunta27/auth0-poc-1/internal/identity"
	resp "github.com/shunta27/auth0-poc-1/internal/lib/api/response"
	sl "github.com/shunta27/auth0-poc-1/internal/lib/logger"
	"github.com/shunta27/auth0-poc-1/internal/models"
)

type Request struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type Response struct {
	resp.Response
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
}

type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenSet, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	refresher TokenRefresher,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Warn("invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ts, err := refresher.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			var pe *identity.ProviderError
			if errors.As(err, &pe) {
				log.Warn("provider rejected refresh", sl.Err(err))

				render.Status(r, pe.StatusCode)
				render.JSON(w, r, resp.Error("failed to refresh token"))

				return
			}

			log.Error("failed to refresh token", sl.Err(err))

			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, resp.Error("identity provider unavailable"))

			return
		}

		// Providers that do not rotate refresh tokens omit them from the
		// grant response; the presented one stays valid.
		if ts.RefreshToken == "" {
			ts.RefreshToken = req.RefreshToken
		}

		log.Info("token refreshed")

		render.JSON(w, r, Response{
			Response:     resp.OK(),
			AccessToken:  ts.AccessToken,
			RefreshToken: ts.RefreshToken,
			ExpiresIn:    ts.ExpiresIn,
			TokenType:    ts.TokenType,
			Scope:        ts.Scope,
		})
	}
}
