package me

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/shunta27/auth0-poc-1/internal/identity"
	resp "github.com/shunta27/auth0-poc-1/internal/lib/api/response"
	sl "github.com/shunta27/auth0-poc-1/internal/lib/logger"
	"github.com/shunta27/auth0-poc-1/internal/models"
)

type Response struct {
	resp.Response
	User models.UserInfo `json:"user"`
}

type UserInfoProvider interface {
	UserInfo(ctx context.Context, accessToken string) (models.UserInfo, error)
}

func New(log *slog.Logger, provider UserInfoProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.me.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		accessToken, ok := bearerToken(r)
		if !ok {
			log.Warn("missing authorization header")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("authorization header with Bearer token is required"))

			return
		}

		info, err := provider.UserInfo(r.Context(), accessToken)
		if err != nil {
			writeProviderError(w, r, log, err)

			return
		}

		log.Info("userinfo fetched", slog.String("sub", info.Sub))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			User:     info,
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authorization := r.Header.Get("Authorization")
	if authorization == "" || !strings.HasPrefix(authorization, "Bearer ") {
		return "", false
	}

	return strings.TrimPrefix(authorization, "Bearer "), true
}

// writeProviderError maps a failed userinfo call onto the response:
// the provider's 401/403 pass through with stable error messages, any
// other provider status passes through as-is, transport failures are a
// 502.
func writeProviderError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var pe *identity.ProviderError
	if errors.As(err, &pe) {
		log.Warn("provider rejected userinfo call", sl.Err(err))

		switch pe.StatusCode {
		case http.StatusUnauthorized:
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("the access token is invalid or expired"))
		case http.StatusForbidden:
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, resp.Error("the access token does not have sufficient permissions"))
		default:
			render.Status(r, pe.StatusCode)
			render.JSON(w, r, resp.Error("error from identity provider"))
		}

		return
	}

	log.Error("failed to fetch userinfo", sl.Err(err))

	render.Status(r, http.StatusBadGateway)
	render.JSON(w, r, resp.Error("identity provider unavailable"))
}
