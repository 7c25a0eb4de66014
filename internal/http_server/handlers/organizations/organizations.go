package organizations

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
	Organizations []models.Organization `json:"organizations"`
	UserID        string                `json:"user_id"`
	Total         int                   `json:"total"`
}

type UserInfoProvider interface {
	UserInfo(ctx context.Context, accessToken string) (models.UserInfo, error)
}

type OrganizationLister interface {
	UserOrganizations(ctx context.Context, userID string) ([]models.Organization, error)
}

func New(
	log *slog.Logger,
	provider UserInfoProvider,
	lister OrganizationLister,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.organizations.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		authorization := r.Header.Get("Authorization")
		if authorization == "" || !strings.HasPrefix(authorization, "Bearer ") {
			log.Warn("missing authorization header")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("authorization header with Bearer token is required"))

			return
		}

		accessToken := strings.TrimPrefix(authorization, "Bearer ")

		info, err := provider.UserInfo(r.Context(), accessToken)
		if err != nil {
			var pe *identity.ProviderError
			if errors.As(err, &pe) && pe.StatusCode == http.StatusUnauthorized {
				log.Warn("provider rejected access token", sl.Err(err))

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("the access token is invalid or expired"))

				return
			}

			log.Error("failed to fetch userinfo", sl.Err(err))

			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, resp.Error("identity provider unavailable"))

			return
		}

		if info.Sub == "" {
			log.Warn("userinfo without sub")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("unable to identify user from token"))

			return
		}

		orgs, err := lister.UserOrganizations(r.Context(), info.Sub)
		if err != nil {
			var pe *identity.ProviderError
			if errors.As(err, &pe) && pe.StatusCode == http.StatusForbidden {
				log.Warn("management api lacks organization scope", sl.Err(err))

				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("management API does not have sufficient permissions to read organizations"))

				return
			}

			log.Error("failed to list organizations", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("error retrieving organizations"))

			return
		}

		log.Info("organizations listed",
			slog.String("user_id", info.Sub),
			slog.Int("total", len(orgs)),
		)

		render.JSON(w, r, Response{
			Response:      resp.OK(),
			Organizations: orgs,
			UserID:        info.Sub,
			Total:         len(orgs),
		})
	}
}
