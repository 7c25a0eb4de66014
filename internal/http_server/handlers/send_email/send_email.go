package sendEmail

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	resp "github.com/shunta27/auth0-poc-1/internal/lib/api/response"
	sl "github.com/shunta27/auth0-poc-1/internal/lib/logger"
	"github.com/shunta27/auth0-poc-1/internal/models"
)

type Request struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
	Type    string `json:"type"`
	Name    string `json:"name"`
}

type Response struct {
	resp.Response
	Message string `json:"message"`
}

type Publisher interface {
	SendMessage(ctx context.Context, msg models.EmailMessage) error
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	publisher Publisher,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.send_email.New"

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

		var msg models.EmailMessage

		if req.Type == models.PurposeWelcome {
			if req.Name == "" {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("name is required for welcome email"))

				return
			}

			msg = models.EmailMessage{
				To:      req.To,
				Name:    req.Name,
				Purpose: models.PurposeWelcome,
			}
		} else {
			if req.Subject == "" {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("subject is required for custom email"))

				return
			}

			msg = models.EmailMessage{
				To:      req.To,
				Subject: req.Subject,
				Text:    req.Text,
				HTML:    req.HTML,
				Purpose: models.PurposeCustom,
			}
		}

		if err := publisher.SendMessage(r.Context(), msg); err != nil {
			log.Error("failed to enqueue email", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("failed to send email"))

			return
		}

		log.Info("email enqueued", slog.String("purpose", msg.Purpose))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "email sent successfully",
		})
	}
}
