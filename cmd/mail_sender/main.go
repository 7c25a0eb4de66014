package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shunta27/auth0-poc-1/internal/config"
	sl "github.com/shunta27/auth0-poc-1/internal/lib/logger"
	"github.com/shunta27/auth0-poc-1/internal/mailer"
	"github.com/shunta27/auth0-poc-1/internal/models"
	"github.com/shunta27/auth0-poc-1/internal/rabbitmq"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoadMailer("./config/mail_sender.yaml")
	log := setupLogger(cfg.Env)

	log.Info("starting mail_sender", slog.String("env", cfg.Env))

	startConsumer(ctx, cfg, log)
}

func startConsumer(ctx context.Context, cfg *config.MailerConfig, log *slog.Logger) {
	r, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to init rabbitmq", sl.Err(err))
		return
	}
	defer r.Close()

	m := &mailer.Mailer{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		err := r.StartReading(ctx, func(raw []byte) {
			var msg models.EmailMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Error("failed to unmarshal message", sl.Err(err))
				return
			}

			subject, text, html := renderMessage(msg)

			if err := m.Send(msg.To, subject, text, html); err != nil {
				log.Error("failed to send message", sl.Err(err))
				return
			}

			log.Info("message sent", slog.String("purpose", msg.Purpose))
		})
		if err != nil {
			log.Error("failed to start reading", sl.Err(err))
			return
		}
	}()

	log.Info("consumer successfully started")

	select {
	case <-ctx.Done():
		log.Info("shutting down consumer...")
	case <-done:
		log.Info("consumer finished the work")
	}

	log.Info("service gracefully stopped")
}

func renderMessage(msg models.EmailMessage) (subject, text, html string) {
	switch msg.Purpose {
	case models.PurposeVerification:
		text, html = mailer.VerificationBodies(msg.Name, msg.To, msg.Link)
		return mailer.VerificationSubject, text, html
	case models.PurposeWelcome:
		text, html = mailer.WelcomeBodies(msg.Name, msg.To)
		return mailer.WelcomeSubject, text, html
	default:
		return msg.Subject, msg.Text, msg.HTML
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
