package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/shunta27/auth0-poc-1/internal/auth"
	"github.com/shunta27/auth0-poc-1/internal/config"
	"github.com/shunta27/auth0-poc-1/internal/http_server/handlers/callback"
	"github.com/shunta27/auth0-poc-1/internal/http_server/handlers/login"
	"github.com/shunta27/auth0-poc-1/internal/http_server/handlers/logout"
	"github.com/shunta27/auth0-poc-1/internal/http_server/handlers/me"
	"github.com/shunta27/auth0-poc-1/internal/http_server/handlers/organizations"
	"github.com/shunta27/auth0-poc-1/internal/http_server/handlers/refresh"
	"github.com/shunta27/auth0-poc-1/internal/http_server/handlers/resend"
	sendEmail "github.com/shunta27/auth0-poc-1/internal/http_server/handlers/send_email"
	"github.com/shunta27/auth0-poc-1/internal/http_server/handlers/token"
	"github.com/shunta27/auth0-poc-1/internal/http_server/handlers/users"
	"github.com/shunta27/auth0-poc-1/internal/http_server/handlers/verify"
	"github.com/shunta27/auth0-poc-1/internal/identity"
	sl "github.com/shunta27/auth0-poc-1/internal/lib/logger"
	rateLimit "github.com/shunta27/auth0-poc-1/internal/middleware/ratelimit"
	"github.com/shunta27/auth0-poc-1/internal/rabbitmq"
	"github.com/shunta27/auth0-poc-1/internal/storage/redis"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting auth gateway", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("shutdown signal received")
		cancel()
	}()

	store, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.SessionTTL)
	if err != nil {
		log.Error("failed to connect redis", sl.Err(err))
		os.Exit(1)
	}
	defer store.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer msgBroker.Close()

	oauthClient := identity.NewOAuthClient(
		cfg.Auth0.Domain,
		cfg.Auth0.ClientID,
		cfg.Auth0.ClientSecret,
		cfg.Auth0.Scopes,
		cfg.Auth0.RequestTimeout,
	)

	mgmtClient := identity.NewManagementClient(
		cfg.Auth0.Domain,
		cfg.Auth0.ManagementClientID,
		cfg.Auth0.ManagementClientSecret,
		cfg.Auth0.ManagementAudience,
		cfg.Auth0.Connection,
		cfg.Auth0.RequestTimeout,
	)

	authService := auth.New(
		log,
		mgmtClient,
		msgBroker,
		cfg.Tokens.VerificationTokenTTL,
		cfg.Tokens.VerificationTokenSecret,
		cfg.HTTPServer.BaseURL,
	)

	router := setupRouter(log, cfg, authService, oauthClient, mgmtClient, store, msgBroker)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", sl.Err(err))
	} else {
		log.Info("server stopped gracefully")
	}
}

func setupRouter(
	log *slog.Logger,
	cfg *config.Config,
	authService *auth.Auth,
	oauthClient *identity.OAuthClient,
	mgmtClient *identity.ManagementClient,
	store *redis.Store,
	msgBroker *rabbitmq.RabbitMQClient,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	validate := validator.New()

	callbackURL := cfg.HTTPServer.BaseURL + "/auth/callback"

	r.Get("/api/me",
		me.New(log, oauthClient),
	)
	r.Get("/api/token",
		token.New(log, store),
	)
	r.With(rateLimit.RefreshToken()).Post("/api/refresh-token",
		refresh.New(log, validate, oauthClient),
	)
	r.With(rateLimit.CreateUser()).Post("/api/users",
		users.New(log, validate, authService),
	)
	r.With(rateLimit.Verify()).Get("/api/verify-email",
		verify.New(log, authService),
	)
	r.With(rateLimit.ResendVerification()).Post("/api/resend-verification",
		resend.New(log, validate, authService),
	)
	r.Get("/api/organizations",
		organizations.New(log, oauthClient, mgmtClient),
	)
	r.With(rateLimit.SendEmail()).Post("/api/send-email",
		sendEmail.New(log, validate, msgBroker),
	)

	r.With(rateLimit.Login()).Get("/auth/login",
		login.New(log, oauthClient, store, callbackURL),
	)
	r.Get("/auth/callback",
		callback.New(log, oauthClient, store, callbackURL, cfg.Redis.SessionTTL),
	)
	r.Get("/auth/logout",
		logout.New(log, oauthClient, store, cfg.HTTPServer.BaseURL),
	)

	return r
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
