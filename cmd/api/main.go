package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"medlenswaitlist/config"
	emailAdapter "medlenswaitlist/internal/adapters/email"
	httpDelivery "medlenswaitlist/internal/delivery/http"
	"medlenswaitlist/internal/delivery/http/controllers"
	"medlenswaitlist/internal/delivery/http/middleware"
	"medlenswaitlist/internal/domain"
	"medlenswaitlist/internal/repository/memory"
	"medlenswaitlist/internal/repository/postgres"
	"medlenswaitlist/internal/services"

	_ "medlenswaitlist/docs"
)

const (
	serviceTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

// @title MedLens Waitlist API
// @version 1.0
// @description Waitlist signup backend with referral codes.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger()

	entrantRepo, closeStore, err := newEntrantRepository(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	mailer, err := emailAdapter.NewMailer(emailAdapter.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: emailAdapter.SESConfig{
			Region:          cfg.Email.SESRegion,
			AccessKeyID:     cfg.Email.SESAccessKeyID,
			SecretAccessKey: cfg.Email.SESSecretAccessKey,
		},
	}, logger)
	if err != nil {
		logger.Error("failed to initialize mailer", "err", err)
		os.Exit(1)
	}
	emailService := services.NewEmailService(mailer, emailAdapter.NewTemplateRenderer(), cfg.Email.ShareURL, logger)

	waitlistService := services.NewWaitlistService(entrantRepo, emailService, logger, serviceTimeout)
	waitlistController := controllers.NewWaitlistController(logger, waitlistService)

	mux := httpDelivery.NewRouter(waitlistController)
	handler := middleware.CORS(cfg.AllowedOrigins,
		middleware.LoggingMiddleware(logger,
			middleware.Recover(logger, mux)))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", "port", cfg.Port, "storage", cfg.StorageBackend, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}

// newEntrantRepository builds the configured store adapter. The returned
// close function releases the underlying connection pool, if any.
func newEntrantRepository(cfg *config.Config, logger *slog.Logger) (domain.EntrantRepository, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.NewEntrantRepository(), func() {}, nil
	case config.StoragePostgres:
		db, err := sql.Open("postgres", cfg.DBUrl)
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgres.NewEntrantRepository(db), func() { db.Close() }, nil
	default:
		return nil, nil, errors.New("unknown storage backend: " + cfg.StorageBackend)
	}
}
