package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/arenaleague/arena/config"
	"github.com/arenaleague/arena/db"
	"github.com/arenaleague/arena/handlers"
	"github.com/arenaleague/arena/middleware"
	"github.com/arenaleague/arena/realtime"
	"github.com/arenaleague/arena/repositories"
	api "github.com/arenaleague/arena/routes"
	"github.com/arenaleague/arena/services"
	"github.com/arenaleague/arena/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	hub := realtime.NewHub(logger)
	go hub.Run()
	logger.Info("websocket hub started")

	transactor := repositories.NewSQLTransactor(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	inviteRepo := repositories.NewPostgresInviteRepository(dbConn)
	inviteLinkRepo := repositories.NewPostgresInviteLinkRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	waitlistRepo := repositories.NewPostgresWaitlistRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	disputeRepo := repositories.NewPostgresDisputeRepository(dbConn)
	notificationRepo := repositories.NewPostgresNotificationRepository(dbConn)
	auditRepo := repositories.NewPostgresAuditRepository(dbConn)
	logger.Info("repositories initialized")

	notificationService := services.NewNotificationService(notificationRepo, hub, logger)
	auditService := services.NewAuditService(auditRepo, logger)
	authService := services.NewAuthService(userRepo)
	teamService := services.NewTeamService(transactor, teamRepo, playerRepo, userRepo, uploader, logger)
	rosterService := services.NewRosterService(transactor, teamRepo, playerRepo, userRepo, notificationService, logger)
	inviteService := services.NewInviteService(transactor, teamRepo, playerRepo, userRepo, inviteRepo, inviteLinkRepo, notificationService, auditService, logger)
	tournamentService := services.NewTournamentService(transactor, tournamentRepo, userRepo, auditService)
	registrationService := services.NewRegistrationService(transactor, tournamentRepo, teamRepo, playerRepo, userRepo, registrationRepo, waitlistRepo, notificationService, auditService, logger)
	matchService := services.NewMatchService(transactor, tournamentRepo, teamRepo, userRepo, registrationRepo, matchRepo, notificationService, logger)
	disputeService := services.NewDisputeService(transactor, matchRepo, disputeRepo, teamRepo, userRepo, notificationService, auditService, logger)
	logger.Info("services initialized")

	authenticator := middleware.NewAuthenticator(cfg.JWTSecretKey)

	authHandler := handlers.NewAuthHandler(authService, authenticator)
	teamHandler := handlers.NewTeamHandler(teamService, rosterService)
	inviteHandler := handlers.NewInviteHandler(inviteService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, registrationService)
	matchHandler := handlers.NewMatchHandler(matchService, disputeService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webSocketHandler := handlers.NewWebSocketHandler(hub, logger)
	logger.Info("handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		authenticator,
		authHandler,
		teamHandler,
		inviteHandler,
		tournamentHandler,
		matchHandler,
		notificationHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
