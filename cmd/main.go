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

	"github.com/Dosada05/tournament-wallet/config"
	"github.com/Dosada05/tournament-wallet/db"
	"github.com/Dosada05/tournament-wallet/handlers"
	"github.com/Dosada05/tournament-wallet/jobs"
	"github.com/Dosada05/tournament-wallet/notifications"
	"github.com/Dosada05/tournament-wallet/realtime"
	"github.com/Dosada05/tournament-wallet/repositories"
	api "github.com/Dosada05/tournament-wallet/routes"
	"github.com/Dosada05/tournament-wallet/services"
	"github.com/Dosada05/tournament-wallet/storage"
	"github.com/Dosada05/tournament-wallet/telemetry"
	"github.com/go-chi/chi/v5"
)

const version = "0.1.0"

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("store", cfg.StoreDriver),
		slog.String("platform_fee_rate", cfg.PlatformFeeRate.String()))

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:       cfg.OTelEndpoint,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Error("failed to flush telemetry", slog.Any("error", err))
		}
	}()

	// Инициализация хранилища
	policy := repositories.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.StoreMaxAttempts

	var (
		store            repositories.LedgerStore
		notificationRepo repositories.NotificationRepository
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		dbConn, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}()
		if err := db.Migrate(ctx, dbConn); err != nil {
			return err
		}
		logger.Info("database connection established")

		store = repositories.NewPostgresLedgerStore(dbConn, policy, logger)
		notificationRepo = repositories.NewPostgresNotificationRepository(dbConn)
	default:
		logger.Warn("using in-memory store, data will be lost on restart")
		store = repositories.NewMemoryLedgerStore(policy, logger)
		notificationRepo = repositories.NewMemoryNotificationRepository()
	}

	// Архив отчетов о выплатах (Cloudflare R2), необязателен
	r2Config := storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	}
	var uploader storage.FileUploader
	if r2Config.Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, r2Config)
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	}

	// Инициализация WebSocket Hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	wsHub := realtime.NewHub(logger)
	go wsHub.Run(hubCtx)

	emitter := notifications.NewEmitter(notificationRepo, wsHub, logger)

	// Инициализация сервисов
	walletService := services.NewWalletService(store, logger)
	approvalService := services.NewApprovalService(store, emitter, logger)
	registrationService := services.NewRegistrationService(store, emitter, logger)
	prizeService := services.NewPrizeService(store, emitter, uploader, logger)
	tournamentService := services.NewTournamentService(store, emitter, cfg.PlatformFeeRate, logger)
	reconciliationService := services.NewReconciliationService(store, logger)
	logger.Info("Services initialized")

	// Фоновые задачи: старт турниров по времени и сверка балансов
	scheduler, err := jobs.NewScheduler(logger,
		jobs.Task{
			Name:     "tournament-activation",
			Interval: cfg.StatusSchedulerInterval,
			Run: func(ctx context.Context) error {
				_, err := tournamentService.ActivateDue(ctx)
				return err
			},
		},
		jobs.Task{
			Name:     "ledger-reconciliation",
			Interval: cfg.ReconcileInterval,
			Run: func(ctx context.Context) error {
				_, err := reconciliationService.Run(ctx)
				return err
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Error("failed to stop scheduler", slog.Any("error", err))
		}
	}()

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Wallet:         handlers.NewWalletHandler(walletService),
		Tournament:     handlers.NewTournamentHandler(tournamentService, registrationService),
		Admin:          handlers.NewAdminHandler(tournamentService, prizeService, approvalService, reconciliationService),
		Notification:   handlers.NewNotificationHandler(emitter),
		WebSocket:      handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins, logger),
		JWTSecretKey:   cfg.JWTSecretKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
	}
	return nil
}
