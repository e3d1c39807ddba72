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

	"github.com/Dosada05/matchday/brackets"
	"github.com/Dosada05/matchday/config"
	"github.com/Dosada05/matchday/db"
	"github.com/Dosada05/matchday/handlers"
	"github.com/Dosada05/matchday/metrics"
	"github.com/Dosada05/matchday/middleware"
	"github.com/Dosada05/matchday/realtime"
	"github.com/Dosada05/matchday/repositories"
	api "github.com/Dosada05/matchday/routes"
	"github.com/Dosada05/matchday/services"
	"github.com/Dosada05/matchday/storage"
	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	if err := db.EnsureSchema(ctx, dbConn); err != nil {
		logger.Error("failed to apply database schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database connection established")

	metrics.Register(nil)

	// Архив жеребьёвок в Cloudflare R2 (необязателен)
	var drawArchive services.DrawArchiver
	if cfg.ArchiveEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
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
		drawArchive = storage.NewDrawArchive(uploader)
		logger.Info("Cloudflare R2 draw archive enabled")
	} else {
		logger.Info("R2 settings incomplete, draw archive disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := realtime.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	lineupRepo := repositories.NewPostgresLineupRepository(dbConn)
	intentRepo := repositories.NewPostgresIntentRepository(dbConn)
	verificationRepo := repositories.NewPostgresVerificationRepository(dbConn)
	requestRepo := repositories.NewPostgresRequestRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	entryRepo := repositories.NewPostgresEntryRepository(dbConn)
	notificationRepo := repositories.NewPostgresNotificationRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	notificationService := services.NewNotificationService(notificationRepo, wsHub, logger)
	constraintService := services.NewConstraintService(matchRepo, time.Now)
	matchService := services.NewMatchService(
		dbConn,
		matchRepo,
		lineupRepo,
		intentRepo,
		teamRepo,
		constraintService,
		notificationService,
		time.Now,
		logger,
	)
	consensusService := services.NewConsensusService(dbConn, matchRepo, verificationRepo, teamRepo, notificationService, logger)
	requestService := services.NewRequestService(requestRepo, notificationService, logger)
	tournamentService := services.NewTournamentService(dbConn, tournamentRepo, entryRepo, teamRepo, logger)
	drawService := services.NewDrawService(
		dbConn,
		tournamentRepo,
		entryRepo,
		teamRepo,
		brackets.NewGroupDrawGenerator(nil),
		drawArchive,
		notificationService,
		time.Now,
		logger,
	)
	standingsService := services.NewStandingsService(tournamentRepo, entryRepo)
	teamService := services.NewTeamService(teamRepo, constraintService)
	reconcileService := services.NewReconcileService(dbConn, intentRepo, lineupRepo, time.Now, logger)
	logger.Info("Services initialized")

	// Планировщик дозаписи частично сохранённых матчей
	go runReconcileLoop(ctx, reconcileService, cfg.ReconcileInterval, logger)

	// Инициализация обработчиков HTTP
	matchHandler := handlers.NewMatchHandler(matchService, consensusService)
	requestHandler := handlers.NewRequestHandler(requestService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, drawService, standingsService)
	teamHandler := handlers.NewTeamHandler(teamService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, cfg.CORSOrigins, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Options{
			JWTSecret:      []byte(cfg.JWTSecretKey),
			CORSOrigins:    cfg.CORSOrigins,
			RequestTimeout: cfg.RequestTimeout,
			WriteLimiter:   middleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst),
			Logger:         logger,
		},
		matchHandler,
		requestHandler,
		tournamentHandler,
		teamHandler,
		notificationHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
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

// runReconcileLoop запускает проход сразу при старте, затем по тикеру до отмены ctx.
func runReconcileLoop(ctx context.Context, svc services.ReconcileService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("Reconcile scheduler started", slog.Duration("interval", interval))

	run := func() {
		report, err := svc.Run(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("Scheduler: reconcile run failed", slog.Any("error", err))
			}
			return
		}
		if report.Scanned > 0 {
			logger.Info("Scheduler: reconcile run finished",
				slog.Int("scanned", report.Scanned),
				slog.Int("repaired", report.Repaired),
				slog.Int("skipped", report.Skipped),
				slog.Int("failed", report.Failed),
				slog.Int("abandoned", report.Abandoned))
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Reconcile scheduler stopped")
			return
		case <-ticker.C:
			run()
		}
	}
}
