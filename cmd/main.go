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

	_ "github.com/lib/pq"

	"github.com/playnow/reservas-api/config"
	"github.com/playnow/reservas-api/db"
	"github.com/playnow/reservas-api/events"
	"github.com/playnow/reservas-api/handlers"
	"github.com/playnow/reservas-api/jobs"
	"github.com/playnow/reservas-api/ratelimit"
	"github.com/playnow/reservas-api/repositories"
	"github.com/playnow/reservas-api/routes"
	"github.com/playnow/reservas-api/services"
	"github.com/playnow/reservas-api/storage"
)

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

	// Подключение к базе данных и миграции
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
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
	logger.Info("database connection established")

	if err := db.Migrate(dbConn); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	// Почтовый транспорт опционален: без него резервации работают,
	// письма просто не уходят.
	var mailer services.ReservationMailer
	if cfg.EmailEnabled() {
		emailService, err := services.NewEmailService(cfg)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		mailer = emailService
		logger.Info("email service initialized", slog.String("smtp_host", cfg.SMTPHost))
	} else {
		logger.Info("email service disabled: SMTP not configured")
	}

	// Хранилище архива отчётов (Cloudflare R2), тоже опциональное.
	var uploader storage.FileUploader
	if cfg.StorageEnabled() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
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
	} else {
		logger.Info("report archive disabled: R2 not configured")
	}

	// WebSocket-хаб для панели администратора
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := events.NewHub(logger)
	go hub.Run(hubCtx)
	logger.Info("event hub started")

	// Репозитории
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	reservationRepo := repositories.NewPostgresReservationRepository(dbConn)
	reviewRepo := repositories.NewPostgresReviewRepository(dbConn)

	// Сервисы
	authService := services.NewAuthService(userRepo)
	reservationService := services.NewReservationService(reservationRepo, userRepo, mailer, hub, logger)
	reviewService := services.NewReviewService(reviewRepo)
	reportService := services.NewReportService(reservationRepo, uploader)
	logger.Info("services initialized")

	// Планировщик напоминаний
	scheduler, err := jobs.NewScheduler(logger)
	if err != nil {
		logger.Error("failed to initialize scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	reminderJob := jobs.NewReminderJob(reservationRepo, mailer, logger)
	if err := reminderJob.Register(scheduler); err != nil {
		logger.Error("failed to register reminder job", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Error("failed to stop scheduler", slog.Any("error", err))
		}
	}()

	// Лимитер публичных ссылок подтверждения/отмены
	actionLimiter := ratelimit.New(nil)
	defer actionLimiter.Close()

	// Обработчики HTTP и маршруты
	handlerSet := routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		Reservations: handlers.NewReservationHandler(reservationService),
		Admin:        handlers.NewAdminHandler(reservationService),
		Reports:      handlers.NewReportHandler(reportService),
		Reviews:      handlers.NewReviewHandler(reviewService),
		Events:       handlers.NewEventsHandler(hub, cfg.AllowedOrigins),
	}
	router := routes.Setup(handlerSet, cfg.JWTSecretKey, cfg.AllowedOrigins, actionLimiter)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
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
