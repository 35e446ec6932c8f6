package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/config"
	"github.com/xavierca1/ligue-crm/internal/infra/database"
	"github.com/xavierca1/ligue-crm/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/whatsapp"
	"github.com/xavierca1/ligue-crm/internal/infra/mail"
	"github.com/xavierca1/ligue-crm/internal/infra/queue"
	"github.com/xavierca1/ligue-crm/internal/infra/worker"
	"github.com/xavierca1/ligue-crm/internal/logging"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// logger config is part of what failed to load
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, "ligue-crm")
	defer func() { _ = logger.Sync() }()

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	res, err := database.Migrate(db)
	if err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("schema ready", zap.Uint("version", res.Version), zap.Bool("changed", res.Changed))

	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq connection failed", zap.Error(err))
	}
	defer rabbitMQ.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Repositories
	leadRepo := database.NewLeadRepository(db)
	conversationRepo := database.NewConversationRepository(db)
	usageRepo := database.NewUsageRepository(db)
	notificationRepo := database.NewNotificationRepository(db)

	// 2. Delivery: producer on the main channel, worker on its own
	producer := queue.NewProducer(rabbitMQ.Ch)

	workerCh, err := rabbitMQ.Conn.Channel()
	if err != nil {
		logger.Fatal("open worker channel failed", zap.Error(err))
	}
	defer workerCh.Close()

	textSender := whatsapp.NewClient(cfg.WhatsApp.AccessToken, cfg.WhatsApp.PhoneID, cfg.WhatsApp.BaseURL)
	mailSender := mail.NewEmailSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.From)

	deliveryWorker := queue.NewWorker(workerCh, textSender, mailSender, logger.Named("delivery"))
	go func() {
		if err := deliveryWorker.Start(ctx, queue.QueueName); err != nil {
			logger.Error("delivery worker exited", zap.Error(err))
		}
	}()

	// 3. Use cases
	followUpUC := usecase.NewFollowUpUseCase(leadRepo, conversationRepo, producer, cfg.Cadence, logger.Named("followup"))
	followUpUC.DeliveryTimeout = cfg.DeliveryTimeout
	followUpUC.Concurrency = cfg.FollowUpConcurrency

	usageUC := usecase.NewUsageNotifierUseCase(usageRepo, notificationRepo, cfg.UsageNearRatio, cfg.UsageLimitRatio, logger.Named("usage"))
	captureUC := usecase.NewCaptureLeadUseCase(leadRepo, conversationRepo, producer, cfg.DeliveryTimeout, logger.Named("capture"))
	replyUC := usecase.NewRecordReplyUseCase(leadRepo, conversationRepo, logger.Named("reply"))

	// 4. Scheduler
	scheduler := worker.NewScheduler(logger.Named("scheduler"),
		worker.NewFollowUpJob(followUpUC, cfg.FollowUpInterval, cfg.TickTimeout, logger),
		worker.NewUsageJob(usageUC, cfg.UsageInterval, cfg.TickTimeout, logger),
	)
	scheduler.Start(ctx)

	// 5. HTTP
	limiter := handlers.NewRateLimiter(10, time.Minute)
	defer limiter.Close()

	router := handlers.Router{
		Leads:         handlers.NewLeadHandler(captureUC, replyUC, limiter, logger.Named("http")),
		Conversations: handlers.NewConversationHandler(leadRepo, conversationRepo, logger.Named("http")),
		Notifications: handlers.NewNotificationHandler(notificationRepo, logger.Named("http")),
		Admin:         handlers.NewAdminHandler(scheduler, logger.Named("http")),
		Health:        handlers.NewHealthHandler(db, rabbitMQ.Conn, version),
		AllowedOrigin: []string{"http://localhost:5173", "*"},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	scheduler.Stop()
}
