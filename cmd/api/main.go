package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/cmd/mainconfig"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/api"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/appointments"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/audit"
	appconfig "github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/config"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/holidays"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/notifications"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/observability/metrics"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/patients"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/scheduling"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting secretary API server", "env", cfg.Env, "port", cfg.Port)

	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		logger.Error("invalid clinic timezone", "timezone", cfg.ClinicTimezone, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, closures fall back to national holidays", "addr", cfg.RedisAddr, "error", err)
		}
		cancel()
	}

	var (
		apptRepo    appointments.Repository
		patientRepo patients.Repository
		auditSvc    *audit.Service
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		apptRepo = appointments.NewPostgresRepository(pool)
		patientRepo = patients.NewPostgresRepository(pool)

		sqlDB := stdlib.OpenDBFromPool(pool)
		defer func() { _ = sqlDB.Close() }()
		auditSvc = audit.NewService(sqlDB)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
		apptRepo = appointments.NewMemoryRepository()
		patientRepo = patients.NewMemoryRepository()
	}

	calendar := holidays.NewClinicCalendar(holidays.NewNationalCalendar(), redisClient, logger)
	clock := scheduling.SystemClock()
	calculator := scheduling.NewSlotCalculator(loc, calendar, clock)
	policy := scheduling.NewCancellationPolicy(time.Duration(cfg.CancellationWindowHours)*time.Hour, clock)
	schedMetrics := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)

	svcCfg := scheduling.ServiceConfig{
		Appointments: apptRepo,
		Patients:     patientRepo,
		Calculator:   calculator,
		Policy:       policy,
		Clock:        clock,
		Logger:       logger,
		Metrics:      schedMetrics,
	}
	if auditSvc != nil {
		svcCfg.Audit = auditSvc
	}
	schedSvc := scheduling.NewService(svcCfg)

	publisher, inlineWorker := buildNotifications(ctx, cfg, logger)

	routerCfg := &api.Config{
		Logger:          logger,
		Appointments:    api.NewAppointmentHandler(schedSvc, patientRepo, publisher, loc, logger),
		Patients:        api.NewPatientHandler(patientRepo, logger),
		Admin:           api.NewAdminHandler(auditSvc, calendar, logger),
		AdminAuthSecret: cfg.AdminJWTSecret,
		MetricsHandler:  promhttp.Handler(),
	}
	r := api.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	if inlineWorker != nil {
		inlineWorker.Start(workerCtx)
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	workerCancel()
	if inlineWorker != nil {
		inlineWorker.Wait()
	}

	logger.Info("server stopped")
}

// buildNotifications picks the queue implementation. With USE_MEMORY_QUEUE
// the worker runs inline in this process; otherwise the dedicated
// notification-worker binary consumes the SQS queue.
func buildNotifications(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*notifications.Publisher, *notifications.Worker) {
	if cfg.UseMemoryQueue {
		queue := notifications.NewMemoryQueue(128)
		worker := notifications.NewWorker(queue, buildSender(ctx, cfg, logger), cfg.OperatorEmail, logger,
			notifications.WithWorkerCount(cfg.WorkerCount),
			notifications.WithReceiveWait(int(cfg.WorkerPollInterval.Seconds())),
		)
		return notifications.NewPublisher(queue, logger), worker
	}

	if cfg.NotificationQueueURL == "" {
		logger.Warn("NOTIFICATION_QUEUE_URL not set, operator notifications disabled")
		return notifications.NewPublisher(nil, logger), nil
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config, operator notifications disabled", "error", err)
		return notifications.NewPublisher(nil, logger), nil
	}
	queue := notifications.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.NotificationQueueURL)
	return notifications.NewPublisher(queue, logger), nil
}

func buildSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notifications.Sender {
	if !cfg.NotifyEmailsOn || cfg.NotifyFromEmail == "" {
		logger.Warn("email notifications disabled, using stub sender")
		return notifications.NewStubSender(logger)
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config, using stub sender", "error", err)
		return notifications.NewStubSender(logger)
	}
	sender := notifications.NewSESSender(sesv2.NewFromConfig(awsCfg), notifications.SESConfig{
		FromEmail: cfg.NotifyFromEmail,
		FromName:  cfg.NotifyFromName,
	}, logger)
	if sender == nil {
		return notifications.NewStubSender(logger)
	}
	return sender
}
