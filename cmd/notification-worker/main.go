package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/cmd/mainconfig"
	appconfig "github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/config"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/notifications"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.UseMemoryQueue {
		logger.Error("notification worker cannot run when USE_MEMORY_QUEUE=true; the API process runs the worker inline")
		os.Exit(1)
	}
	if cfg.NotificationQueueURL == "" {
		logger.Error("NOTIFICATION_QUEUE_URL is required")
		os.Exit(1)
	}

	awsConfig, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	queue := notifications.NewSQSQueue(sqs.NewFromConfig(awsConfig), cfg.NotificationQueueURL)

	var sender notifications.Sender = notifications.NewStubSender(logger)
	if cfg.NotifyEmailsOn && cfg.NotifyFromEmail != "" {
		if ses := notifications.NewSESSender(sesv2.NewFromConfig(awsConfig), notifications.SESConfig{
			FromEmail: cfg.NotifyFromEmail,
			FromName:  cfg.NotifyFromName,
		}, logger); ses != nil {
			sender = ses
		}
	} else {
		logger.Warn("email notifications disabled, using stub sender")
	}

	worker := notifications.NewWorker(queue, sender, cfg.OperatorEmail, logger,
		notifications.WithWorkerCount(cfg.WorkerCount),
		notifications.WithReceiveWait(int(cfg.WorkerPollInterval.Seconds())),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)
	logger.Info("notification worker started", "workers", cfg.WorkerCount)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down notification worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("notification worker stopped")
	case <-doneCtx.Done():
		logger.Error("notification worker shutdown timed out", "error", doneCtx.Err())
	}
}
