package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/pkg/logging"
)

const (
	defaultWorkerCount      = 2
	defaultReceiveBatchSize = 5
	defaultReceiveWaitSecs  = 10
)

type workerConfig struct {
	workers          int
	receiveBatchSize int
	receiveWaitSecs  int
}

// WorkerOption adjusts worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets how many goroutines poll the queue.
func WithWorkerCount(n int) WorkerOption {
	return func(cfg *workerConfig) {
		if n > 0 {
			cfg.workers = n
		}
	}
}

// WithReceiveWait sets the long-poll wait in seconds.
func WithReceiveWait(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds >= 0 {
			cfg.receiveWaitSecs = seconds
		}
	}
}

// Worker consumes booking events from the queue and delivers operator
// notifications through the configured sender.
type Worker struct {
	queue         queueClient
	sender        Sender
	operatorEmail string
	logger        *logging.Logger
	cfg           workerConfig
	wg            sync.WaitGroup
}

// NewWorker creates a notification worker.
func NewWorker(queue queueClient, sender Sender, operatorEmail string, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if queue == nil {
		panic("notifications: queue cannot be nil")
	}
	if sender == nil {
		panic("notifications: sender cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveBatchSize: defaultReceiveBatchSize,
		receiveWaitSecs:  defaultReceiveWaitSecs,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		queue:         queue,
		sender:        sender,
		operatorEmail: operatorEmail,
		logger:        logger,
		cfg:           cfg,
	}
}

// Start launches worker goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("notification worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("notification worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive notification events", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	var evt Event
	if err := json.Unmarshal([]byte(msg.Body), &evt); err != nil {
		// Undecodable messages would loop forever; drop them.
		w.logger.Error("failed to decode notification event", "error", err, "msg_id", msg.ID)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	w.logger.Info("processing notification event",
		"event_id", evt.ID,
		"kind", evt.Kind,
		"appointment_id", evt.AppointmentID,
		"age", eventAge(evt, time.Now().UTC()).String(),
	)

	rendered := renderMessage(evt, w.operatorEmail)
	if err := w.sender.Send(ctx, rendered); err != nil {
		// Leave the message on the queue so another receive retries it.
		w.logger.Error("failed to deliver notification",
			"event_id", evt.ID,
			"kind", evt.Kind,
			"error", err,
		)
		return
	}

	w.deleteMessage(ctx, msg.ReceiptHandle)
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if err := w.queue.Delete(ctx, receiptHandle); err != nil {
		w.logger.Error("failed to delete notification message", "error", err)
	}
}
