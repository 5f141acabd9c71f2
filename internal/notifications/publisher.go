package notifications

import (
	"context"
	"time"

	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/pkg/logging"
)

// Publisher enqueues booking events for the notification worker. Publishing
// is fire-and-forget: a queue failure is logged and never surfaces to the
// caller, so the booking path cannot be blocked by notification plumbing.
type Publisher struct {
	queue  queueClient
	logger *logging.Logger
}

// NewPublisher creates a publisher over the given queue. Queue may be nil,
// in which case every publish is a silent no-op.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, logger: logger}
}

// Publish encodes and enqueues the event asynchronously.
func (p *Publisher) Publish(ctx context.Context, evt Event) {
	if p == nil || p.queue == nil {
		return
	}

	evt, body, err := encodeEvent(evt)
	if err != nil {
		p.logger.Error("notifications: failed to encode event", "kind", evt.Kind, "error", err)
		return
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("notifications: publish panicked", "kind", evt.Kind, "panic", r)
			}
		}()
		sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := p.queue.Send(sendCtx, body); err != nil {
			p.logger.Error("notifications: failed to enqueue event",
				"kind", evt.Kind,
				"event_id", evt.ID,
				"error", err,
			)
			return
		}
		p.logger.Debug("notifications: event enqueued", "kind", evt.Kind, "event_id", evt.ID)
	}()
}
