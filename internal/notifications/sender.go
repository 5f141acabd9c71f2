package notifications

import (
	"context"

	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/pkg/logging"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a rendered notification. Implementations can be swapped
// (SES, SMTP, stub) without changing the worker.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// StubSender logs instead of sending. Used in tests and when delivery is
// not configured.
type StubSender struct {
	logger *logging.Logger
}

// NewStubSender creates a sender that logs but does not send.
func NewStubSender(logger *logging.Logger) *StubSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubSender{logger: logger}
}

func (s *StubSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info("stub sender: would send notification", "to", msg.To, "subject", msg.Subject)
	return nil
}

var _ Sender = (*StubSender)(nil)
