// Package notifications delivers booking event notifications to the
// clinic operator through a queue and a background worker.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// EventKind identifies what happened to an appointment.
type EventKind string

const (
	KindBooked      EventKind = "appointment_booked"
	KindRescheduled EventKind = "appointment_rescheduled"
	KindCancelled   EventKind = "appointment_cancelled"
)

// Event is the queue payload describing a booking change.
type Event struct {
	ID             string    `json:"id"`
	Kind           EventKind `json:"kind"`
	AppointmentID  string    `json:"appointment_id"`
	PatientName    string    `json:"patient_name"`
	PatientPhone   string    `json:"patient_phone"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	OldScheduledAt time.Time `json:"old_scheduled_at,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func encodeEvent(evt Event) (Event, string, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return Event{}, "", fmt.Errorf("notifications: failed to encode event: %w", err)
	}
	return evt, string(body), nil
}
