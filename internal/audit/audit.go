// Package audit records immutable scheduling audit events.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Known audit actions emitted by the scheduling service.
const (
	ActionBooked        = "appointment_booked"
	ActionRescheduled   = "appointment_rescheduled"
	ActionCancelled     = "appointment_cancelled"
	ActionStatusUpdated = "appointment_status_updated"
)

// Event is one immutable audit record. Events are append-only: there is
// no update or delete path.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	PatientID uuid.UUID       `json:"patient_id"`
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Service writes and queries audit events.
type Service struct {
	db *sql.DB
}

// NewService creates an audit service on the given database handle.
func NewService(db *sql.DB) *Service {
	if db == nil {
		panic("audit: database handle required")
	}
	return &Service{db: db}
}

// Record appends an audit event. The payload is marshalled to JSON; a
// nil payload is stored as SQL NULL.
func (s *Service) Record(ctx context.Context, patientID uuid.UUID, action string, payload any) error {
	var details []byte
	if payload != nil {
		var err error
		details, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("audit: marshal payload: %w", err)
		}
	}

	query := `
		INSERT INTO audit_events (id, patient_id, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(),
		patientID,
		action,
		nullBytes(details),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("audit: record event: %w", err)
	}
	return nil
}

// Filter narrows a Query. Zero values mean "no constraint".
type Filter struct {
	PatientID uuid.UUID
	Action    string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// Query retrieves audit events newest first.
func (s *Service) Query(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, patient_id, action, payload, created_at
		FROM audit_events
		WHERE 1=1
	`
	var args []any
	argIdx := 1

	if filter.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argIdx)
		args = append(args, filter.PatientID)
		argIdx++
	}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, filter.Action)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var payload []byte
		if err := rows.Scan(&e.ID, &e.PatientID, &e.Action, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		e.Payload = payload
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate events: %w", err)
	}
	return events, nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
