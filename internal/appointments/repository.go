package appointments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no appointment matches the given id.
	ErrNotFound = errors.New("appointments: not found")
	// ErrSlotTaken is returned when an insert or reschedule collides with
	// an active appointment in the same slot. The Postgres implementation
	// raises it from the storage-level uniqueness guarantee, so it fires
	// even when two requests race past the application pre-check.
	ErrSlotTaken = errors.New("appointments: slot already booked")
	// ErrStaleStatus is returned by conditional updates when the row's
	// status no longer matches what the caller read.
	ErrStaleStatus = errors.New("appointments: status changed concurrently")
)

// Repository is the persistence contract consumed by the scheduling core.
//
// Slot-conflict queries (FindBySlot) and date listings (FindByDate) exclude
// cancelled appointments; cancelled rows never block a slot. FindByDate
// returns rows in chronological order.
type Repository interface {
	Create(ctx context.Context, appt *Appointment) error
	FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// FindBySlot returns the active appointment occupying the slot starting
	// at start, or nil when the slot is free.
	FindBySlot(ctx context.Context, start time.Time) (*Appointment, error)
	// FindByDate returns active appointments within [day, day+24h), where
	// day is midnight in the clinic timezone.
	FindByDate(ctx context.Context, day time.Time) ([]Appointment, error)
	FindByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
	// Reschedule moves the appointment to newStart. Check and update are
	// atomic as a unit; a collision yields ErrSlotTaken.
	Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time) (*Appointment, error)
	// UpdateStatus applies from -> to only if the row still holds from,
	// otherwise ErrStaleStatus.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	// Cancel soft-deletes: it forces status cancelled on a non-terminal
	// appointment and returns ErrStaleStatus if the row is already terminal.
	Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error)
}
