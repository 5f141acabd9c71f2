// Package appointments holds the appointment model and its persistence contract.
package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Appointment is a booked consultation slot for a patient.
// Rows are never hard-deleted; cancellation is the terminal soft delete.
type Appointment struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Active reports whether the appointment still occupies its slot for
// conflict purposes. Only cancellation frees a slot.
func (a *Appointment) Active() bool {
	return a.Status != StatusCancelled
}
