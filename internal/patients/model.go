// Package patients manages patient registration and consent.
package patients

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrPatientNotFound is returned when no patient matches the given id.
var ErrPatientNotFound = errors.New("patients: not found")

// Patient is a registered patient of the clinic.
type Patient struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone"`
	// ConsentGivenAt is nil until the patient accepts the data-handling
	// terms. Booking is refused while it is nil.
	ConsentGivenAt *time.Time `json:"consent_given_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// HasConsent reports whether the consent gate is satisfied.
func (p *Patient) HasConsent() bool {
	return p.ConsentGivenAt != nil
}
