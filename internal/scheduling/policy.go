package scheduling

import (
	"fmt"
	"math"
	"time"
)

// DefaultCancellationWindow is the protected period before an appointment
// during which self-service cancellation is refused.
const DefaultCancellationWindow = 12 * time.Hour

// CancellationPolicy decides whether a cancellation request falls inside
// the protected pre-appointment window.
type CancellationPolicy struct {
	window time.Duration
	clock  Clock
}

// NewCancellationPolicy creates a policy with the given window. A zero or
// negative window falls back to the default.
func NewCancellationPolicy(window time.Duration, clock Clock) *CancellationPolicy {
	if window <= 0 {
		window = DefaultCancellationWindow
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &CancellationPolicy{window: window, clock: clock}
}

// CanCancel reports whether scheduledAt is at least the full window away.
// An appointment exactly on the boundary may still be cancelled.
func (p *CancellationPolicy) CanCancel(scheduledAt time.Time) bool {
	return scheduledAt.Sub(p.clock.Now()) >= p.window
}

// HoursUntil returns the floor of the hours remaining before scheduledAt.
// It is negative for past appointments.
func (p *CancellationPolicy) HoursUntil(scheduledAt time.Time) int {
	return int(math.Floor(scheduledAt.Sub(p.clock.Now()).Hours()))
}

// ErrorMessage explains a refused cancellation, naming both the required
// window and the actual remaining time.
func (p *CancellationPolicy) ErrorMessage(scheduledAt time.Time) string {
	return fmt.Sprintf(
		"appointments can only be cancelled at least %d hours in advance; this appointment is %d hours away",
		int(p.window.Hours()),
		p.HoursUntil(scheduledAt),
	)
}
