package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/appointments"
)

// AvailabilityChecker combines the slot calculator with existing bookings
// to produce the free slots of a date.
type AvailabilityChecker struct {
	calc *SlotCalculator
	repo appointments.Repository
}

// NewAvailabilityChecker creates a checker.
func NewAvailabilityChecker(calc *SlotCalculator, repo appointments.Repository) *AvailabilityChecker {
	if calc == nil {
		panic("scheduling: slot calculator required")
	}
	if repo == nil {
		panic("scheduling: appointment repository required")
	}
	return &AvailabilityChecker{calc: calc, repo: repo}
}

// CheckAvailability returns the unbooked canonical slots of the date in
// chronological order. Days with no candidate slots skip the repository
// entirely.
func (c *AvailabilityChecker) CheckAvailability(ctx context.Context, date time.Time) ([]TimeSlot, error) {
	slots := c.calc.GenerateTimeSlots(date)
	if len(slots) == 0 {
		return nil, nil
	}

	booked, err := c.repo.FindByDate(ctx, c.calc.DayStart(date))
	if err != nil {
		return nil, fmt.Errorf("scheduling: list booked appointments: %w", err)
	}

	free := make([]TimeSlot, 0, len(slots))
	for _, slot := range slots {
		occupied := false
		for i := range booked {
			if SlotsEqual(SlotAt(booked[i].ScheduledAt), slot) {
				occupied = true
				break
			}
		}
		if !occupied {
			free = append(free, slot)
		}
	}
	return free, nil
}
