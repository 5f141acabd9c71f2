// Package scheduling is the appointment scheduling core: slot generation,
// availability, cancellation policy and the appointment lifecycle.
package scheduling

import (
	"time"

	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/holidays"
)

// SlotDuration is the fixed length of every consultation slot.
const SlotDuration = 2 * time.Hour

// slotStartHours are the canonical Saturday slot starts in clinic-local time.
var slotStartHours = []int{9, 11, 13, 15, 17}

// TimeSlot is a bookable interval. It is always derived from the start
// time, never stored.
type TimeSlot struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

// SlotAt derives the slot beginning at start.
func SlotAt(start time.Time) TimeSlot {
	return TimeSlot{Start: start, End: start.Add(SlotDuration)}
}

// SlotsEqual reports exact equality of the (start, end) pairs.
func SlotsEqual(a, b TimeSlot) bool {
	return a.Start.Equal(b.Start) && a.End.Equal(b.End)
}

// SlotCalculator enumerates the canonical bookable slots of a calendar day.
// The clinic only attends on Saturdays, on five fixed two-hour slots, and
// never on holidays.
type SlotCalculator struct {
	loc      *time.Location
	calendar holidays.Calendar
	clock    Clock
}

// NewSlotCalculator creates a calculator for the clinic timezone.
func NewSlotCalculator(loc *time.Location, calendar holidays.Calendar, clock Clock) *SlotCalculator {
	if loc == nil {
		loc = time.UTC
	}
	if calendar == nil {
		calendar = holidays.NewNationalCalendar()
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &SlotCalculator{loc: loc, calendar: calendar, clock: clock}
}

// DayStart normalizes date to midnight of its calendar day in the clinic
// timezone.
func (c *SlotCalculator) DayStart(date time.Time) time.Time {
	local := date.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
}

// GenerateTimeSlots returns the bookable slots of the day in chronological
// order. Non-Saturdays and holidays have none. Slots whose start is not
// strictly in the future are dropped per-slot, so a same-day request still
// sees the remaining slots.
func (c *SlotCalculator) GenerateTimeSlots(date time.Time) []TimeSlot {
	day := c.DayStart(date)
	if day.Weekday() != time.Saturday {
		return nil
	}
	if c.calendar.IsHoliday(day) {
		return nil
	}

	now := c.clock.Now()
	slots := make([]TimeSlot, 0, len(slotStartHours))
	for _, hour := range slotStartHours {
		start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, c.loc)
		if !start.After(now) {
			continue
		}
		slots = append(slots, SlotAt(start))
	}
	return slots
}

// IsValidTimeSlot applies the same rules to a single candidate slot: it
// must start at a canonical hour of a future, non-holiday Saturday and span
// exactly the slot duration.
func (c *SlotCalculator) IsValidTimeSlot(slot TimeSlot) bool {
	if !slot.End.Equal(slot.Start.Add(SlotDuration)) {
		return false
	}

	start := slot.Start.In(c.loc)
	if start.Weekday() != time.Saturday {
		return false
	}
	if start.Minute() != 0 || start.Second() != 0 || start.Nanosecond() != 0 {
		return false
	}
	canonical := false
	for _, hour := range slotStartHours {
		if start.Hour() == hour {
			canonical = true
			break
		}
	}
	if !canonical {
		return false
	}
	if c.calendar.IsHoliday(c.DayStart(start)) {
		return false
	}
	return start.After(c.clock.Now())
}
