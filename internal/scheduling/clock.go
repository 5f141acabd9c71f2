package scheduling

import "time"

// Clock abstracts wall-clock time so cancellation-window and future-date
// checks are deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// FixedClock always reports the same instant. Tests only.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
