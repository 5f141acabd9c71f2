package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a mutex-guarded in-memory Repository used by tests
// and local development. It enforces the same slot-exclusivity semantics
// as the Postgres implementation.
type MemoryRepository struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]Appointment
	clock func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		rows:  make(map[uuid.UUID]Appointment),
		clock: time.Now,
	}
}

// SetClock overrides the timestamp source for created_at/updated_at. Tests only.
func (r *MemoryRepository) SetClock(clock func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = clock
}

func (r *MemoryRepository) Create(ctx context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.Active() && row.ScheduledAt.Equal(appt.ScheduledAt) {
			return ErrSlotTaken
		}
	}

	now := r.clock().UTC()
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = now
	r.rows[appt.ID] = *appt
	return nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (r *MemoryRepository) FindBySlot(ctx context.Context, start time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.Active() && row.ScheduledAt.Equal(start) {
			row := row
			return &row, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) FindByDate(ctx context.Context, day time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	end := day.AddDate(0, 0, 1)
	var out []Appointment
	for _, row := range r.rows {
		if !row.Active() {
			continue
		}
		if row.ScheduledAt.Before(day) || !row.ScheduledAt.Before(end) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *MemoryRepository) FindByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Appointment
	for _, row := range r.rows {
		if row.PatientID == patientID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *MemoryRepository) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	for otherID, other := range r.rows {
		if otherID != id && other.Active() && other.ScheduledAt.Equal(newStart) {
			return nil, ErrSlotTaken
		}
	}
	row.ScheduledAt = newStart
	row.UpdatedAt = r.clock().UTC()
	r.rows[id] = row
	return &row, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if row.Status != from {
		return nil, ErrStaleStatus
	}
	row.Status = to
	row.UpdatedAt = r.clock().UTC()
	r.rows[id] = row
	return &row, nil
}

func (r *MemoryRepository) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if row.Status.Terminal() {
		return nil, ErrStaleStatus
	}
	row.Status = StatusCancelled
	row.UpdatedAt = r.clock().UTC()
	r.rows[id] = row
	return &row, nil
}

var _ Repository = (*MemoryRepository)(nil)
