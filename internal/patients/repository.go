package patients

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository is the patient persistence contract.
type Repository interface {
	Create(ctx context.Context, name, phone string) (*Patient, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// RecordConsent stamps consent_given_at with the given time.
	RecordConsent(ctx context.Context, id uuid.UUID, at time.Time) (*Patient, error)
	List(ctx context.Context) ([]Patient, error)
}

// MemoryRepository keeps patients in memory for tests and local development.
type MemoryRepository struct {
	mu   sync.Mutex
	rows map[uuid.UUID]Patient
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[uuid.UUID]Patient)}
}

func (r *MemoryRepository) Create(ctx context.Context, name, phone string) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := Patient{
		ID:        uuid.New(),
		Name:      name,
		Phone:     phone,
		CreatedAt: time.Now().UTC(),
	}
	r.rows[p.ID] = p
	return &p, nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.rows[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) RecordConsent(ctx context.Context, id uuid.UUID, at time.Time) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.rows[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	at = at.UTC()
	p.ConsentGivenAt = &at
	r.rows[id] = p
	return &p, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Patient, 0, len(r.rows))
	for _, p := range r.rows {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var _ Repository = (*MemoryRepository)(nil)
