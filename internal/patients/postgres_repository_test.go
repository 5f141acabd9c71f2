package patients

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresFindByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepositoryWithDB(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, name, phone, consent_given_at, created_at FROM patients").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "phone", "consent_given_at", "created_at"}))

	if _, err := repo.FindByID(context.Background(), id); !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestPostgresRecordConsent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepositoryWithDB(mock)

	id := uuid.New()
	at := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	created := at.Add(-48 * time.Hour)

	mock.ExpectQuery("UPDATE patients").
		WithArgs(id, at).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "phone", "consent_given_at", "created_at"}).
			AddRow(id, "Maria Souza", "+5511999990000", &at, created))

	p, err := repo.RecordConsent(context.Background(), id, at)
	if err != nil {
		t.Fatalf("record consent: %v", err)
	}
	if !p.HasConsent() || !p.ConsentGivenAt.Equal(at) {
		t.Fatalf("consent timestamp not set: %+v", p)
	}
}

func TestMemoryConsentLifecycle(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	p, err := repo.Create(ctx, "Joao Lima", "+5511988880000")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.HasConsent() {
		t.Fatal("new patient must not have consent")
	}

	at := time.Now()
	updated, err := repo.RecordConsent(ctx, p.ID, at)
	if err != nil {
		t.Fatalf("record consent: %v", err)
	}
	if !updated.HasConsent() {
		t.Fatal("consent not recorded")
	}

	if _, err := repo.FindByID(ctx, uuid.New()); !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}
