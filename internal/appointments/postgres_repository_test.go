package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPostgresRepositoryWithDB(mock), mock
}

func appointmentRows(appt *Appointment) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "patient_id", "scheduled_at", "status", "created_at", "updated_at"}).
		AddRow(appt.ID, appt.PatientID, appt.ScheduledAt, appt.Status, appt.CreatedAt, appt.UpdatedAt)
}

func TestPostgresCreateMapsUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2026, 9, 5, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), start, StatusScheduled).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_active_slot_idx"})

	appt := &Appointment{PatientID: uuid.New(), ScheduledAt: start, Status: StatusScheduled}
	if err := repo.Create(context.Background(), appt); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken from unique violation, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresCreateReturnsTimestamps(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2026, 9, 5, 12, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), start, StatusScheduled).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	appt := &Appointment{PatientID: uuid.New(), ScheduledAt: start, Status: StatusScheduled}
	if err := repo.Create(context.Background(), appt); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !appt.CreatedAt.Equal(now) {
		t.Fatalf("created_at not populated from RETURNING")
	}
}

func TestPostgresFindBySlotFreeSlotIsNil(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2026, 9, 5, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM appointments").
		WithArgs(start).
		WillReturnRows(pgxmock.NewRows([]string{"id", "patient_id", "scheduled_at", "status", "created_at", "updated_at"}))

	appt, err := repo.FindBySlot(context.Background(), start)
	if err != nil {
		t.Fatalf("find by slot: %v", err)
	}
	if appt != nil {
		t.Fatalf("expected nil for a free slot, got %+v", appt)
	}
}

func TestPostgresFindByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "patient_id", "scheduled_at", "status", "created_at", "updated_at"}))

	if _, err := repo.FindByID(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresRescheduleConflictRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	newStart := time.Date(2026, 9, 5, 14, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM appointments").
		WithArgs(newStart, id).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectRollback()

	if _, err := repo.Reschedule(context.Background(), id, newStart); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresRescheduleCommitsWhenFree(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	newStart := time.Date(2026, 9, 5, 14, 0, 0, 0, time.UTC)
	updated := &Appointment{
		ID:          id,
		PatientID:   uuid.New(),
		ScheduledAt: newStart,
		Status:      StatusScheduled,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM appointments").
		WithArgs(newStart, id).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, newStart).
		WillReturnRows(appointmentRows(updated))
	mock.ExpectCommit()

	got, err := repo.Reschedule(context.Background(), id, newStart)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !got.ScheduledAt.Equal(newStart) {
		t.Fatalf("scheduled_at not updated: %v", got.ScheduledAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresUpdateStatusStale(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, StatusScheduled, StatusConfirmed).
		WillReturnRows(pgxmock.NewRows([]string{"id", "patient_id", "scheduled_at", "status", "created_at", "updated_at"}))
	// Row exists, so the zero-row update means a concurrent status change.
	mock.ExpectQuery("SELECT 1 FROM appointments").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	if _, err := repo.UpdateStatus(context.Background(), id, StatusScheduled, StatusConfirmed); !errors.Is(err, ErrStaleStatus) {
		t.Fatalf("expected ErrStaleStatus, got %v", err)
	}
}

func TestPostgresCancelMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "patient_id", "scheduled_at", "status", "created_at", "updated_at"}))
	mock.ExpectQuery("SELECT 1 FROM appointments").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}))

	if _, err := repo.Cancel(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
