package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// db is the subset of pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository stores appointments in the relational database.
//
// Double-booking safety does not rely on the application-level pre-check
// alone: the appointments table carries a partial unique index on
// scheduled_at over non-cancelled rows, so one of two racing inserts (or
// reschedules) always fails at the storage boundary and surfaces as
// ErrSlotTaken.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db db) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const appointmentColumns = "id, patient_id, scheduled_at, status, created_at, updated_at"

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, appt *Appointment) error {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	query := `
		INSERT INTO appointments (id, patient_id, scheduled_at, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		appt.ID,
		appt.PatientID,
		appt.ScheduledAt,
		appt.Status,
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: insert failed: %w", err)
	}
	return nil
}

// FindByID fetches a single appointment.
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select by id failed: %w", err)
	}
	return appt, nil
}

// FindBySlot returns the active appointment at the slot start, or nil.
func (r *PostgresRepository) FindBySlot(ctx context.Context, start time.Time) (*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE scheduled_at = $1 AND status <> 'cancelled'
	`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, start))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("appointments: select by slot failed: %w", err)
	}
	return appt, nil
}

// FindByDate lists active appointments within [day, day+24h) in slot order.
func (r *PostgresRepository) FindByDate(ctx context.Context, day time.Time) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE scheduled_at >= $1 AND scheduled_at < $2 AND status <> 'cancelled'
		ORDER BY scheduled_at ASC
	`
	rows, err := r.db.Query(ctx, query, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("appointments: select by date failed: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// FindByPatient lists every appointment of the patient, cancelled included,
// oldest slot first.
func (r *PostgresRepository) FindByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1
		ORDER BY scheduled_at ASC
	`
	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("appointments: select by patient failed: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// Reschedule moves the appointment to newStart. The conflict check and the
// update run in one transaction, with the partial unique index as the
// backstop for anything that races in between.
func (r *PostgresRepository) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time) (*Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin reschedule: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var occupant uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM appointments WHERE scheduled_at = $1 AND status <> 'cancelled' AND id <> $2`,
		newStart, id,
	).Scan(&occupant)
	if err == nil {
		return nil, ErrSlotTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("appointments: reschedule conflict check failed: %w", err)
	}

	query := `
		UPDATE appointments
		SET scheduled_at = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + appointmentColumns
	appt, err := scanAppointment(tx.QueryRow(ctx, query, id, newStart))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointments: reschedule update failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointments: commit reschedule: %w", err)
	}
	return appt, nil
}

// UpdateStatus applies from -> to only while the row still holds from.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING ` + appointmentColumns
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id, from, to))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.missingOrStale(ctx, id)
		}
		return nil, fmt.Errorf("appointments: status update failed: %w", err)
	}
	return appt, nil
}

// Cancel soft-deletes a non-terminal appointment.
func (r *PostgresRepository) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status IN ('scheduled', 'confirmed')
		RETURNING ` + appointmentColumns
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.missingOrStale(ctx, id)
		}
		return nil, fmt.Errorf("appointments: cancel failed: %w", err)
	}
	return appt, nil
}

// missingOrStale disambiguates a zero-row conditional update.
func (r *PostgresRepository) missingOrStale(ctx context.Context, id uuid.UUID) error {
	var one int
	err := r.db.QueryRow(ctx, `SELECT 1 FROM appointments WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("appointments: existence check failed: %w", err)
	}
	return ErrStaleStatus
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var appt Appointment
	if err := row.Scan(
		&appt.ID,
		&appt.PatientID,
		&appt.ScheduledAt,
		&appt.Status,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &appt, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var out []Appointment
	for rows.Next() {
		var appt Appointment
		if err := rows.Scan(
			&appt.ID,
			&appt.PatientID,
			&appt.ScheduledAt,
			&appt.Status,
			&appt.CreatedAt,
			&appt.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: rows failed: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Repository = (*PostgresRepository)(nil)
