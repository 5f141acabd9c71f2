package patients

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

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores patients in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db db) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new patient without consent.
func (r *PostgresRepository) Create(ctx context.Context, name, phone string) (*Patient, error) {
	p := Patient{ID: uuid.New(), Name: name, Phone: phone}
	query := `
		INSERT INTO patients (id, name, phone)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query, p.ID, p.Name, p.Phone).Scan(&p.CreatedAt); err != nil {
		return nil, fmt.Errorf("patients: insert failed: %w", err)
	}
	return &p, nil
}

// FindByID fetches a patient.
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	query := `SELECT id, name, phone, consent_given_at, created_at FROM patients WHERE id = $1`
	var p Patient
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Phone, &p.ConsentGivenAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: select failed: %w", err)
	}
	return &p, nil
}

// RecordConsent stamps consent_given_at.
func (r *PostgresRepository) RecordConsent(ctx context.Context, id uuid.UUID, at time.Time) (*Patient, error) {
	query := `
		UPDATE patients
		SET consent_given_at = $2
		WHERE id = $1
		RETURNING id, name, phone, consent_given_at, created_at
	`
	var p Patient
	err := r.db.QueryRow(ctx, query, id, at.UTC()).Scan(&p.ID, &p.Name, &p.Phone, &p.ConsentGivenAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: consent update failed: %w", err)
	}
	return &p, nil
}

// List returns all patients, oldest first.
func (r *PostgresRepository) List(ctx context.Context) ([]Patient, error) {
	query := `SELECT id, name, phone, consent_given_at, created_at FROM patients ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("patients: list failed: %w", err)
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.ConsentGivenAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("patients: scan failed: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("patients: rows failed: %w", err)
	}
	return out, nil
}

var _ Repository = (*PostgresRepository)(nil)
