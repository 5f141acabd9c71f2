package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/appointments"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/observability/metrics"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/patients"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/pkg/logging"
)

var tracer = otel.Tracer("secretary.internal.scheduling")

// AuditLog records scheduling audit events. Failures are swallowed and
// logged at the emission site; they never fail the primary operation.
type AuditLog interface {
	Record(ctx context.Context, patientID uuid.UUID, action string, payload any) error
}

// ServiceConfig carries the collaborators of the scheduling service.
type ServiceConfig struct {
	Appointments appointments.Repository
	Patients     patients.Repository
	Calculator   *SlotCalculator
	Policy       *CancellationPolicy
	Audit        AuditLog
	Clock        Clock
	Logger       *logging.Logger
	Metrics      *metrics.SchedulingMetrics
}

// Service orchestrates booking, rescheduling, cancellation and status
// transitions, enforcing every scheduling invariant.
type Service struct {
	repo         appointments.Repository
	patients     patients.Repository
	calc         *SlotCalculator
	availability *AvailabilityChecker
	policy       *CancellationPolicy
	audit        AuditLog
	clock        Clock
	logger       *logging.Logger
	metrics      *metrics.SchedulingMetrics
}

// NewService constructs the scheduling service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Appointments == nil {
		panic("scheduling: appointment repository required")
	}
	if cfg.Patients == nil {
		panic("scheduling: patient repository required")
	}
	if cfg.Calculator == nil {
		panic("scheduling: slot calculator required")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Policy == nil {
		cfg.Policy = NewCancellationPolicy(DefaultCancellationWindow, cfg.Clock)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Service{
		repo:         cfg.Appointments,
		patients:     cfg.Patients,
		calc:         cfg.Calculator,
		availability: NewAvailabilityChecker(cfg.Calculator, cfg.Appointments),
		policy:       cfg.Policy,
		audit:        cfg.Audit,
		clock:        cfg.Clock,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
}

// CheckAvailability returns the free slots of the date.
func (s *Service) CheckAvailability(ctx context.Context, date time.Time) ([]TimeSlot, error) {
	ctx, span := tracer.Start(ctx, "scheduling.check_availability")
	defer span.End()
	span.SetAttributes(attribute.String("secretary.date", date.Format(time.DateOnly)))

	return s.availability.CheckAvailability(ctx, date)
}

// Book creates a new appointment with status scheduled.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, scheduledAt time.Time) (appt *appointments.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.book")
	defer span.End()
	span.SetAttributes(attribute.String("secretary.patient_id", patientID.String()))
	defer s.observe("book", s.clock.Now(), &err)

	slot := SlotAt(scheduledAt)
	if !s.calc.IsValidTimeSlot(slot) {
		return nil, errInvalidSlot("scheduled_at %s is not a bookable slot", scheduledAt.Format(time.RFC3339))
	}

	patient, err := s.patients.FindByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, patients.ErrPatientNotFound) {
			return nil, errNotFound("patient %s not found", patientID)
		}
		return nil, s.internal(ctx, "book", err, "patient_id", patientID)
	}
	if !patient.HasConsent() {
		return nil, errConsentRequired("patient %s has not given consent", patientID)
	}

	existing, err := s.repo.FindBySlot(ctx, slot.Start)
	if err != nil {
		return nil, s.internal(ctx, "book", err, "patient_id", patientID)
	}
	if existing != nil {
		s.metrics.ObserveSlotConflict()
		return nil, errSlotConflict("slot %s is already booked", slot.Start.Format(time.RFC3339))
	}

	appt = &appointments.Appointment{
		ID:          uuid.New(),
		PatientID:   patientID,
		ScheduledAt: slot.Start,
		Status:      appointments.StatusScheduled,
	}
	if err := s.repo.Create(ctx, appt); err != nil {
		// The storage-level uniqueness guarantee catches bookings that
		// raced past the pre-check above.
		if errors.Is(err, appointments.ErrSlotTaken) {
			s.metrics.ObserveSlotConflict()
			return nil, errSlotConflict("slot %s is already booked", slot.Start.Format(time.RFC3339))
		}
		return nil, s.internal(ctx, "book", err, "patient_id", patientID)
	}

	s.emitAudit(ctx, patientID, "appointment_booked", map[string]any{
		"appointment_id": appt.ID.String(),
		"scheduled_at":   appt.ScheduledAt.Format(time.RFC3339),
	})
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"patient_id", patientID,
		"scheduled_at", appt.ScheduledAt.Format(time.RFC3339),
	)
	return appt, nil
}

// Reschedule moves an appointment to a new slot.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newScheduledAt time.Time) (appt *appointments.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("secretary.appointment_id", id.String()))
	defer s.observe("reschedule", s.clock.Now(), &err)

	current, err := s.loadAppointment(ctx, "reschedule", id)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, errInvalidTransition("cannot reschedule %s appointment", current.Status)
	}

	slot := SlotAt(newScheduledAt)
	if !s.calc.IsValidTimeSlot(slot) {
		return nil, errInvalidSlot("scheduled_at %s is not a bookable slot", newScheduledAt.Format(time.RFC3339))
	}

	// Rescheduling onto the appointment's own slot is not a conflict.
	existing, err := s.repo.FindBySlot(ctx, slot.Start)
	if err != nil {
		return nil, s.internal(ctx, "reschedule", err, "appointment_id", id)
	}
	if existing != nil && existing.ID != id {
		s.metrics.ObserveSlotConflict()
		return nil, errSlotConflict("slot %s is already booked", slot.Start.Format(time.RFC3339))
	}

	oldScheduledAt := current.ScheduledAt
	appt, err = s.repo.Reschedule(ctx, id, slot.Start)
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrSlotTaken):
			s.metrics.ObserveSlotConflict()
			return nil, errSlotConflict("slot %s is already booked", slot.Start.Format(time.RFC3339))
		case errors.Is(err, appointments.ErrNotFound):
			return nil, errNotFound("appointment %s not found", id)
		default:
			return nil, s.internal(ctx, "reschedule", err, "appointment_id", id)
		}
	}

	s.emitAudit(ctx, appt.PatientID, "appointment_rescheduled", map[string]any{
		"appointment_id":   appt.ID.String(),
		"old_scheduled_at": oldScheduledAt.Format(time.RFC3339),
		"new_scheduled_at": appt.ScheduledAt.Format(time.RFC3339),
	})
	s.logger.Info("appointment rescheduled",
		"appointment_id", id,
		"old_scheduled_at", oldScheduledAt.Format(time.RFC3339),
		"new_scheduled_at", appt.ScheduledAt.Format(time.RFC3339),
	)
	return appt, nil
}

// Cancel soft-deletes an appointment, honoring the cancellation window.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (appt *appointments.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("secretary.appointment_id", id.String()))
	defer s.observe("cancel", s.clock.Now(), &err)

	current, err := s.loadAppointment(ctx, "cancel", id)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, errInvalidTransition("cannot cancel %s appointment", current.Status)
	}
	if !s.policy.CanCancel(current.ScheduledAt) {
		return nil, errCancellationWindow(s.policy.ErrorMessage(current.ScheduledAt))
	}

	appt, err = s.repo.Cancel(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrStaleStatus):
			return nil, errInvalidTransition("appointment %s was already finalized", id)
		case errors.Is(err, appointments.ErrNotFound):
			return nil, errNotFound("appointment %s not found", id)
		default:
			return nil, s.internal(ctx, "cancel", err, "appointment_id", id)
		}
	}

	s.emitAudit(ctx, appt.PatientID, "appointment_cancelled", map[string]any{
		"appointment_id": appt.ID.String(),
		"scheduled_at":   appt.ScheduledAt.Format(time.RFC3339),
		"reason":         reason,
	})
	s.logger.Info("appointment cancelled", "appointment_id", id, "reason", reason)
	return appt, nil
}

// UpdateStatus applies a table-constrained status transition.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, target appointments.Status) (appt *appointments.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.update_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("secretary.appointment_id", id.String()),
		attribute.String("secretary.target_status", target.String()),
	)
	defer s.observe("update_status", s.clock.Now(), &err)

	if !target.Valid() {
		return nil, errInvalidTransition("unknown status %q", target)
	}

	current, err := s.loadAppointment(ctx, "update_status", id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(target) {
		return nil, errInvalidTransition("cannot transition appointment from %s to %s", current.Status, target)
	}

	appt, err = s.repo.UpdateStatus(ctx, id, current.Status, target)
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrStaleStatus):
			return nil, errInvalidTransition("appointment %s status changed concurrently, re-read and retry", id)
		case errors.Is(err, appointments.ErrNotFound):
			return nil, errNotFound("appointment %s not found", id)
		default:
			return nil, s.internal(ctx, "update_status", err, "appointment_id", id)
		}
	}

	s.emitAudit(ctx, appt.PatientID, "appointment_status_updated", map[string]any{
		"appointment_id": appt.ID.String(),
		"from":           current.Status.String(),
		"to":             target.String(),
	})
	s.logger.Info("appointment status updated", "appointment_id", id, "from", current.Status, "to", target)
	return appt, nil
}

// FindByID fetches one appointment.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*appointments.Appointment, error) {
	return s.loadAppointment(ctx, "find_by_id", id)
}

// FindByPatient lists a patient's appointments, history included.
func (s *Service) FindByPatient(ctx context.Context, patientID uuid.UUID) ([]appointments.Appointment, error) {
	if _, err := s.patients.FindByID(ctx, patientID); err != nil {
		if errors.Is(err, patients.ErrPatientNotFound) {
			return nil, errNotFound("patient %s not found", patientID)
		}
		return nil, s.internal(ctx, "find_by_patient", err, "patient_id", patientID)
	}
	list, err := s.repo.FindByPatient(ctx, patientID)
	if err != nil {
		return nil, s.internal(ctx, "find_by_patient", err, "patient_id", patientID)
	}
	return list, nil
}

func (s *Service) loadAppointment(ctx context.Context, op string, id uuid.UUID) (*appointments.Appointment, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			return nil, errNotFound("appointment %s not found", id)
		}
		return nil, s.internal(ctx, op, err, "appointment_id", id)
	}
	return appt, nil
}

// emitAudit dispatches an audit event without blocking or failing the
// primary operation.
func (s *Service) emitAudit(ctx context.Context, patientID uuid.UUID, action string, payload any) {
	if s.audit == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("scheduling: audit emission panicked", "action", action, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.audit.Record(ctx, patientID, action, payload); err != nil {
			s.logger.Error("scheduling: audit record failed", "action", action, "error", err)
		}
	}()
}

// internal logs an unexpected failure with full context and wraps it.
func (s *Service) internal(ctx context.Context, op string, err error, kv ...any) error {
	args := append([]any{"operation", op, "at", s.clock.Now().UTC().Format(time.RFC3339Nano), "error", err}, kv...)
	s.logger.Error("scheduling: operation failed", args...)
	return fmt.Errorf("scheduling: %s: %w", op, err)
}

func (s *Service) observe(op string, started time.Time, err *error) {
	result := "ok"
	if *err != nil {
		if oe, ok := AsOperational(*err); ok {
			result = string(oe.Code)
		} else {
			result = "error"
		}
	}
	s.metrics.ObserveOperation(op, result, s.clock.Now().Sub(started).Seconds())
}
