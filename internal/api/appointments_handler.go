package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/appointments"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/notifications"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/patients"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/scheduling"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/pkg/logging"
)

// AppointmentHandler exposes the scheduling operations over HTTP.
type AppointmentHandler struct {
	svc       *scheduling.Service
	patients  patients.Repository
	publisher *notifications.Publisher
	loc       *time.Location
	logger    *logging.Logger
}

// NewAppointmentHandler creates the appointment HTTP handler. Publisher may
// be nil when operator notifications are disabled.
func NewAppointmentHandler(svc *scheduling.Service, patientRepo patients.Repository, publisher *notifications.Publisher, loc *time.Location, logger *logging.Logger) *AppointmentHandler {
	if svc == nil {
		panic("api: scheduling service required")
	}
	if patientRepo == nil {
		panic("api: patient repository required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentHandler{
		svc:       svc,
		patients:  patientRepo,
		publisher: publisher,
		loc:       loc,
		logger:    logger,
	}
}

type availabilityResponse struct {
	Date  string                `json:"date"`
	Slots []scheduling.TimeSlot `json:"slots"`
}

// Availability handles GET /appointments/availability?date=YYYY-MM-DD.
func (h *AppointmentHandler) Availability(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		http.Error(w, `{"error": "date query parameter required"}`, http.StatusBadRequest)
		return
	}
	date, err := time.ParseInLocation(time.DateOnly, raw, h.loc)
	if err != nil {
		http.Error(w, `{"error": "date must be YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}

	slots, err := h.svc.CheckAvailability(r.Context(), date)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if slots == nil {
		slots = []scheduling.TimeSlot{}
	}
	writeJSON(w, http.StatusOK, availabilityResponse{Date: raw, Slots: slots})
}

type bookRequest struct {
	PatientID   uuid.UUID `json:"patient_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Book handles POST /appointments.
func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.PatientID == uuid.Nil {
		http.Error(w, `{"error": "patient_id required"}`, http.StatusBadRequest)
		return
	}
	if req.ScheduledAt.IsZero() {
		http.Error(w, `{"error": "scheduled_at required"}`, http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Book(r.Context(), req.PatientID, req.ScheduledAt)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.publishEvent(r, notifications.Event{
		Kind:          notifications.KindBooked,
		AppointmentID: appt.ID.String(),
		ScheduledAt:   appt.ScheduledAt.In(h.loc),
	}, appt.PatientID)

	writeJSON(w, http.StatusCreated, appt)
}

// Get handles GET /appointments/{id}.
func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.FindByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

type rescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Reschedule handles PATCH /appointments/{id}/reschedule.
func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.ScheduledAt.IsZero() {
		http.Error(w, `{"error": "scheduled_at required"}`, http.StatusBadRequest)
		return
	}

	old, err := h.svc.FindByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	appt, err := h.svc.Reschedule(r.Context(), id, req.ScheduledAt)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.publishEvent(r, notifications.Event{
		Kind:           notifications.KindRescheduled,
		AppointmentID:  appt.ID.String(),
		ScheduledAt:    appt.ScheduledAt.In(h.loc),
		OldScheduledAt: old.ScheduledAt.In(h.loc),
	}, appt.PatientID)

	writeJSON(w, http.StatusOK, appt)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /appointments/{id}/cancel.
func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.publishEvent(r, notifications.Event{
		Kind:          notifications.KindCancelled,
		AppointmentID: appt.ID.String(),
		ScheduledAt:   appt.ScheduledAt.In(h.loc),
		Reason:        req.Reason,
	}, appt.PatientID)

	writeJSON(w, http.StatusOK, appt)
}

type updateStatusRequest struct {
	Status appointments.Status `json:"status"`
}

// UpdateStatus handles PATCH /appointments/{id}/status.
func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		http.Error(w, `{"error": "status required"}`, http.StatusBadRequest)
		return
	}

	appt, err := h.svc.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// PatientAppointments handles GET /patients/{id}/appointments.
func (h *AppointmentHandler) PatientAppointments(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error": "invalid patient id"}`, http.StatusBadRequest)
		return
	}
	list, err := h.svc.FindByPatient(r.Context(), patientID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []appointments.Appointment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AppointmentHandler) appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error": "invalid appointment id"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// publishEvent enriches the event with patient contact data and enqueues
// it. Failures only affect the notification, never the response.
func (h *AppointmentHandler) publishEvent(r *http.Request, evt notifications.Event, patientID uuid.UUID) {
	if h.publisher == nil {
		return
	}
	if patient, err := h.patients.FindByID(r.Context(), patientID); err == nil {
		evt.PatientName = patient.Name
		evt.PatientPhone = patient.Phone
	} else {
		h.logger.Warn("api: patient lookup for notification failed", "patient_id", patientID, "error", err)
	}
	h.publisher.Publish(r.Context(), evt)
}

func (h *AppointmentHandler) writeServiceError(w http.ResponseWriter, err error) {
	writeSchedulingError(w, err, h.logger)
}

func writeSchedulingError(w http.ResponseWriter, err error, logger *logging.Logger) {
	if oe, ok := scheduling.AsOperational(err); ok {
		writeJSON(w, oe.HTTPStatus(), map[string]string{"error": oe.Message})
		return
	}
	logger.Error("api: request failed", "error", err)
	http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
