package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/patients"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/pkg/logging"
)

// PatientHandler exposes patient registration and consent over HTTP.
type PatientHandler struct {
	repo   patients.Repository
	logger *logging.Logger
}

// NewPatientHandler creates the patient HTTP handler.
func NewPatientHandler(repo patients.Repository, logger *logging.Logger) *PatientHandler {
	if repo == nil {
		panic("api: patient repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PatientHandler{repo: repo, logger: logger}
}

type registerPatientRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Register handles POST /patients.
func (h *PatientHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" {
		http.Error(w, `{"error": "name required"}`, http.StatusBadRequest)
		return
	}
	if req.Phone == "" {
		http.Error(w, `{"error": "phone required"}`, http.StatusBadRequest)
		return
	}

	patient, err := h.repo.Create(r.Context(), req.Name, req.Phone)
	if err != nil {
		h.logger.Error("api: patient registration failed", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("patient registered", "patient_id", patient.ID)
	writeJSON(w, http.StatusCreated, patient)
}

// Consent handles POST /patients/{id}/consent.
func (h *PatientHandler) Consent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error": "invalid patient id"}`, http.StatusBadRequest)
		return
	}

	patient, err := h.repo.RecordConsent(r.Context(), id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, patients.ErrPatientNotFound) {
			http.Error(w, `{"error": "patient not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("api: consent recording failed", "patient_id", id, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("patient consent recorded", "patient_id", id)
	writeJSON(w, http.StatusOK, patient)
}

// Get handles GET /patients/{id}.
func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error": "invalid patient id"}`, http.StatusBadRequest)
		return
	}

	patient, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, patients.ErrPatientNotFound) {
			http.Error(w, `{"error": "patient not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("api: patient lookup failed", "patient_id", id, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, patient)
}
