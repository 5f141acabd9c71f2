package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/audit"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/holidays"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/pkg/logging"
)

const defaultAuditQueryLimit = 100

// AdminHandler serves the JWT-protected operational endpoints: audit
// queries and clinic closure management.
type AdminHandler struct {
	audit    *audit.Service
	calendar *holidays.ClinicCalendar
	logger   *logging.Logger
}

// NewAdminHandler creates the admin HTTP handler. audit may be nil when no
// relational database is configured.
func NewAdminHandler(auditSvc *audit.Service, calendar *holidays.ClinicCalendar, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{audit: auditSvc, calendar: calendar, logger: logger}
}

// AuditEvents handles GET /admin/audit-events.
func (h *AdminHandler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		http.Error(w, `{"error": "audit store not configured"}`, http.StatusServiceUnavailable)
		return
	}

	filter := audit.Filter{Limit: defaultAuditQueryLimit}
	q := r.URL.Query()

	if raw := q.Get("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, `{"error": "invalid patient_id"}`, http.StatusBadRequest)
			return
		}
		filter.PatientID = id
	}
	if action := q.Get("action"); action != "" {
		filter.Action = action
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			http.Error(w, `{"error": "invalid limit"}`, http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, `{"error": "since must be RFC3339"}`, http.StatusBadRequest)
			return
		}
		filter.StartTime = since
	}

	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("api: audit query failed", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

type closureRequest struct {
	Date string `json:"date"`
}

// AddClosure handles POST /admin/closures.
func (h *AdminHandler) AddClosure(w http.ResponseWriter, r *http.Request) {
	var req closureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		http.Error(w, `{"error": "date must be YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}

	if err := h.calendar.AddClosure(r.Context(), date); err != nil {
		h.logger.Error("api: add closure failed", "date", req.Date, "error", err)
		http.Error(w, `{"error": "failed to store closure"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("clinic closure added", "date", req.Date)
	writeJSON(w, http.StatusCreated, map[string]string{"date": req.Date})
}

// RemoveClosure handles DELETE /admin/closures/{date}.
func (h *AdminHandler) RemoveClosure(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "date")
	date, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		http.Error(w, `{"error": "date must be YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}

	if err := h.calendar.RemoveClosure(r.Context(), date); err != nil {
		h.logger.Error("api: remove closure failed", "date", raw, "error", err)
		http.Error(w, `{"error": "failed to remove closure"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("clinic closure removed", "date", raw)
	w.WriteHeader(http.StatusNoContent)
}

// ListClosures handles GET /admin/closures.
func (h *AdminHandler) ListClosures(w http.ResponseWriter, r *http.Request) {
	dates, err := h.calendar.ListClosures(r.Context())
	if err != nil {
		h.logger.Error("api: list closures failed", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"closures": dates})
}
