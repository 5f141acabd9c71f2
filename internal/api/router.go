package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	Appointments    *AppointmentHandler
	Patients        *PatientHandler
	Admin           *AdminHandler
	AdminAuthSecret string
	MetricsHandler  http.Handler
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Appointments != nil {
		r.Route("/appointments", func(r chi.Router) {
			r.Get("/availability", cfg.Appointments.Availability)
			r.Post("/", cfg.Appointments.Book)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.Appointments.Get)
				r.Patch("/reschedule", cfg.Appointments.Reschedule)
				r.Post("/cancel", cfg.Appointments.Cancel)
				r.Patch("/status", cfg.Appointments.UpdateStatus)
			})
		})
	}

	if cfg.Patients != nil {
		r.Route("/patients", func(r chi.Router) {
			r.Post("/", cfg.Patients.Register)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.Patients.Get)
				r.Post("/consent", cfg.Patients.Consent)
				if cfg.Appointments != nil {
					r.Get("/appointments", cfg.Appointments.PatientAppointments)
				}
			})
		})
	}

	if cfg.Admin != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/audit-events", cfg.Admin.AuditEvents)
			admin.Get("/closures", cfg.Admin.ListClosures)
			admin.Post("/closures", cfg.Admin.AddClosure)
			admin.Delete("/closures/{date}", cfg.Admin.RemoveClosure)
		})
	}

	return r
}
