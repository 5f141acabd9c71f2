package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/appointments"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/holidays"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/patients"
	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/internal/scheduling"
)

const testAdminSecret = "test-secret"

type apiFixture struct {
	server   *httptest.Server
	patients *patients.MemoryRepository
	redis    *miniredis.Miniredis
	loc      *time.Location
}

// newAPIFixture wires the full router over in-memory repositories, a fixed
// clock at Wednesday 2026-09-02 12:00 clinic time, and a miniredis-backed
// closure calendar.
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	clock := scheduling.FixedClock{T: time.Date(2026, 9, 2, 12, 0, 0, 0, loc)}

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	calendar := holidays.NewClinicCalendar(holidays.NewNationalCalendar(), redisClient, nil)
	calculator := scheduling.NewSlotCalculator(loc, calendar, clock)

	apptRepo := appointments.NewMemoryRepository()
	patientRepo := patients.NewMemoryRepository()

	svc := scheduling.NewService(scheduling.ServiceConfig{
		Appointments: apptRepo,
		Patients:     patientRepo,
		Calculator:   calculator,
		Clock:        clock,
	})

	handler := New(&Config{
		Appointments:    NewAppointmentHandler(svc, patientRepo, nil, loc, nil),
		Patients:        NewPatientHandler(patientRepo, nil),
		Admin:           NewAdminHandler(nil, calendar, nil),
		AdminAuthSecret: testAdminSecret,
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &apiFixture{server: server, patients: patientRepo, redis: mr, loc: loc}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (f *apiFixture) adminDo(t *testing.T, method, path string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken(t))

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func adminToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testAdminSecret))
	require.NoError(t, err)
	return signed
}

// registerConsentedPatient drives the public registration endpoints.
func (f *apiFixture) registerConsentedPatient(t *testing.T) uuid.UUID {
	t.Helper()
	var created patients.Patient
	resp := f.do(t, http.MethodPost, "/patients", map[string]string{
		"name":  "Maria Souza",
		"phone": "+5511999990000",
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var consented patients.Patient
	resp = f.do(t, http.MethodPost, "/patients/"+created.ID.String()+"/consent", nil, &consented)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, consented.ConsentGivenAt)
	return created.ID
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	var body map[string]string
	resp := f.do(t, http.MethodGet, "/health", nil, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestRegisterPatientValidation(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/patients", map[string]string{"phone": "+5511999990000"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/patients", map[string]string{"name": "Maria"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConsentUnknownPatient(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/patients/"+uuid.NewString()+"/consent", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAvailabilityValidation(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/appointments/availability", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/appointments/availability?date=05-09-2026", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAvailabilitySaturday(t *testing.T) {
	f := newAPIFixture(t)

	var body struct {
		Date  string                `json:"date"`
		Slots []scheduling.TimeSlot `json:"slots"`
	}
	resp := f.do(t, http.MethodGet, "/appointments/availability?date=2026-09-05", nil, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2026-09-05", body.Date)
	assert.Len(t, body.Slots, 5)
}

func TestBookingLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	patientID := f.registerConsentedPatient(t)
	slot := time.Date(2026, 9, 5, 9, 0, 0, 0, f.loc)

	var appt appointments.Appointment
	resp := f.do(t, http.MethodPost, "/appointments", map[string]any{
		"patient_id":   patientID,
		"scheduled_at": slot.Format(time.RFC3339),
	}, &appt)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, appointments.StatusScheduled, appt.Status)

	// The booked slot disappears from availability.
	var avail struct {
		Slots []scheduling.TimeSlot `json:"slots"`
	}
	resp = f.do(t, http.MethodGet, "/appointments/availability?date=2026-09-05", nil, &avail)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, avail.Slots, 4)

	// Same slot again conflicts.
	resp = f.do(t, http.MethodPost, "/appointments", map[string]any{
		"patient_id":   patientID,
		"scheduled_at": slot.Format(time.RFC3339),
	}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Confirm, then fetch.
	var confirmed appointments.Appointment
	resp = f.do(t, http.MethodPatch, fmt.Sprintf("/appointments/%s/status", appt.ID), map[string]string{
		"status": "confirmed",
	}, &confirmed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, appointments.StatusConfirmed, confirmed.Status)

	var fetched appointments.Appointment
	resp = f.do(t, http.MethodGet, "/appointments/"+appt.ID.String(), nil, &fetched)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, appointments.StatusConfirmed, fetched.Status)

	// Cancel outside the window succeeds.
	var cancelled appointments.Appointment
	resp = f.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/cancel", appt.ID), map[string]string{
		"reason": "paciente viajou",
	}, &cancelled)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, appointments.StatusCancelled, cancelled.Status)

	// Cancelling again hits the terminal state.
	resp = f.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/cancel", appt.ID), nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// History keeps the cancelled appointment.
	var history []appointments.Appointment
	resp = f.do(t, http.MethodGet, fmt.Sprintf("/patients/%s/appointments", patientID), nil, &history)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, history, 1)
}

func TestBookWithoutConsent(t *testing.T) {
	f := newAPIFixture(t)

	var created patients.Patient
	resp := f.do(t, http.MethodPost, "/patients", map[string]string{
		"name":  "Joao Lima",
		"phone": "+5511988880000",
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/appointments", map[string]any{
		"patient_id":   created.ID,
		"scheduled_at": time.Date(2026, 9, 5, 9, 0, 0, 0, f.loc).Format(time.RFC3339),
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBookInvalidSlotHTTP(t *testing.T) {
	f := newAPIFixture(t)
	patientID := f.registerConsentedPatient(t)

	// Sunday
	resp := f.do(t, http.MethodPost, "/appointments", map[string]any{
		"patient_id":   patientID,
		"scheduled_at": time.Date(2026, 9, 6, 9, 0, 0, 0, f.loc).Format(time.RFC3339),
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetAppointmentErrors(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/appointments/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRescheduleHTTP(t *testing.T) {
	f := newAPIFixture(t)
	patientID := f.registerConsentedPatient(t)

	var appt appointments.Appointment
	resp := f.do(t, http.MethodPost, "/appointments", map[string]any{
		"patient_id":   patientID,
		"scheduled_at": time.Date(2026, 9, 5, 9, 0, 0, 0, f.loc).Format(time.RFC3339),
	}, &appt)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var moved appointments.Appointment
	resp = f.do(t, http.MethodPatch, fmt.Sprintf("/appointments/%s/reschedule", appt.ID), map[string]string{
		"scheduled_at": time.Date(2026, 9, 5, 11, 0, 0, 0, f.loc).Format(time.RFC3339),
	}, &moved)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 11, moved.ScheduledAt.In(f.loc).Hour())
}

func TestAdminRequiresToken(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/admin/closures", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminClosuresLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.adminDo(t, http.MethodPost, "/admin/closures", map[string]string{"date": "2026-09-05"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var listed struct {
		Closures []string `json:"closures"`
	}
	resp = f.adminDo(t, http.MethodGet, "/admin/closures", nil, &listed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, listed.Closures, "2026-09-05")

	// The closed Saturday offers no slots.
	var avail struct {
		Slots []scheduling.TimeSlot `json:"slots"`
	}
	resp = f.do(t, http.MethodGet, "/appointments/availability?date=2026-09-05", nil, &avail)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, avail.Slots)

	resp = f.adminDo(t, http.MethodDelete, "/admin/closures/2026-09-05", nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/appointments/availability?date=2026-09-05", nil, &avail)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, avail.Slots, 5)
}

func TestAdminAuditUnavailableWithoutStore(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.adminDo(t, http.MethodGet, "/admin/audit-events", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
