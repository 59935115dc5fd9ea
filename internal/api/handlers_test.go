package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saudeplus/agenda-assistant/internal/chat"
	"github.com/saudeplus/agenda-assistant/internal/procedure"
	"github.com/saudeplus/agenda-assistant/internal/scheduling"
	"github.com/saudeplus/agenda-assistant/internal/session"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	tod := func(hour, min int) time.Time {
		return time.Date(0, time.January, 1, hour, min, 0, 0, time.UTC)
	}

	// Around-the-clock availability so the tests do not depend on when they run.
	hours := make([]scheduling.WeeklyHour, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		hours = append(hours, scheduling.WeeklyHour{DoctorID: 1, Weekday: wd, Start: tod(0, 0), End: tod(23, 30)})
	}

	repo := scheduling.NewMemoryRepository(scheduling.Doctor{
		ID:        1,
		Name:      "Dr(a). Carlos Mendes",
		Specialty: "Cardiologia",
		City:      "São Paulo",
		Hours:     hours,
	})

	svc := scheduling.NewService(repo, 7, zerolog.Nop())
	engine := chat.NewEngine(session.NewMemoryStore(), svc, zerolog.Nop())

	catalog := procedure.MemoryCatalog{
		{ID: 1, Code: 10101012, Name: "Consulta em consultório", AuditDays: 0},
		{ID: 2, Code: 40301630, Name: "Ressonância magnética de crânio", AuditDays: 10},
	}
	matcher := procedure.NewMatcher(catalog, 0.55, zerolog.Nop())

	return NewRouter(RouterConfig{
		Engine:  engine,
		Service: svc,
		Matcher: matcher,
		Logger:  zerolog.Nop(),
		Env:     "test",
		Version: "test",
	})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestLivenessEndpoint(t *testing.T) {
	router := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[LivenessResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Env)
}

func TestChatEndpoint(t *testing.T) {
	router := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/chat", ChatRequest{SessionID: "s1", Message: "oi"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ChatResponse](t, rec)
	assert.Contains(t, resp.Reply, "Qual é o seu nome completo?")
}

func TestChatEndpoint_MissingSessionID(t *testing.T) {
	router := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/chat", ChatRequest{Message: "oi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSpecialtiesEndpoint(t *testing.T) {
	router := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/specialties", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[[]SpecialtyResponse](t, rec)
	require.Len(t, resp, 1)
	assert.Equal(t, "Cardiologia", resp[0].Name)
	assert.Equal(t, 1, resp[0].DoctorCount)
}

func TestListDoctorsEndpoint_Filter(t *testing.T) {
	router := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/doctors?specialty=cardio", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[[]DoctorResponse](t, rec)
	require.Len(t, resp, 1)
	assert.Equal(t, "Dr(a). Carlos Mendes", resp[0].Name)

	rec = doJSON(t, router, http.MethodGet, "/api/doctors?specialty=dermato", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]DoctorResponse](t, rec))
}

func TestDoctorSlotsEndpoint_UnknownDoctor(t *testing.T) {
	router := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/doctors/99/slots", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBookingEndpoint_ThenConflict(t *testing.T) {
	router := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/doctors/1/slots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[[]string](t, rec)
	require.NotEmpty(t, slots)

	booking := CreateBookingRequest{
		DoctorID:     1,
		Slot:         slots[0],
		PatientName:  "Maria Silva",
		PatientBirth: "1990-05-15",
		Specialty:    "Cardiologia",
		Reason:       "dor no peito",
	}

	rec = doJSON(t, router, http.MethodPost, "/api/bookings", booking)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[BookingResponse](t, rec)
	assert.Regexp(t, `^P-[0-9A-Z]{7}$`, resp.Protocol)
	assert.Equal(t, "Dr(a). Carlos Mendes", resp.DoctorName)

	// The same instant cannot be booked twice.
	rec = doJSON(t, router, http.MethodPost, "/api/bookings", booking)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_unavailable", decode[ErrorResponse](t, rec).Error)
}

func TestCreateBookingEndpoint_InvalidBirthDate(t *testing.T) {
	router := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/bookings", CreateBookingRequest{
		DoctorID:     1,
		Slot:         time.Now().Add(time.Hour).Format(time.RFC3339),
		PatientName:  "Maria Silva",
		PatientBirth: "15/05/1990",
		Reason:       "dor no peito",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeReferralEndpoint_Found(t *testing.T) {
	router := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/referrals/analyze", AnalyzeReferralRequest{
		Text: "Solicito ressonância magnética de crânio com urgência",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[AnalyzeReferralResponse](t, rec)
	assert.True(t, resp.Found)
	require.NotNil(t, resp.Matched)
	assert.Equal(t, "40301630", resp.Matched.Code)
	assert.True(t, resp.AuditRequired)
	assert.Equal(t, 10, resp.EstimatedDays)
	assert.NotEmpty(t, resp.RequestID)
}

func TestAnalyzeReferralEndpoint_NotFound(t *testing.T) {
	router := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/referrals/analyze", AnalyzeReferralRequest{
		Text: "receita de bolo de cenoura",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[AnalyzeReferralResponse](t, rec)
	assert.False(t, resp.Found)
	assert.Nil(t, resp.Matched)
	assert.Equal(t, "Procedimento não identificado no banco.", resp.Message)
}
