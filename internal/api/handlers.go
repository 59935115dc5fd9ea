package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/saudeplus/agenda-assistant/internal/chat"
	"github.com/saudeplus/agenda-assistant/internal/procedure"
	"github.com/saudeplus/agenda-assistant/internal/scheduling"
)

var validate = validator.New()

func chatHandler(engine *chat.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "sessionId is required")
			return
		}

		reply, err := engine.HandleMessage(r.Context(), req.SessionID, req.Message)
		if err != nil {
			// Session is already torn down; the user is told to restart.
			writeJSON(w, http.StatusInternalServerError, ChatResponse{
				Reply: "Houve um erro interno no agendamento. Digite 'recomeçar' para tentar novamente.",
			})
			return
		}

		writeJSON(w, http.StatusOK, ChatResponse{Reply: reply.Text, Done: reply.Done})
	}
}

func listSpecialtiesHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialties, err := svc.ListSpecialties(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not load specialties")
			return
		}

		resp := make([]SpecialtyResponse, 0, len(specialties))
		for _, s := range specialties {
			resp = append(resp, SpecialtyResponse{Name: s.Name, DoctorCount: s.DoctorCount})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listDoctorsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := scheduling.DoctorFilter{
			Specialty: r.URL.Query().Get("specialty"),
			City:      r.URL.Query().Get("city"),
		}

		doctors, err := svc.FindDoctors(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not load doctors")
			return
		}

		resp := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			resp = append(resp, DoctorResponse{ID: d.ID, Name: d.Name, Specialty: d.Specialty, City: d.City})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func doctorSlotsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be an integer")
			return
		}

		slots, err := svc.ListAvailableSlots(r.Context(), id)
		if err != nil {
			if errors.Is(err, scheduling.ErrDoctorNotFound) {
				writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "could not load slots")
			return
		}

		resp := make([]string, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, s.Format(time.RFC3339))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createBookingHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		slot, err := time.Parse(time.RFC3339, req.Slot)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot", "slot must be an ISO-8601 instant")
			return
		}

		birth, err := time.Parse("2006-01-02", req.PatientBirth)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_birth_date", "patientBirth must be YYYY-MM-DD")
			return
		}

		confirmation, err := svc.BookAppointment(r.Context(), req.DoctorID, slot, scheduling.PatientData{
			Name:      req.PatientName,
			Birth:     birth,
			Specialty: req.Specialty,
			Reason:    req.Reason,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, BookingResponse{
			Protocol:    confirmation.Protocol,
			DoctorName:  confirmation.DoctorName,
			DateTime:    confirmation.DateTime,
			PatientName: confirmation.PatientName,
		})
	}
}

func analyzeReferralHandler(matcher *procedure.Matcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnalyzeReferralRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "text is required")
			return
		}

		match, err := matcher.Match(r.Context(), req.Text)
		if err != nil {
			if errors.Is(err, procedure.ErrNoMatch) {
				writeJSON(w, http.StatusOK, AnalyzeReferralResponse{
					Found:   false,
					Message: "Procedimento não identificado no banco.",
				})
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "could not analyze referral")
			return
		}

		decision := procedure.Decide(match.Procedure)

		writeJSON(w, http.StatusOK, AnalyzeReferralResponse{
			RequestID: uuid.New().String(),
			Found:     true,
			Matched: &MatchedProcedure{
				ID:   match.Procedure.ID,
				Code: fmt.Sprintf("%d", match.Procedure.Code),
				Name: match.Procedure.Name,
			},
			AuditRequired: decision.AuditRequired,
			Authorized:    decision.Authorized,
			Reason:        decision.Reason,
			EstimatedDays: decision.EstimatedDays,
		})
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, scheduling.ErrSlotUnavailable),
		errors.Is(err, scheduling.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_unavailable", "this time is no longer available, pick another")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "could not create booking")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
