package api

import "time"

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId" validate:"required"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
	Done  bool   `json:"done,omitempty"`
}

type SpecialtyResponse struct {
	Name        string `json:"name"`
	DoctorCount int    `json:"doctorCount"`
}

type DoctorResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	City      string `json:"city"`
}

type CreateBookingRequest struct {
	DoctorID     int64  `json:"doctorId" validate:"required"`
	Slot         string `json:"slot" validate:"required"`
	PatientName  string `json:"patientName" validate:"required"`
	PatientBirth string `json:"patientBirth" validate:"required,datetime=2006-01-02"`
	Specialty    string `json:"specialty"`
	Reason       string `json:"reason" validate:"required"`
}

type BookingResponse struct {
	Protocol    string    `json:"protocol"`
	DoctorName  string    `json:"doctorName"`
	DateTime    time.Time `json:"dateTime"`
	PatientName string    `json:"patientName"`
}

type AnalyzeReferralRequest struct {
	Text string `json:"text" validate:"required"`
}

type MatchedProcedure struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type AnalyzeReferralResponse struct {
	RequestID     string            `json:"requestId,omitempty"`
	Found         bool              `json:"found"`
	Matched       *MatchedProcedure `json:"matched,omitempty"`
	AuditRequired bool              `json:"audit_required"`
	Authorized    bool              `json:"authorized"`
	Reason        string            `json:"reason,omitempty"`
	EstimatedDays int               `json:"estimated_days,omitempty"`
	Message       string            `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
