package chat

import "time"

// Step is the conversation state. The zero value is StepAwaitingName, so a
// freshly created session starts at the name question.
type Step int

const (
	StepAwaitingName Step = iota
	StepAwaitingSpecialty
	StepAwaitingDoctor
	StepAwaitingSlot
	StepAwaitingBirthDate
	StepAwaitingReason
)

// Candidate is one doctor offered to the user, remembered so a numeric
// answer can be resolved against exactly the list that was shown.
type Candidate struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

// Data accumulates the booking fields collected so far.
type Data struct {
	PatientName    string      `json:"patient_name,omitempty"`
	Specialty      string      `json:"specialty,omitempty"`
	Doctors        []Candidate `json:"doctors,omitempty"`
	DoctorID       int64       `json:"doctor_id,omitempty"`
	AvailableSlots []time.Time `json:"available_slots,omitempty"`
	Slot           time.Time   `json:"slot,omitempty"`
	PatientBirth   string      `json:"patient_birth,omitempty"`
	Reason         string      `json:"reason,omitempty"`
}

type Session struct {
	Step Step `json:"step"`
	Data Data `json:"data"`
}

// doctorName resolves the chosen doctor's display name from the candidate
// list stored in the session.
func (s *Session) doctorName() string {
	for _, d := range s.Data.Doctors {
		if d.ID == s.Data.DoctorID {
			return d.Name
		}
	}
	return "Médico"
}
