package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type Doctor struct {
	ID        int64
	Name      string
	Specialty string
	City      string
	Hours     []WeeklyHour
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WeeklyHour is one recurring window in a doctor's weekly schedule.
// Weekday follows time.Weekday (0 = Sunday). Start and End carry only the
// time of day; their date parts are ignored.
type WeeklyHour struct {
	DoctorID int64
	Weekday  time.Weekday
	Start    time.Time
	End      time.Time
}

type Booking struct {
	ID           uuid.UUID
	Protocol     string
	DoctorID     int64
	Slot         time.Time
	PatientName  string
	PatientBirth time.Time
	Specialty    string
	Reason       string
	CreatedAt    time.Time
}

type PatientData struct {
	Name      string
	Birth     time.Time
	Specialty string
	Reason    string
}

type DoctorFilter struct {
	Specialty string
	City      string
}

type Specialty struct {
	Name        string
	DoctorCount int
}

// BookingConfirmation is what the caller gets back after a successful commit.
type BookingConfirmation struct {
	Protocol    string
	DoctorName  string
	DateTime    time.Time
	PatientName string
}
