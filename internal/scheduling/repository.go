package scheduling

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrBookingNotFound = errors.New("booking not found")

	// ErrSlotTaken is reported by CreateBooking when another booking already
	// holds the same (doctor, instant) pair. The insert has no side effects
	// in that case.
	ErrSlotTaken = errors.New("slot already booked")
)

// Repository contains all DB interactions needed by the scheduling service.
type Repository interface {
	FindDoctorByID(ctx context.Context, id int64) (*Doctor, error)
	FindDoctors(ctx context.Context, filter DoctorFilter) ([]Doctor, error)
	ListSpecialties(ctx context.Context) ([]Specialty, error)

	FindBookingsByDoctor(ctx context.Context, doctorID int64) ([]Booking, error)

	// CreateBooking verifies inside a single transaction that (doctorID, slot)
	// is still unbooked and inserts the booking, or returns ErrSlotTaken.
	CreateBooking(ctx context.Context, doctorID int64, slot time.Time, protocol string, patient PatientData) (*Booking, error)
}
