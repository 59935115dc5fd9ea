package scheduling

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrSlotUnavailable means the requested instant is not in the doctor's
	// current availability: it was never offered, already passed, or was
	// booked between offer and commit.
	ErrSlotUnavailable = errors.New("slot is not available")
)

type Service struct {
	repo        Repository
	horizonDays int
	logger      zerolog.Logger

	now func() time.Time
}

func NewService(repo Repository, horizonDays int, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		horizonDays: horizonDays,
		logger:      logger,
		now:         time.Now,
	}
}

// ListAvailableSlots recomputes the doctor's free slots on every call:
// generated slots minus already-booked instants, chronological. Results are
// never cached because booking state changes continuously.
func (s *Service) ListAvailableSlots(ctx context.Context, doctorID int64) ([]time.Time, error) {
	doctor, err := s.repo.FindDoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	generated := GenerateSlots(doctor.Hours, s.now(), s.horizonDays)

	bookings, err := s.repo.FindBookingsByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	reserved := make(map[int64]struct{}, len(bookings))
	for _, b := range bookings {
		reserved[b.Slot.Unix()] = struct{}{}
	}

	free := generated[:0]
	for _, slot := range generated {
		if _, taken := reserved[slot.Unix()]; !taken {
			free = append(free, slot)
		}
	}

	return free, nil
}

// BookAppointment commits a booking for an offered slot. The fresh
// availability re-check is a fast fail only; the repository transaction is
// what actually guarantees the slot is booked at most once.
func (s *Service) BookAppointment(ctx context.Context, doctorID int64, slot time.Time, patient PatientData) (*BookingConfirmation, error) {
	available, err := s.ListAvailableSlots(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	offered := false
	for _, candidate := range available {
		if candidate.Equal(slot) {
			offered = true
			break
		}
	}
	if !offered {
		return nil, ErrSlotUnavailable
	}

	doctor, err := s.repo.FindDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	protocol := newProtocol()

	booking, err := s.repo.CreateBooking(ctx, doctorID, slot, protocol, patient)
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	// Real delivery is out of scope; the confirmation "notification" is a log line.
	s.logger.Info().
		Str("protocol", booking.Protocol).
		Int64("doctor_id", doctorID).
		Time("slot", booking.Slot).
		Str("patient", booking.PatientName).
		Msg("booking confirmed, notification sent (simulated)")

	return &BookingConfirmation{
		Protocol:    booking.Protocol,
		DoctorName:  doctor.Name,
		DateTime:    booking.Slot,
		PatientName: booking.PatientName,
	}, nil
}

func (s *Service) FindDoctors(ctx context.Context, filter DoctorFilter) ([]Doctor, error) {
	doctors, err := s.repo.FindDoctors(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find doctors: %w", err)
	}
	return doctors, nil
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	return s.repo.FindDoctorByID(ctx, id)
}

func (s *Service) ListSpecialties(ctx context.Context) ([]Specialty, error) {
	specialties, err := s.repo.ListSpecialties(ctx)
	if err != nil {
		return nil, fmt.Errorf("list specialties: %w", err)
	}
	return specialties, nil
}

const protocolAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// newProtocol builds a short human-shareable confirmation code, e.g. P-X4K9T2M.
func newProtocol() string {
	buf := make([]byte, 7)
	for i := range buf {
		buf[i] = protocolAlphabet[rand.Intn(len(protocolAlphabet))]
	}
	return "P-" + string(buf)
}
