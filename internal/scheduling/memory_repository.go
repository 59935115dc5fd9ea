package scheduling

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps doctors and bookings in process memory behind a
// mutex. CreateBooking holds the lock across check and insert, giving the
// same atomicity the Postgres transaction gives. Used in tests and for
// single-instance runs without a database.
type MemoryRepository struct {
	mu       sync.Mutex
	doctors  map[int64]*Doctor
	bookings map[int64][]Booking
}

func NewMemoryRepository(doctors ...Doctor) *MemoryRepository {
	r := &MemoryRepository{
		doctors:  make(map[int64]*Doctor),
		bookings: make(map[int64][]Booking),
	}
	for i := range doctors {
		d := doctors[i]
		r.doctors[d.ID] = &d
	}
	return r
}

func (r *MemoryRepository) FindDoctorByID(ctx context.Context, id int64) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *MemoryRepository) FindDoctors(ctx context.Context, filter DoctorFilter) ([]Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Doctor
	for _, d := range r.doctors {
		if filter.Specialty != "" && !strings.Contains(strings.ToLower(d.Specialty), strings.ToLower(filter.Specialty)) {
			continue
		}
		if filter.City != "" && !strings.Contains(strings.ToLower(d.City), strings.ToLower(filter.City)) {
			continue
		}
		result = append(result, *d)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRepository) ListSpecialties(ctx context.Context) ([]Specialty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int)
	for _, d := range r.doctors {
		counts[d.Specialty]++
	}

	result := make([]Specialty, 0, len(counts))
	for name, n := range counts {
		result = append(result, Specialty{Name: name, DoctorCount: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRepository) FindBookingsByDoctor(ctx context.Context, doctorID int64) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.bookings[doctorID]
	result := make([]Booking, len(list))
	copy(result, list)
	return result, nil
}

func (r *MemoryRepository) CreateBooking(ctx context.Context, doctorID int64, slot time.Time, protocol string, patient PatientData) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doctors[doctorID]; !ok {
		return nil, ErrDoctorNotFound
	}

	slot = slot.UTC()
	for _, b := range r.bookings[doctorID] {
		if b.Slot.Equal(slot) {
			return nil, ErrSlotTaken
		}
	}

	booking := Booking{
		ID:           uuid.New(),
		Protocol:     protocol,
		DoctorID:     doctorID,
		Slot:         slot,
		PatientName:  patient.Name,
		PatientBirth: patient.Birth,
		Specialty:    patient.Specialty,
		Reason:       patient.Reason,
		CreatedAt:    time.Now().UTC(),
	}
	r.bookings[doctorID] = append(r.bookings[doctorID], booking)

	return &booking, nil
}
