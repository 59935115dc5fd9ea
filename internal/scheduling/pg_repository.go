package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the repository touches. pgxmock
// satisfies it in tests.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	pool PgxPool
}

func NewPgRepository(pool PgxPool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.City,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking

	err := row.Scan(
		&b.ID,
		&b.Protocol,
		&b.DoctorID,
		&b.Slot,
		&b.PatientName,
		&b.PatientBirth,
		&b.Specialty,
		&b.Reason,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	b.Slot = b.Slot.UTC()
	return &b, nil
}

// Interface methods

func (r *PgRepository) FindDoctorByID(ctx context.Context, id int64) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, city, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)

	doctor, err := scanDoctor(row)
	if err != nil {
		return nil, err
	}

	hours, err := r.findHours(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load doctor hours: %w", err)
	}
	doctor.Hours = hours

	return doctor, nil
}

func (r *PgRepository) findHours(ctx context.Context, doctorID int64) ([]WeeklyHour, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doctor_id, weekday, start_time, end_time
		FROM doctor_hours
		WHERE doctor_id = $1
		ORDER BY weekday, start_time
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WeeklyHour
	for rows.Next() {
		var h WeeklyHour
		var weekday int
		if err := rows.Scan(&h.DoctorID, &weekday, &h.Start, &h.End); err != nil {
			return nil, err
		}
		h.Weekday = time.Weekday(weekday)
		result = append(result, h)
	}

	return result, rows.Err()
}

func (r *PgRepository) FindDoctors(ctx context.Context, filter DoctorFilter) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, specialty, city, created_at, updated_at
		FROM doctors
		WHERE ($1 = '' OR specialty ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR city ILIKE '%' || $2 || '%')
		ORDER BY name
	`, filter.Specialty, filter.City)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	return result, rows.Err()
}

func (r *PgRepository) ListSpecialties(ctx context.Context) ([]Specialty, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT specialty, COUNT(*)
		FROM doctors
		GROUP BY specialty
		ORDER BY specialty
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Specialty
	for rows.Next() {
		var s Specialty
		if err := rows.Scan(&s.Name, &s.DoctorCount); err != nil {
			return nil, err
		}
		result = append(result, s)
	}

	return result, rows.Err()
}

func (r *PgRepository) FindBookingsByDoctor(ctx context.Context, doctorID int64) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, protocol, doctor_id, slot, patient_name, patient_birth, specialty, reason, created_at
		FROM bookings
		WHERE doctor_id = $1
		ORDER BY slot
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	return result, rows.Err()
}

// CreateBooking runs the presence check and the insert inside one
// transaction. The unique index on (doctor_id, slot) backs the check, so a
// concurrent writer that slips past it fails the insert with 23505 instead
// of double-booking the slot.
func (r *PgRepository) CreateBooking(ctx context.Context, doctorID int64, slot time.Time, protocol string, patient PatientData) (*Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var existing int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM bookings
		WHERE doctor_id = $1 AND slot = $2
	`, doctorID, slot.UTC()).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("check slot: %w", err)
	}
	if existing > 0 {
		return nil, ErrSlotTaken
	}

	id := uuid.New()

	row := tx.QueryRow(ctx, `
		INSERT INTO bookings (id, protocol, doctor_id, slot, patient_name, patient_birth, specialty, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING id, protocol, doctor_id, slot, patient_name, patient_birth, specialty, reason, created_at
	`, id, protocol, doctorID, slot.UTC(), patient.Name, patient.Birth, patient.Specialty, patient.Reason)

	booking, err := scanBooking(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}

	return booking, nil
}
