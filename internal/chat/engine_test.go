package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saudeplus/agenda-assistant/internal/scheduling"
	"github.com/saudeplus/agenda-assistant/internal/session"
)

// allDayDoctor answers slots around the clock so the tests do not depend on
// the wall-clock hour they run at.
func allDayDoctor(id int64, name, specialty string) scheduling.Doctor {
	tod := func(hour, min int) time.Time {
		return time.Date(0, time.January, 1, hour, min, 0, 0, time.UTC)
	}

	hours := make([]scheduling.WeeklyHour, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		hours = append(hours, scheduling.WeeklyHour{
			DoctorID: id,
			Weekday:  wd,
			Start:    tod(0, 0),
			End:      tod(23, 30),
		})
	}

	return scheduling.Doctor{ID: id, Name: name, Specialty: specialty, City: "São Paulo", Hours: hours}
}

func newTestEngine(t *testing.T, doctors ...scheduling.Doctor) (*Engine, *scheduling.MemoryRepository, *session.MemoryStore) {
	t.Helper()

	repo := scheduling.NewMemoryRepository(doctors...)
	svc := scheduling.NewService(repo, 7, zerolog.Nop())
	store := session.NewMemoryStore()

	return NewEngine(store, svc, zerolog.Nop()), repo, store
}

func send(t *testing.T, eng *Engine, sessionID, message string) Reply {
	t.Helper()

	reply, err := eng.HandleMessage(context.Background(), sessionID, message)
	require.NoError(t, err)
	return reply
}

func TestHandleMessage_FirstContactAsksForName(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	reply := send(t, eng, "s1", "oi")
	assert.Contains(t, reply.Text, "Qual é o seu nome completo?")
	assert.False(t, reply.Done)
}

func TestHandleMessage_EmptyNameReprompts(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	send(t, eng, "s1", "oi")
	reply := send(t, eng, "s1", "")
	assert.Contains(t, reply.Text, "nome completo")
}

func TestHandleMessage_HappyPathBooksAppointment(t *testing.T) {
	eng, repo, store := newTestEngine(t, allDayDoctor(1, "Dr(a). Carlos Mendes", "Cardiologia"))
	ctx := context.Background()

	send(t, eng, "s1", "oi")

	reply := send(t, eng, "s1", "Maria Silva")
	assert.Contains(t, reply.Text, "Maria Silva")
	assert.Contains(t, reply.Text, "especialidade")

	reply = send(t, eng, "s1", "Cardiologia")
	assert.Contains(t, reply.Text, "1. Dr(a). Carlos Mendes (Cardiologia)")

	reply = send(t, eng, "s1", "1")
	assert.Contains(t, reply.Text, "Horários disponíveis")

	reply = send(t, eng, "s1", "1")
	assert.Contains(t, reply.Text, "data de nascimento")

	reply = send(t, eng, "s1", "1990-05-15")
	assert.Contains(t, reply.Text, "motivo")

	reply = send(t, eng, "s1", "dor no peito")
	assert.Contains(t, reply.Text, "AGENDAMENTO CONFIRMADO!")
	assert.Regexp(t, `Protocolo: P-[0-9A-Z]{7}`, reply.Text)
	assert.Contains(t, reply.Text, "Dr(a). Carlos Mendes")

	bookings, err := repo.FindBookingsByDoctor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "Maria Silva", bookings[0].PatientName)
	assert.Equal(t, "dor no peito", bookings[0].Reason)

	// Completed conversations leave no session behind.
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestHandleMessage_UnknownSpecialtyStays(t *testing.T) {
	eng, _, _ := newTestEngine(t, allDayDoctor(1, "Dr(a). Carlos Mendes", "Cardiologia"))

	send(t, eng, "s1", "oi")
	send(t, eng, "s1", "Maria Silva")

	reply := send(t, eng, "s1", "Alquimia")
	assert.Contains(t, reply.Text, "Não encontramos médicos")

	// Still at the specialty question.
	reply = send(t, eng, "s1", "Cardiologia")
	assert.Contains(t, reply.Text, "Dr(a). Carlos Mendes")
}

func TestHandleMessage_InvalidDoctorNumberReprompts(t *testing.T) {
	eng, _, _ := newTestEngine(t, allDayDoctor(1, "Dr(a). Carlos Mendes", "Cardiologia"))

	send(t, eng, "s1", "oi")
	send(t, eng, "s1", "Maria Silva")
	send(t, eng, "s1", "Cardiologia")

	for _, bad := range []string{"0", "2", "abc"} {
		reply := send(t, eng, "s1", bad)
		assert.Contains(t, reply.Text, "Número inválido", "input %q", bad)
	}

	// A valid answer still works after the reprompts.
	reply := send(t, eng, "s1", "1")
	assert.Contains(t, reply.Text, "Horários disponíveis")
}

func TestHandleMessage_SlotOutsideListRejected(t *testing.T) {
	eng, _, _ := newTestEngine(t, allDayDoctor(1, "Dr(a). Carlos Mendes", "Cardiologia"))

	send(t, eng, "s1", "oi")
	send(t, eng, "s1", "Maria Silva")
	send(t, eng, "s1", "Cardiologia")
	send(t, eng, "s1", "1")

	reply := send(t, eng, "s1", "1999-01-01 08:00")
	assert.Contains(t, reply.Text, "Horário indisponível")
}

func TestHandleMessage_ResetDiscardsCollectedData(t *testing.T) {
	eng, _, _ := newTestEngine(t, allDayDoctor(1, "Dr(a). Carlos Mendes", "Cardiologia"))

	send(t, eng, "s1", "oi")
	send(t, eng, "s1", "Maria Silva")

	reply := send(t, eng, "s1", "recomeçar")
	assert.Contains(t, reply.Text, "Qual é o seu nome completo?")

	reply = send(t, eng, "s1", "João Souza")
	assert.Contains(t, reply.Text, "João Souza")
	assert.NotContains(t, reply.Text, "Maria Silva")
}

func TestHandleMessage_ExitEndsConversation(t *testing.T) {
	eng, _, store := newTestEngine(t, allDayDoctor(1, "Dr(a). Carlos Mendes", "Cardiologia"))
	ctx := context.Background()

	send(t, eng, "s1", "oi")
	send(t, eng, "s1", "Maria Silva")

	reply := send(t, eng, "s1", "voltar")
	assert.True(t, reply.Done)

	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestHandleMessage_ConflictReoffersSlots(t *testing.T) {
	eng, repo, store := newTestEngine(t, allDayDoctor(1, "Dr(a). Carlos Mendes", "Cardiologia"))
	ctx := context.Background()

	send(t, eng, "s1", "oi")
	send(t, eng, "s1", "Maria Silva")
	send(t, eng, "s1", "Cardiologia")
	send(t, eng, "s1", "1")
	send(t, eng, "s1", "1")
	send(t, eng, "s1", "1990-05-15")

	// Another patient grabs the chosen slot before the booking commits.
	payload, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	var sess Session
	require.NoError(t, json.Unmarshal(payload, &sess))
	require.False(t, sess.Data.Slot.IsZero())

	_, err = repo.CreateBooking(ctx, 1, sess.Data.Slot, "P-RIVAL01", scheduling.PatientData{Name: "João Souza"})
	require.NoError(t, err)

	reply := send(t, eng, "s1", "dor no peito")
	assert.Contains(t, reply.Text, "acabou de ser preenchido")
	assert.Contains(t, reply.Text, "Horários disponíveis")

	// Picking another slot completes the booking.
	send(t, eng, "s1", "1")
	send(t, eng, "s1", "1990-05-15")
	reply = send(t, eng, "s1", "dor no peito")
	assert.Contains(t, reply.Text, "AGENDAMENTO CONFIRMADO!")
}

// failingScheduler simulates an infrastructure outage.
type failingScheduler struct{}

func (failingScheduler) FindDoctors(context.Context, scheduling.DoctorFilter) ([]scheduling.Doctor, error) {
	return nil, errors.New("database unreachable")
}

func (failingScheduler) ListAvailableSlots(context.Context, int64) ([]time.Time, error) {
	return nil, errors.New("database unreachable")
}

func (failingScheduler) BookAppointment(context.Context, int64, time.Time, scheduling.PatientData) (*scheduling.BookingConfirmation, error) {
	return nil, errors.New("database unreachable")
}

func TestHandleMessage_InternalErrorTearsDownSession(t *testing.T) {
	store := session.NewMemoryStore()
	eng := NewEngine(store, failingScheduler{}, zerolog.Nop())
	ctx := context.Background()

	send(t, eng, "s1", "oi")
	send(t, eng, "s1", "Maria Silva")

	_, err := eng.HandleMessage(ctx, "s1", "Cardiologia")
	require.Error(t, err)

	// The broken conversation does not resume: next contact restarts.
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, session.ErrNotFound)

	reply := send(t, eng, "s1", "oi")
	assert.Contains(t, reply.Text, "Qual é o seu nome completo?")
}
