package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/saudeplus/agenda-assistant/internal/scheduling"
	"github.com/saudeplus/agenda-assistant/internal/session"
)

// Keywords recognized in any state, case-insensitive.
const (
	keywordReset = "recomeçar"
	keywordExit  = "voltar"
)

// maxSlotsShown bounds how many slots a single message lists. The numeric
// answer is still resolved against the full offered set.
const maxSlotsShown = 10

// Scheduler is the slice of the scheduling service the conversation needs.
type Scheduler interface {
	FindDoctors(ctx context.Context, filter scheduling.DoctorFilter) ([]scheduling.Doctor, error)
	ListAvailableSlots(ctx context.Context, doctorID int64) ([]time.Time, error)
	BookAppointment(ctx context.Context, doctorID int64, slot time.Time, patient scheduling.PatientData) (*scheduling.BookingConfirmation, error)
}

// Reply is one turn's answer. Done tells the transport the user left the
// conversation (exit keyword), as opposed to a reset, which restarts it.
type Reply struct {
	Text string
	Done bool
}

type Engine struct {
	sessions  session.Store
	scheduler Scheduler
	logger    zerolog.Logger
}

func NewEngine(sessions session.Store, scheduler Scheduler, logger zerolog.Logger) *Engine {
	return &Engine{
		sessions:  sessions,
		scheduler: scheduler,
		logger:    logger,
	}
}

// HandleMessage advances the conversation one turn. A returned error means
// an internal failure: the session has already been torn down and the
// transport should answer with an error status and a generic message.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	lowered := strings.ToLower(message)

	if lowered == keywordExit {
		if err := e.sessions.Delete(ctx, sessionID); err != nil {
			e.logger.Warn().Err(err).Str("session_id", sessionID).Msg("delete session on exit")
		}
		return Reply{Text: "Até logo! Quando quiser agendar uma consulta, é só voltar.", Done: true}, nil
	}

	sess, err := e.load(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) || lowered == keywordReset {
		// First contact and an explicit reset behave identically.
		return e.reset(ctx, sessionID)
	}
	if err != nil {
		return Reply{}, e.teardown(ctx, sessionID, fmt.Errorf("load session: %w", err))
	}

	reply, err := e.advance(ctx, sess, message)
	if err != nil {
		return Reply{}, e.teardown(ctx, sessionID, err)
	}

	if reply.completed {
		if err := e.sessions.Delete(ctx, sessionID); err != nil {
			e.logger.Warn().Err(err).Str("session_id", sessionID).Msg("delete completed session")
		}
	} else if err := e.save(ctx, sessionID, sess); err != nil {
		return Reply{}, e.teardown(ctx, sessionID, fmt.Errorf("save session: %w", err))
	}

	return Reply{Text: reply.text}, nil
}

// turn is the internal outcome of one state handler.
type turn struct {
	text      string
	completed bool
}

func (e *Engine) advance(ctx context.Context, sess *Session, message string) (turn, error) {
	switch sess.Step {
	case StepAwaitingName:
		return e.handleName(sess, message)
	case StepAwaitingSpecialty:
		return e.handleSpecialty(ctx, sess, message)
	case StepAwaitingDoctor:
		return e.handleDoctor(ctx, sess, message)
	case StepAwaitingSlot:
		return e.handleSlot(sess, message)
	case StepAwaitingBirthDate:
		return e.handleBirthDate(sess, message)
	case StepAwaitingReason:
		return e.handleReason(ctx, sess, message)
	default:
		return turn{}, fmt.Errorf("unknown conversation step %d", sess.Step)
	}
}

func (e *Engine) handleName(sess *Session, message string) (turn, error) {
	if message == "" {
		return turn{text: "Por favor, informe o seu nome completo para começarmos."}, nil
	}

	sess.Data.PatientName = message
	sess.Step = StepAwaitingSpecialty
	return turn{text: fmt.Sprintf("Ótimo, %s. Qual especialidade você precisa? (Ex: Cardiologia, Dermatologia)", message)}, nil
}

func (e *Engine) handleSpecialty(ctx context.Context, sess *Session, message string) (turn, error) {
	if message == "" {
		return turn{text: "Por favor, informe a especialidade desejada. (Ex: Cardiologia, Dermatologia)"}, nil
	}

	doctors, err := e.scheduler.FindDoctors(ctx, scheduling.DoctorFilter{Specialty: message})
	if err != nil {
		return turn{}, fmt.Errorf("find doctors: %w", err)
	}

	if len(doctors) == 0 {
		return turn{text: fmt.Sprintf("Não encontramos médicos para %q. Tente outra especialidade ou digite 'recomeçar'.", message)}, nil
	}

	sess.Data.Specialty = message
	sess.Data.Doctors = make([]Candidate, 0, len(doctors))
	for _, d := range doctors {
		sess.Data.Doctors = append(sess.Data.Doctors, Candidate{ID: d.ID, Name: d.Name, Specialty: d.Specialty})
	}
	sess.Step = StepAwaitingDoctor

	var b strings.Builder
	fmt.Fprintf(&b, "Encontrei %d médico(s). Digite o NÚMERO do médico que você prefere:\n", len(doctors))
	for i, d := range doctors {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, d.Name, d.Specialty)
	}
	return turn{text: b.String()}, nil
}

func (e *Engine) handleDoctor(ctx context.Context, sess *Session, message string) (turn, error) {
	index, err := strconv.Atoi(message)
	if err != nil || index < 1 || index > len(sess.Data.Doctors) {
		return turn{text: fmt.Sprintf("Número inválido. Digite um número entre 1 e %d.", len(sess.Data.Doctors))}, nil
	}

	chosen := sess.Data.Doctors[index-1]

	slots, err := e.scheduler.ListAvailableSlots(ctx, chosen.ID)
	if err != nil {
		return turn{}, fmt.Errorf("list slots for doctor %d: %w", chosen.ID, err)
	}

	if len(slots) == 0 {
		sess.Step = StepAwaitingSpecialty
		sess.Data.Doctors = nil
		return turn{text: fmt.Sprintf("%s está sem horários livres no momento. Informe outra especialidade para buscarmos de novo.", chosen.Name)}, nil
	}

	sess.Data.DoctorID = chosen.ID
	sess.Data.AvailableSlots = slots
	sess.Step = StepAwaitingSlot

	return turn{text: formatSlots(slots)}, nil
}

func (e *Engine) handleSlot(sess *Session, message string) (turn, error) {
	slot, ok := resolveSlot(message, sess.Data.AvailableSlots)
	if !ok {
		return turn{text: "Formato de horário inválido. Digite o NÚMERO do horário ou a data e hora no formato AAAA-MM-DD HH:MM."}, nil
	}

	if !containsSlot(sess.Data.AvailableSlots, slot) {
		return turn{text: "Horário indisponível ou já passou. Escolha um horário da lista ou digite 'recomeçar'."}, nil
	}

	sess.Data.Slot = slot
	sess.Step = StepAwaitingBirthDate
	return turn{text: "Quase lá! Informe a sua data de nascimento (AAAA-MM-DD)."}, nil
}

func (e *Engine) handleBirthDate(sess *Session, message string) (turn, error) {
	if _, err := time.Parse("2006-01-02", message); err != nil {
		return turn{text: "Data de nascimento inválida. Use o formato AAAA-MM-DD, por exemplo 1990-05-15."}, nil
	}

	sess.Data.PatientBirth = message
	sess.Step = StepAwaitingReason
	return turn{text: "Qual o motivo principal da consulta?"}, nil
}

func (e *Engine) handleReason(ctx context.Context, sess *Session, message string) (turn, error) {
	if message == "" {
		return turn{text: "Por favor, descreva em poucas palavras o motivo da consulta."}, nil
	}

	sess.Data.Reason = message

	birth, err := time.Parse("2006-01-02", sess.Data.PatientBirth)
	if err != nil {
		return turn{}, fmt.Errorf("stored birth date %q: %w", sess.Data.PatientBirth, err)
	}

	confirmation, err := e.scheduler.BookAppointment(ctx, sess.Data.DoctorID, sess.Data.Slot, scheduling.PatientData{
		Name:      sess.Data.PatientName,
		Birth:     birth,
		Specialty: sess.Data.Specialty,
		Reason:    sess.Data.Reason,
	})
	if err != nil {
		if errors.Is(err, scheduling.ErrSlotUnavailable) {
			return e.reofferSlots(ctx, sess)
		}
		return turn{}, fmt.Errorf("book appointment: %w", err)
	}

	text := fmt.Sprintf(
		"AGENDAMENTO CONFIRMADO!\n\nProtocolo: %s\nMédico: %s\nHorário: %s\n\nObrigado, %s! Digite 'recomeçar' para um novo agendamento.",
		confirmation.Protocol,
		confirmation.DoctorName,
		confirmation.DateTime.Format("02/01/2006 às 15:04"),
		confirmation.PatientName,
	)
	return turn{text: text, completed: true}, nil
}

// reofferSlots handles a booking conflict: the slot was taken between offer
// and commit. The failure is expected under contention and recoverable, so
// the user goes back to slot selection with a fresh list instead of being
// aborted.
func (e *Engine) reofferSlots(ctx context.Context, sess *Session) (turn, error) {
	slots, err := e.scheduler.ListAvailableSlots(ctx, sess.Data.DoctorID)
	if err != nil {
		return turn{}, fmt.Errorf("refresh slots after conflict: %w", err)
	}

	if len(slots) == 0 {
		sess.Step = StepAwaitingSpecialty
		sess.Data.Doctors = nil
		sess.Data.AvailableSlots = nil
		return turn{text: fmt.Sprintf("%s acabou de ficar sem horários livres. Informe outra especialidade para tentarmos de novo.", sess.doctorName())}, nil
	}

	sess.Data.AvailableSlots = slots
	sess.Data.Slot = time.Time{}
	sess.Step = StepAwaitingSlot

	return turn{text: "Esse horário acabou de ser preenchido por outra pessoa. " + formatSlots(slots)}, nil
}

func (e *Engine) reset(ctx context.Context, sessionID string) (Reply, error) {
	fresh := &Session{Step: StepAwaitingName}
	if err := e.save(ctx, sessionID, fresh); err != nil {
		return Reply{}, e.teardown(ctx, sessionID, fmt.Errorf("create session: %w", err))
	}
	return Reply{Text: "Bem-vindo ao agendamento! Qual é o seu nome completo?"}, nil
}

// teardown deletes the session so the user restarts from scratch; the
// conversation never silently resumes past an internal error.
func (e *Engine) teardown(ctx context.Context, sessionID string, cause error) error {
	e.logger.Error().Err(cause).Str("session_id", sessionID).Msg("conversation turn failed")
	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		e.logger.Warn().Err(err).Str("session_id", sessionID).Msg("delete session after failure")
	}
	return cause
}

func (e *Engine) load(ctx context.Context, sessionID string) (*Session, error) {
	payload, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (e *Engine) save(ctx context.Context, sessionID string, sess *Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return e.sessions.Put(ctx, sessionID, payload)
}

// resolveSlot interprets the user's answer as a 1-based index into the
// offered list or as a literal date-time.
func resolveSlot(message string, offered []time.Time) (time.Time, bool) {
	if index, err := strconv.Atoi(message); err == nil {
		if index >= 1 && index <= len(offered) {
			return offered[index-1], true
		}
		return time.Time{}, false
	}

	for _, layout := range []string{"2006-01-02 15:04", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, message, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func containsSlot(offered []time.Time, slot time.Time) bool {
	for _, s := range offered {
		if s.Equal(slot) {
			return true
		}
	}
	return false
}

func formatSlots(slots []time.Time) string {
	shown := slots
	if len(shown) > maxSlotsShown {
		shown = shown[:maxSlotsShown]
	}

	var b strings.Builder
	b.WriteString("Horários disponíveis (digite o NÚMERO ou a data e hora no formato AAAA-MM-DD HH:MM):\n\n")
	for i, s := range shown {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s.Format("02/01 às 15:04"))
	}
	return b.String()
}
