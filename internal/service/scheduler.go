package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trainhub/trainhub-server/internal/logger"
	"github.com/trainhub/trainhub-server/internal/model"
)

// maxRecurringWeeks caps how far one pattern can expand.
const maxRecurringWeeks = 52

// SessionStatusScheduled is the status assigned to freshly booked sessions.
const SessionStatusScheduled = "scheduled"

// Scheduler creates, mutates, and deletes training sessions and expands
// recurring patterns into concrete occurrences.
type Scheduler struct {
	sessions       model.SessionStore
	logger         *logger.Logger
	defaultMinutes int
}

// NewScheduler creates a Scheduler backed by the given session store.
func NewScheduler(sessions model.SessionStore, logger *logger.Logger, defaultMinutes int) *Scheduler {
	return &Scheduler{
		sessions:       sessions,
		logger:         logger,
		defaultMinutes: defaultMinutes,
	}
}

// CreateSession validates and persists one session row. Credit consumption is
// the orchestrator's job; this only writes the row.
func (s *Scheduler) CreateSession(ctx context.Context, session model.Session) (model.Session, error) {
	if session.ClientID == uuid.Nil {
		return model.Session{}, model.NewValidationError("client_id", "required")
	}
	if session.TrainerID == uuid.Nil {
		return model.Session{}, model.NewValidationError("trainer_id", "required")
	}
	if _, err := time.Parse(model.DateLayout, session.Date); err != nil {
		return model.Session{}, model.NewValidationError("date", "must be YYYY-MM-DD")
	}
	start, err := time.Parse(model.TimeLayout, session.StartTime)
	if err != nil {
		return model.Session{}, model.NewValidationError("start_time", "must be HH:MM")
	}

	if session.DurationMinutes <= 0 {
		session.DurationMinutes = s.defaultMinutes
	}
	if session.EndTime == "" {
		session.EndTime = start.Add(time.Duration(session.DurationMinutes) * time.Minute).Format(model.TimeLayout)
	} else if _, err := time.Parse(model.TimeLayout, session.EndTime); err != nil {
		return model.Session{}, model.NewValidationError("end_time", "must be HH:MM")
	}
	if session.Status == "" {
		session.Status = SessionStatusScheduled
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	created, err := s.sessions.Create(ctx, session)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to create session: %w", err)
	}

	return created, nil
}

// PatchSession applies only the supplied fields; absent fields stay untouched.
func (s *Scheduler) PatchSession(ctx context.Context, id uuid.UUID, patch model.SessionPatch) (model.Session, error) {
	if patch.Date != nil {
		if _, err := time.Parse(model.DateLayout, *patch.Date); err != nil {
			return model.Session{}, model.NewValidationError("date", "must be YYYY-MM-DD")
		}
	}
	if patch.StartTime != nil {
		if _, err := time.Parse(model.TimeLayout, *patch.StartTime); err != nil {
			return model.Session{}, model.NewValidationError("start_time", "must be HH:MM")
		}
	}
	if patch.EndTime != nil {
		if _, err := time.Parse(model.TimeLayout, *patch.EndTime); err != nil {
			return model.Session{}, model.NewValidationError("end_time", "must be HH:MM")
		}
	}
	if patch.DurationMinutes != nil && *patch.DurationMinutes <= 0 {
		return model.Session{}, model.NewValidationError("duration_minutes", "must be positive")
	}

	session, err := s.sessions.Update(ctx, id, patch)
	if err != nil {
		return model.Session{}, err
	}

	return session, nil
}

// DeleteSession removes the row and returns it so the caller can reverse the
// credit consumption and clean up the mirrored event.
func (s *Scheduler) DeleteSession(ctx context.Context, id uuid.UUID) (model.Session, error) {
	return s.sessions.Delete(ctx, id)
}

// SetEventID records the mirrored calendar event against the session.
func (s *Scheduler) SetEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	return s.sessions.SetEventID(ctx, id, eventID)
}

// ExpandRecurring expands a pattern into weeks concrete sessions, one per
// week, starting at the first matching weekday on or after the start date.
// All arithmetic is done in plain calendar days; routing the date through a
// UTC timestamp here shifts the weekday for callers west of Greenwich.
// The sessions are not persisted; the orchestrator persists each occurrence
// paired with a credit consumption.
func (s *Scheduler) ExpandRecurring(pattern model.RecurringPattern, clientID, trainerID uuid.UUID, sessionType string) ([]model.Session, error) {
	weekday, err := parseWeekday(pattern.DayOfWeek)
	if err != nil {
		return nil, model.NewValidationError("day_of_week", "unknown weekday")
	}
	start, err := time.Parse(model.TimeLayout, pattern.Time)
	if err != nil {
		return nil, model.NewValidationError("time", "must be HH:MM")
	}
	if pattern.Weeks < 1 || pattern.Weeks > maxRecurringWeeks {
		return nil, model.NewValidationError("weeks", fmt.Sprintf("must be between 1 and %d", maxRecurringWeeks))
	}
	startDate, err := time.Parse(model.DateLayout, pattern.StartDate)
	if err != nil {
		return nil, model.NewValidationError("start_date", "must be YYYY-MM-DD")
	}

	offset := (int(weekday) - int(startDate.Weekday()) + 7) % 7
	first := startDate.AddDate(0, 0, offset)
	endTime := start.Add(time.Duration(s.defaultMinutes) * time.Minute).Format(model.TimeLayout)

	sessions := make([]model.Session, 0, pattern.Weeks)
	for i := 0; i < pattern.Weeks; i++ {
		sessions = append(sessions, model.Session{
			ID:              uuid.New(),
			ClientID:        clientID,
			TrainerID:       trainerID,
			Date:            first.AddDate(0, 0, 7*i).Format(model.DateLayout),
			StartTime:       pattern.Time,
			EndTime:         endTime,
			Type:            sessionType,
			Status:          SessionStatusScheduled,
			DurationMinutes: s.defaultMinutes,
		})
	}

	return sessions, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("unknown weekday: %q", name)
}
