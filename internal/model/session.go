package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the civil-date wire format for session dates. Dates are kept as
// plain calendar dates and never pass through a UTC-normalizing timestamp
// conversion; doing so shifts the day across timezones.
const DateLayout = "2006-01-02"

// TimeLayout is the wall-clock wire format for session start and end times.
const TimeLayout = "15:04"

// SessionStore defines persistence operations for training sessions.
type SessionStore interface {
	Create(ctx context.Context, session Session) (Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (Session, error)
	// Update applies only the fields set on the patch; nil fields are no-ops.
	Update(ctx context.Context, id uuid.UUID, patch SessionPatch) (Session, error)
	// Delete removes the row and returns it so the caller can reverse the
	// credit consumption and clean up the mirrored event.
	Delete(ctx context.Context, id uuid.UUID) (Session, error)
	SetEventID(ctx context.Context, id uuid.UUID, eventID string) error
}

// Session is one scheduled training occurrence.
type Session struct {
	ID              uuid.UUID
	ClientID        uuid.UUID
	TrainerID       uuid.UUID
	Date            string
	StartTime       string
	EndTime         string
	Type            string
	Status          string
	DurationMinutes int
	Notes           string
	EventID         *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SessionPatch is a partial-field update. Only non-nil fields are applied;
// there is no way to null a field through a patch.
type SessionPatch struct {
	Date            *string
	StartTime       *string
	EndTime         *string
	Type            *string
	Status          *string
	DurationMinutes *int
	Notes           *string
}

// Empty reports whether the patch carries no changes.
func (p SessionPatch) Empty() bool {
	return p.Date == nil && p.StartTime == nil && p.EndTime == nil &&
		p.Type == nil && p.Status == nil && p.DurationMinutes == nil && p.Notes == nil
}

// RecurringPattern is a compact recurrence description expanded once into
// concrete sessions. It is not persisted as its own entity.
type RecurringPattern struct {
	DayOfWeek string
	Time      string
	Weeks     int
	StartDate string
}
