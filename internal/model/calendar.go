package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CalendarAPI is the raw remote calendar surface. Implementations perform a
// single remote call per method with no retry and no credential handling; the
// adapter layers both on top. The remote service guarantees no idempotency, so
// callers must not issue the same create twice for one logical request.
type CalendarAPI interface {
	CreateCalendar(ctx context.Context, cred Credential, displayName string) (string, error)
	DeleteCalendar(ctx context.Context, cred Credential, calendarID string) error
	InsertEvent(ctx context.Context, cred Credential, calendarID string, event EventPayload) (string, error)
	DeleteEvent(ctx context.Context, cred Credential, calendarID, eventID string) error
}

// CalendarSync is the credential-resolving, retrying calendar surface the
// orchestrator talks to. Delete operations are best-effort: failures are
// logged, never escalated.
type CalendarSync interface {
	CreateCalendar(ctx context.Context, userID uuid.UUID, displayName string) (string, error)
	DeleteCalendar(ctx context.Context, userID uuid.UUID, calendarID string)
	InsertEvent(ctx context.Context, userID uuid.UUID, calendarID string, event EventPayload) (string, error)
	DeleteEvent(ctx context.Context, userID uuid.UUID, calendarID, eventID string)
}

// EventPayload describes a calendar event to mirror a session.
type EventPayload struct {
	Summary     string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
	TimeZone    string
}
