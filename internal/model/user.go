package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role identifies a caller's role on the platform.
type Role string

const (
	// RoleTrainer is a coach who owns the schedule and the mirrored calendar.
	RoleTrainer Role = "trainer"
	// RoleClient is a customer who holds session credits.
	RoleClient Role = "client"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	SetCalendar(ctx context.Context, id uuid.UUID, calendarID string) error
}

// CredentialStore persists the per-user OAuth credential pair. Only the token
// vault reads or writes through it.
type CredentialStore interface {
	GetOAuthToken(ctx context.Context, userID uuid.UUID) (OAuthToken, error)
	SaveOAuthToken(ctx context.Context, userID uuid.UUID, token OAuthToken) error
}

// User represents a stored platform user.
type User struct {
	ID                uuid.UUID
	Email             string
	Name              string
	Role              Role
	CalendarID        *string
	CalendarConnected bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OAuthToken is the stored credential pair for the external calendar service.
// It never crosses the vault boundary; callers get a Credential instead.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Credential is the refresh-token-free view of a calendar credential handed to
// calendar callers.
type Credential struct {
	AccessToken string
	Expiry      time.Time
}

// Valid reports whether the access token can still be presented at the given time.
func (c Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && (c.Expiry.IsZero() || now.Before(c.Expiry))
}
