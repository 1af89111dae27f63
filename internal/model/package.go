package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PackageStatus enumerates lifecycle states of a credit package.
type PackageStatus string

const (
	// PackageStatusActive is a package with remaining usable sessions.
	PackageStatusActive PackageStatus = "active"
	// PackageStatusCompleted is a fully consumed package, retained for audit.
	PackageStatusCompleted PackageStatus = "completed"
)

// PackageStore defines persistence operations for credit packages.
type PackageStore interface {
	Create(ctx context.Context, pkg Package) (Package, error)
	// GetByClientID returns the client's packages ordered most-recent purchase
	// first (ties broken by created_at descending).
	GetByClientID(ctx context.Context, clientID uuid.UUID) ([]Package, error)
	// UpdateCounts applies a compare-and-swap on the usage counters. The update
	// only lands if the stored counters still equal the expected values;
	// otherwise ErrConflict is returned and the caller re-reads and retries.
	UpdateCounts(ctx context.Context, id uuid.UUID, expectedUsed, expectedIncluded, newUsed, newIncluded int, status PackageStatus) error
}

// Package represents a purchased or granted block of session credits.
// TransactionID is set only for payment-sourced packages; manual and signup
// grants leave it nil and are never topped up.
type Package struct {
	ID               uuid.UUID
	ClientID         uuid.UUID
	SessionsIncluded int
	SessionsUsed     int
	Status           PackageStatus
	PurchaseDate     time.Time
	TransactionID    *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Remaining returns the number of unconsumed sessions.
func (p Package) Remaining() int {
	if p.SessionsUsed >= p.SessionsIncluded {
		return 0
	}
	return p.SessionsIncluded - p.SessionsUsed
}

// StatusFor returns the status the invariant demands for the given counters:
// completed exactly when used has reached included.
func StatusFor(used, included int) PackageStatus {
	if used >= included {
		return PackageStatusCompleted
	}
	return PackageStatusActive
}
