package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trainhub/trainhub-server/internal/logger"
	"github.com/trainhub/trainhub-server/internal/model"
)

// maxUsageAttempts bounds the select-then-update cycle under concurrent
// bookings against the same package.
const maxUsageAttempts = 3

// Ledger tracks purchase, consumption, and refund of session credits.
type Ledger struct {
	packages model.PackageStore
	logger   *logger.Logger
	now      func() time.Time
}

// NewLedger creates a Ledger backed by the given package store.
func NewLedger(packages model.PackageStore, logger *logger.Logger) *Ledger {
	return &Ledger{
		packages: packages,
		logger:   logger,
		now:      time.Now,
	}
}

// Consume draws one credit from the client's most recently purchased active
// package with remaining usage. Returns model.ErrInsufficientCredit when no
// such package exists. The counter update is a compare-and-swap; a concurrent
// booking forces a re-read and retry.
func (l *Ledger) Consume(ctx context.Context, clientID uuid.UUID) (uuid.UUID, error) {
	for attempt := 0; attempt < maxUsageAttempts; attempt++ {
		packages, err := l.packages.GetByClientID(ctx, clientID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to load packages: %w", err)
		}

		pkg, ok := pickConsumable(packages)
		if !ok {
			return uuid.Nil, model.ErrInsufficientCredit
		}

		newUsed := pkg.SessionsUsed + 1
		if newUsed > pkg.SessionsIncluded {
			newUsed = pkg.SessionsIncluded
		}

		err = l.packages.UpdateCounts(ctx, pkg.ID,
			pkg.SessionsUsed, pkg.SessionsIncluded,
			newUsed, pkg.SessionsIncluded,
			model.StatusFor(newUsed, pkg.SessionsIncluded))
		if errors.Is(err, model.ErrConflict) {
			l.logger.Debug("package usage conflict, retrying", "package_id", pkg.ID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to consume credit: %w", err)
		}

		return pkg.ID, nil
	}

	return uuid.Nil, fmt.Errorf("consume retries exhausted: %w", model.ErrConflict)
}

// Refund gives one credit back after a cancellation, targeting the most
// recently purchased package with consumed sessions. A fully used package
// flips back to active. Returns model.ErrNoRefundablePackage when every
// package is untouched.
func (l *Ledger) Refund(ctx context.Context, clientID uuid.UUID) (uuid.UUID, error) {
	for attempt := 0; attempt < maxUsageAttempts; attempt++ {
		packages, err := l.packages.GetByClientID(ctx, clientID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to load packages: %w", err)
		}

		pkg, ok := pickRefundable(packages)
		if !ok {
			return uuid.Nil, model.ErrNoRefundablePackage
		}

		newUsed := pkg.SessionsUsed - 1
		if newUsed < 0 {
			newUsed = 0
		}

		err = l.packages.UpdateCounts(ctx, pkg.ID,
			pkg.SessionsUsed, pkg.SessionsIncluded,
			newUsed, pkg.SessionsIncluded,
			model.StatusFor(newUsed, pkg.SessionsIncluded))
		if errors.Is(err, model.ErrConflict) {
			l.logger.Debug("package usage conflict, retrying", "package_id", pkg.ID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to refund credit: %w", err)
		}

		return pkg.ID, nil
	}

	return uuid.Nil, fmt.Errorf("refund retries exhausted: %w", model.ErrConflict)
}

// Grant issues sessionsIncluded new credits. A payment-sourced grant
// (transactionID set) tops up the client's still-active payment-sourced
// package when one exists; manual grants always create a new package and are
// themselves never topped up.
func (l *Ledger) Grant(ctx context.Context, clientID uuid.UUID, sessionsIncluded int, transactionID *string) (model.Package, error) {
	if sessionsIncluded <= 0 {
		return model.Package{}, model.NewValidationError("sessions_included", "must be positive")
	}

	if transactionID != nil {
		pkg, found, err := l.topUpPaymentPackage(ctx, clientID, sessionsIncluded)
		if err != nil {
			return model.Package{}, err
		}
		if found {
			return pkg, nil
		}
	}

	pkg := model.Package{
		ID:               uuid.New(),
		ClientID:         clientID,
		SessionsIncluded: sessionsIncluded,
		SessionsUsed:     0,
		Status:           model.PackageStatusActive,
		PurchaseDate:     l.now(),
		TransactionID:    transactionID,
	}

	created, err := l.packages.Create(ctx, pkg)
	if err != nil {
		return model.Package{}, fmt.Errorf("failed to create package: %w", err)
	}

	return created, nil
}

// topUpPaymentPackage merges a payment grant into the client's still-active
// payment-sourced package. found is false when no such package exists and the
// caller should create a new one; conflict exhaustion is an error, never a
// fall-through to a duplicate package.
func (l *Ledger) topUpPaymentPackage(ctx context.Context, clientID uuid.UUID, sessionsIncluded int) (model.Package, bool, error) {
	for attempt := 0; attempt < maxUsageAttempts; attempt++ {
		packages, err := l.packages.GetByClientID(ctx, clientID)
		if err != nil {
			return model.Package{}, false, fmt.Errorf("failed to load packages: %w", err)
		}

		pkg, ok := pickPaymentTopUpTarget(packages)
		if !ok {
			return model.Package{}, false, nil
		}

		newIncluded := pkg.SessionsIncluded + sessionsIncluded
		err = l.packages.UpdateCounts(ctx, pkg.ID,
			pkg.SessionsUsed, pkg.SessionsIncluded,
			pkg.SessionsUsed, newIncluded,
			model.StatusFor(pkg.SessionsUsed, newIncluded))
		if errors.Is(err, model.ErrConflict) {
			l.logger.Debug("package top-up conflict, retrying", "package_id", pkg.ID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return model.Package{}, false, fmt.Errorf("failed to top up package: %w", err)
		}

		pkg.SessionsIncluded = newIncluded
		pkg.Status = model.StatusFor(pkg.SessionsUsed, newIncluded)
		return pkg, true, nil
	}

	return model.Package{}, false, fmt.Errorf("grant retries exhausted: %w", model.ErrConflict)
}

// ListPackages returns the client's packages, most recent purchase first.
func (l *Ledger) ListPackages(ctx context.Context, clientID uuid.UUID) ([]model.Package, error) {
	packages, err := l.packages.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	return packages, nil
}

func pickConsumable(packages []model.Package) (model.Package, bool) {
	for _, pkg := range packages {
		if pkg.Status == model.PackageStatusActive && pkg.SessionsUsed < pkg.SessionsIncluded {
			return pkg, true
		}
	}
	return model.Package{}, false
}

// pickRefundable scans all statuses: a fully consumed package is completed,
// and refunding it must revert it to active.
func pickRefundable(packages []model.Package) (model.Package, bool) {
	for _, pkg := range packages {
		if pkg.SessionsUsed > 0 {
			return pkg, true
		}
	}
	return model.Package{}, false
}

func pickPaymentTopUpTarget(packages []model.Package) (model.Package, bool) {
	for _, pkg := range packages {
		if pkg.Status == model.PackageStatusActive && pkg.TransactionID != nil {
			return pkg, true
		}
	}
	return model.Package{}, false
}
