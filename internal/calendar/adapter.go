// Package calendar wraps the external calendar service behind a uniform
// retry and error-classification contract.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/googleapi"

	"github.com/trainhub/trainhub-server/internal/logger"
	"github.com/trainhub/trainhub-server/internal/model"
)

// CredentialSource resolves a valid access credential for a user.
type CredentialSource interface {
	GetValidCredential(ctx context.Context, userID uuid.UUID) (model.Credential, error)
}

var _ model.CalendarSync = (*Adapter)(nil)

// Adapter layers credential resolution, bounded timeouts, and a single retry
// for transient failures on top of the raw calendar API. AuthRevoked passes
// through untouched. The remote service is not idempotent, so the adapter
// never retries a call that may have landed; only transiently classified
// failures are retried, once.
type Adapter struct {
	api     model.CalendarAPI
	creds   CredentialSource
	logger  *logger.Logger
	timeout time.Duration
}

// NewAdapter creates an Adapter around the given API and credential source.
func NewAdapter(api model.CalendarAPI, creds CredentialSource, logger *logger.Logger, timeout time.Duration) *Adapter {
	return &Adapter{
		api:     api,
		creds:   creds,
		logger:  logger,
		timeout: timeout,
	}
}

// classify maps raw remote errors onto the engine's taxonomy. 401 means the
// credential is dead; timeouts, rate limits and server errors are retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, model.ErrAuthRevoked) || errors.Is(err, model.ErrTransient) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401:
			return fmt.Errorf("calendar rejected credential: %w", model.ErrAuthRevoked)
		case apiErr.Code == 408 || apiErr.Code == 429 || apiErr.Code >= 500:
			return fmt.Errorf("calendar unavailable (%d): %w", apiErr.Code, model.ErrTransient)
		default:
			return err
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("calendar call timed out: %w", model.ErrTransient)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("calendar network failure: %w", model.ErrTransient)
	}

	return err
}

// do runs one remote call with a bounded timeout and a single retry on a
// transient classification.
func (a *Adapter) do(ctx context.Context, call func(ctx context.Context) error) error {
	attempt := func() error {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		return classify(call(callCtx))
	}

	err := attempt()
	if errors.Is(err, model.ErrTransient) {
		err = attempt()
	}

	return err
}

func (a *Adapter) CreateCalendar(ctx context.Context, userID uuid.UUID, displayName string) (string, error) {
	cred, err := a.creds.GetValidCredential(ctx, userID)
	if err != nil {
		return "", err
	}

	var calendarID string
	err = a.do(ctx, func(ctx context.Context) error {
		var callErr error
		calendarID, callErr = a.api.CreateCalendar(ctx, cred, displayName)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("failed to create calendar: %w", err)
	}

	return calendarID, nil
}

// DeleteCalendar is best-effort compensation: failures are logged and never
// escalated to the caller.
func (a *Adapter) DeleteCalendar(ctx context.Context, userID uuid.UUID, calendarID string) {
	cred, err := a.creds.GetValidCredential(ctx, userID)
	if err != nil {
		a.logger.Error("failed to resolve credential for calendar deletion", "user_id", userID, "calendar_id", calendarID, "error", err)
		return
	}

	err = a.do(ctx, func(ctx context.Context) error {
		return a.api.DeleteCalendar(ctx, cred, calendarID)
	})
	if err != nil {
		a.logger.Error("failed to delete calendar", "user_id", userID, "calendar_id", calendarID, "error", err)
	}
}

func (a *Adapter) InsertEvent(ctx context.Context, userID uuid.UUID, calendarID string, event model.EventPayload) (string, error) {
	cred, err := a.creds.GetValidCredential(ctx, userID)
	if err != nil {
		return "", err
	}

	var eventID string
	err = a.do(ctx, func(ctx context.Context) error {
		var callErr error
		eventID, callErr = a.api.InsertEvent(ctx, cred, calendarID, event)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert event: %w", err)
	}

	return eventID, nil
}

// DeleteEvent is best-effort cleanup on cancellation: failures are logged and
// never escalated.
func (a *Adapter) DeleteEvent(ctx context.Context, userID uuid.UUID, calendarID, eventID string) {
	cred, err := a.creds.GetValidCredential(ctx, userID)
	if err != nil {
		a.logger.Error("failed to resolve credential for event deletion", "user_id", userID, "event_id", eventID, "error", err)
		return
	}

	err = a.do(ctx, func(ctx context.Context) error {
		return a.api.DeleteEvent(ctx, cred, calendarID, eventID)
	})
	if err != nil {
		a.logger.Error("failed to delete event", "user_id", userID, "event_id", eventID, "error", err)
	}
}
