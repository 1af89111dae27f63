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

// SagaState names a position in the booking saga. Callers only ever observe
// terminal states; intermediate ones exist so compensation is explicit rather
// than buried in error unwinding.
type SagaState string

const (
	StateRequested      SagaState = "requested"
	StateCreditReserved SagaState = "credit_reserved"
	StatePersisted      SagaState = "persisted"
	// StateCalendarSynced is the fully successful terminal state.
	StateCalendarSynced SagaState = "calendar_synced"
	// StateSyncWarning is the degraded terminal state: the booking stands but
	// the external calendar was not updated.
	StateSyncWarning SagaState = "persisted_with_sync_warning"
	// StateReleased is the compensated terminal after a persistence failure.
	StateReleased SagaState = "released"
	// StateReverted is the compensated terminal after a structural sync failure.
	StateReverted SagaState = "reverted"
)

// SyncErrorAuthFailed is the wire tag for the degraded-success path. Callers
// must treat a result carrying it as overall success.
const SyncErrorAuthFailed = "calendar_auth_failed"

// SyncErrorNotConnected marks bookings made before the trainer provisioned a
// calendar; nothing was mirrored and nothing was attempted.
const SyncErrorNotConnected = "calendar_not_connected"

// CreditLedger is the orchestrator's view of the credit ledger.
type CreditLedger interface {
	Consume(ctx context.Context, clientID uuid.UUID) (uuid.UUID, error)
	Refund(ctx context.Context, clientID uuid.UUID) (uuid.UUID, error)
}

// SessionScheduler is the orchestrator's view of the session scheduler.
type SessionScheduler interface {
	CreateSession(ctx context.Context, session model.Session) (model.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) (model.Session, error)
	ExpandRecurring(pattern model.RecurringPattern, clientID, trainerID uuid.UUID, sessionType string) ([]model.Session, error)
	SetEventID(ctx context.Context, id uuid.UUID, eventID string) error
}

// SyncStatus reports the calendar-mirroring outcome of a booking.
type SyncStatus struct {
	EventID *string `json:"eventId"`
	Error   string  `json:"error,omitempty"`
	Message string  `json:"message,omitempty"`
}

// BookSessionResult is the terminal outcome of a single-session booking saga.
type BookSessionResult struct {
	Session model.Session
	Sync    SyncStatus
	State   SagaState
}

// BookRecurringResult is the terminal outcome of a recurring booking saga.
type BookRecurringResult struct {
	Sessions      []model.Session
	TotalSessions int
	Sync          SyncStatus
	State         SagaState
}

// CancelResult reports a cancelled session and whether a credit was restored.
type CancelResult struct {
	Session        model.Session
	CreditRefunded bool
}

// ProvisionResult reports a provisioned external calendar.
type ProvisionResult struct {
	CalendarID   string `json:"calendarId"`
	CalendarName string `json:"calendarName"`
}

// BookRecurringParams describes a recurring booking request.
type BookRecurringParams struct {
	Pattern     model.RecurringPattern
	ClientID    uuid.UUID
	TrainerID   uuid.UUID
	SessionType string
	Location    string
	Notes       string
}

// Booking sequences ledger, scheduler, and calendar operations and applies
// compensation on partial failure.
type Booking struct {
	ledger    CreditLedger
	scheduler SessionScheduler
	calendar  model.CalendarSync
	users     model.UserStore
	notifier  model.Notifier
	logger    *logger.Logger
	loc       *time.Location
}

// NewBooking creates the saga coordinator.
func NewBooking(
	ledger CreditLedger,
	scheduler SessionScheduler,
	calendar model.CalendarSync,
	users model.UserStore,
	notifier model.Notifier,
	logger *logger.Logger,
	loc *time.Location,
) *Booking {
	if loc == nil {
		loc = time.UTC
	}
	return &Booking{
		ledger:    ledger,
		scheduler: scheduler,
		calendar:  calendar,
		users:     users,
		notifier:  notifier,
		logger:    logger,
		loc:       loc,
	}
}

// BookSession runs the single-booking saga:
// Requested -> CreditReserved -> Persisted -> CalendarSynced, with
// compensation back to Released or Reverted on failure and the degraded
// PersistedWithSyncWarning terminal when only the calendar mirror fails with a
// revoked credential. The saga runs detached from the request context so a
// caller disconnect cannot strand a half-applied booking.
func (b *Booking) BookSession(ctx context.Context, session model.Session) (BookSessionResult, error) {
	ctx = context.WithoutCancel(ctx)

	if _, err := b.ledger.Consume(ctx, session.ClientID); err != nil {
		// Nothing reserved yet; fail fast with no side effects.
		return BookSessionResult{State: StateRequested}, err
	}

	created, err := b.scheduler.CreateSession(ctx, session)
	if err != nil {
		b.releaseCredit(ctx, session.ClientID)
		return BookSessionResult{State: StateReleased}, err
	}

	sync, state, err := b.syncSessionEvent(ctx, created)
	if err != nil {
		b.revertSession(ctx, created)
		return BookSessionResult{State: StateReverted}, fmt.Errorf("calendar sync failed: %w", err)
	}

	return BookSessionResult{Session: created, Sync: sync, State: state}, nil
}

// syncSessionEvent mirrors one persisted session to the trainer's external
// calendar. It returns an error only for structural failures that demand
// compensation; revoked credentials and an unprovisioned calendar degrade into
// a warning.
func (b *Booking) syncSessionEvent(ctx context.Context, session model.Session) (SyncStatus, SagaState, error) {
	trainer, err := b.users.GetByID(ctx, session.TrainerID)
	if err != nil {
		return SyncStatus{}, StatePersisted, fmt.Errorf("failed to load trainer: %w", err)
	}

	if !trainer.CalendarConnected || trainer.CalendarID == nil {
		return SyncStatus{
			Error:   SyncErrorNotConnected,
			Message: "no external calendar is connected; the booking stands without a mirrored event",
		}, StateSyncWarning, nil
	}

	eventID, err := b.calendar.InsertEvent(ctx, trainer.ID, *trainer.CalendarID, b.eventPayload(ctx, session))
	if errors.Is(err, model.ErrAuthRevoked) {
		// Sync is a convenience layer; a paid booking never fails because of a
		// stale external credential.
		return SyncStatus{
			Error:   SyncErrorAuthFailed,
			Message: "calendar authorization expired; reconnect the calendar to resume syncing",
		}, StateSyncWarning, nil
	}
	if err != nil {
		return SyncStatus{}, StatePersisted, err
	}

	if err := b.scheduler.SetEventID(ctx, session.ID, eventID); err != nil {
		// The event exists remotely; losing the back-reference only degrades
		// later cleanup.
		b.logger.Error("failed to store event id", "session_id", session.ID, "error", err)
	}

	return SyncStatus{EventID: &eventID}, StateCalendarSynced, nil
}

func (b *Booking) eventPayload(ctx context.Context, session model.Session) model.EventPayload {
	summary := "Training session"
	if session.Type != "" {
		summary = fmt.Sprintf("%s session", session.Type)
	}
	if client, err := b.users.GetByID(ctx, session.ClientID); err == nil && client.Name != "" {
		summary = fmt.Sprintf("%s with %s", summary, client.Name)
	}

	start, end := sessionWindow(session, b.loc)
	return model.EventPayload{
		Summary:     summary,
		Description: session.Notes,
		StartsAt:    start,
		EndsAt:      end,
		TimeZone:    b.loc.String(),
	}
}

// sessionWindow converts a session's civil date and wall-clock times into
// concrete instants in the booking timezone.
func sessionWindow(session model.Session, loc *time.Location) (time.Time, time.Time) {
	day, err := time.ParseInLocation(model.DateLayout, session.Date, loc)
	if err != nil {
		day = time.Now().In(loc)
	}

	parseClock := func(clock string) (int, int, bool) {
		t, err := time.Parse(model.TimeLayout, clock)
		if err != nil {
			return 0, 0, false
		}
		return t.Hour(), t.Minute(), true
	}

	start := day
	if h, m, ok := parseClock(session.StartTime); ok {
		start = time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc)
	}

	end := start.Add(time.Duration(session.DurationMinutes) * time.Minute)
	if h, m, ok := parseClock(session.EndTime); ok {
		end = time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc)
	}

	return start, end
}

// BookRecurring expands a pattern and books every occurrence, consuming one
// credit per occurrence. A ledger or persistence failure mid-expansion unwinds
// the entire recurring booking; a partially booked series is never left
// behind. Calendar mirroring for the series is best-effort.
func (b *Booking) BookRecurring(ctx context.Context, params BookRecurringParams) (BookRecurringResult, error) {
	occurrences, err := b.scheduler.ExpandRecurring(params.Pattern, params.ClientID, params.TrainerID, params.SessionType)
	if err != nil {
		return BookRecurringResult{State: StateRequested}, err
	}

	ctx = context.WithoutCancel(ctx)

	var (
		created  []model.Session
		consumed int
	)
	for _, occurrence := range occurrences {
		if _, err := b.ledger.Consume(ctx, params.ClientID); err != nil {
			b.unwindRecurring(ctx, params.ClientID, created, consumed)
			return BookRecurringResult{State: StateReverted}, err
		}
		consumed++

		occurrence.Notes = params.Notes
		session, err := b.scheduler.CreateSession(ctx, occurrence)
		if err != nil {
			b.unwindRecurring(ctx, params.ClientID, created, consumed)
			return BookRecurringResult{State: StateReverted}, err
		}
		created = append(created, session)
	}

	sync, state := b.syncRecurringEvents(ctx, params.TrainerID, created)

	b.notifyRecurring(ctx, params, len(created))

	return BookRecurringResult{
		Sessions:      created,
		TotalSessions: len(created),
		Sync:          sync,
		State:         state,
	}, nil
}

// syncRecurringEvents mirrors a booked series best-effort. Unlike the single
// booking saga, an event failure here never unwinds the series: compensating N
// persisted bookings for one failed mirror would trade a real booking for a
// cosmetic event.
func (b *Booking) syncRecurringEvents(ctx context.Context, trainerID uuid.UUID, sessions []model.Session) (SyncStatus, SagaState) {
	trainer, err := b.users.GetByID(ctx, trainerID)
	if err != nil {
		b.logger.Error("failed to load trainer for event sync", "trainer_id", trainerID, "error", err)
		return SyncStatus{Error: SyncErrorNotConnected}, StateSyncWarning
	}
	if !trainer.CalendarConnected || trainer.CalendarID == nil {
		return SyncStatus{
			Error:   SyncErrorNotConnected,
			Message: "no external calendar is connected; the bookings stand without mirrored events",
		}, StateSyncWarning
	}

	var lastEventID *string
	for _, session := range sessions {
		eventID, err := b.calendar.InsertEvent(ctx, trainer.ID, *trainer.CalendarID, b.eventPayload(ctx, session))
		if errors.Is(err, model.ErrAuthRevoked) {
			return SyncStatus{
				EventID: lastEventID,
				Error:   SyncErrorAuthFailed,
				Message: "calendar authorization expired; reconnect the calendar to resume syncing",
			}, StateSyncWarning
		}
		if err != nil {
			b.logger.Error("failed to mirror recurring occurrence", "session_id", session.ID, "error", err)
			continue
		}

		if err := b.scheduler.SetEventID(ctx, session.ID, eventID); err != nil {
			b.logger.Error("failed to store event id", "session_id", session.ID, "error", err)
		}
		lastEventID = &eventID
	}

	return SyncStatus{EventID: lastEventID}, StateCalendarSynced
}

func (b *Booking) notifyRecurring(ctx context.Context, params BookRecurringParams, total int) {
	notification := model.RecurringBookingNotification{
		SessionType: params.SessionType,
		RecurringSessions: []model.RecurringSlot{{
			DayOfWeek: params.Pattern.DayOfWeek,
			Time:      params.Pattern.Time,
			Weeks:     params.Pattern.Weeks,
			StartDate: params.Pattern.StartDate,
		}},
		TotalSessions: total,
		Location:      params.Location,
		Notes:         params.Notes,
	}

	if trainer, err := b.users.GetByID(ctx, params.TrainerID); err == nil {
		notification.TrainerEmail = trainer.Email
		notification.TrainerName = trainer.Name
	}
	if client, err := b.users.GetByID(ctx, params.ClientID); err == nil {
		notification.ClientName = client.Name
	}

	b.notifier.NotifyRecurringBooking(ctx, notification)
}

// CancelSession deletes a session, reverses the credit consumed at booking
// time, and removes the mirrored event best-effort.
func (b *Booking) CancelSession(ctx context.Context, id uuid.UUID) (CancelResult, error) {
	ctx = context.WithoutCancel(ctx)

	session, err := b.scheduler.DeleteSession(ctx, id)
	if err != nil {
		return CancelResult{}, err
	}

	refunded := true
	if _, err := b.ledger.Refund(ctx, session.ClientID); err != nil {
		refunded = false
		if errors.Is(err, model.ErrNoRefundablePackage) {
			b.logger.Warn("cancelled session had no refundable package", "session_id", id, "client_id", session.ClientID)
		} else {
			b.logger.Error("failed to refund credit on cancellation", "session_id", id, "error", err)
		}
	}

	if session.EventID != nil {
		if trainer, err := b.users.GetByID(ctx, session.TrainerID); err == nil && trainer.CalendarID != nil {
			b.calendar.DeleteEvent(ctx, trainer.ID, *trainer.CalendarID, *session.EventID)
		}
	}

	return CancelResult{Session: session, CreditRefunded: refunded}, nil
}

// ProvisionCalendar creates the trainer's external calendar and persists its
// id, compensating with a best-effort remote delete if persistence fails. The
// operation is idempotent at this layer: an already provisioned trainer gets
// the existing calendar back and no second remote create is issued.
func (b *Booking) ProvisionCalendar(ctx context.Context, trainerID uuid.UUID) (ProvisionResult, error) {
	ctx = context.WithoutCancel(ctx)

	trainer, err := b.users.GetByID(ctx, trainerID)
	if err != nil {
		return ProvisionResult{}, err
	}

	name := calendarNameFor(trainer)
	if trainer.CalendarConnected && trainer.CalendarID != nil {
		return ProvisionResult{CalendarID: *trainer.CalendarID, CalendarName: name}, nil
	}

	calendarID, err := b.calendar.CreateCalendar(ctx, trainerID, name)
	if err != nil {
		return ProvisionResult{}, fmt.Errorf("failed to provision calendar: %w", err)
	}

	if err := b.users.SetCalendar(ctx, trainerID, calendarID); err != nil {
		// The remote calendar exists but the saga cannot record it; undo the
		// remote side so the invariant (id persisted iff provisioning
		// completed) holds.
		b.calendar.DeleteCalendar(ctx, trainerID, calendarID)
		return ProvisionResult{}, fmt.Errorf("failed to persist calendar id: %w", err)
	}

	return ProvisionResult{CalendarID: calendarID, CalendarName: name}, nil
}

func calendarNameFor(trainer model.User) string {
	if trainer.Name == "" {
		return "Training Sessions"
	}
	return fmt.Sprintf("Training Sessions - %s", trainer.Name)
}

func (b *Booking) releaseCredit(ctx context.Context, clientID uuid.UUID) {
	if _, err := b.ledger.Refund(ctx, clientID); err != nil {
		b.logger.Error("failed to release reserved credit", "client_id", clientID, "error", err)
	}
}

func (b *Booking) revertSession(ctx context.Context, session model.Session) {
	if _, err := b.scheduler.DeleteSession(ctx, session.ID); err != nil {
		b.logger.Error("failed to revert session", "session_id", session.ID, "error", err)
	}
	b.releaseCredit(ctx, session.ClientID)
}

func (b *Booking) unwindRecurring(ctx context.Context, clientID uuid.UUID, created []model.Session, consumed int) {
	for _, session := range created {
		if _, err := b.scheduler.DeleteSession(ctx, session.ID); err != nil {
			b.logger.Error("failed to delete session during unwind", "session_id", session.ID, "error", err)
		}
	}
	for i := 0; i < consumed; i++ {
		if _, err := b.ledger.Refund(ctx, clientID); err != nil {
			b.logger.Error("failed to refund credit during unwind", "client_id", clientID, "error", err)
		}
	}
}
