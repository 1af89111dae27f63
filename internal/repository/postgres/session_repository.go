package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/trainhub/trainhub-server/internal/model"
)

var _ model.SessionStore = (*SessionRepository)(nil)

type SessionRepository struct {
	db *Connection
}

func NewSessionRepository(db *Connection) *SessionRepository {
	return &SessionRepository{
		db: db,
	}
}

const sessionColumns = `id, client_id, trainer_id, session_date, start_time, end_time, session_type, status, duration_minutes, notes, google_event_id, created_at, updated_at`

func scanSession(row pgx.Row) (model.Session, error) {
	var (
		session model.Session
		date    time.Time
	)
	err := row.Scan(
		&session.ID, &session.ClientID, &session.TrainerID, &date,
		&session.StartTime, &session.EndTime, &session.Type, &session.Status,
		&session.DurationMinutes, &session.Notes, &session.EventID,
		&session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		return model.Session{}, err
	}

	session.Date = date.Format(model.DateLayout)
	return session, nil
}

func (r *SessionRepository) Create(ctx context.Context, session model.Session) (model.Session, error) {
	query := `INSERT INTO sessions (id, client_id, trainer_id, session_date, start_time, end_time, session_type, status, duration_minutes, notes)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING ` + sessionColumns

	saved, err := scanSession(r.db.QueryRow(ctx, query,
		session.ID, session.ClientID, session.TrainerID, session.Date,
		session.StartTime, session.EndTime, session.Type, session.Status,
		session.DurationMinutes, session.Notes,
	))
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to create session: %w", err)
	}

	return saved, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	session, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Session{}, model.ErrNotFound
		}
		return model.Session{}, fmt.Errorf("failed to get session by id: %w", err)
	}

	return session, nil
}

// buildPatch turns the non-nil patch fields into SET clauses. Argument
// numbering starts at 2; $1 is reserved for the session id.
func buildPatch(patch model.SessionPatch) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(column string, value any) {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)+2))
		args = append(args, value)
	}

	if patch.Date != nil {
		add("session_date", *patch.Date)
	}
	if patch.StartTime != nil {
		add("start_time", *patch.StartTime)
	}
	if patch.EndTime != nil {
		add("end_time", *patch.EndTime)
	}
	if patch.Type != nil {
		add("session_type", *patch.Type)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.DurationMinutes != nil {
		add("duration_minutes", *patch.DurationMinutes)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}

	return strings.Join(clauses, ", "), args
}

func (r *SessionRepository) Update(ctx context.Context, id uuid.UUID, patch model.SessionPatch) (model.Session, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}

	setClause, args := buildPatch(patch)
	query := `UPDATE sessions SET ` + setClause + `, updated_at = NOW() WHERE id = $1 RETURNING ` + sessionColumns

	session, err := scanSession(r.db.QueryRow(ctx, query, append([]any{id}, args...)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Session{}, model.ErrNotFound
		}
		return model.Session{}, fmt.Errorf("failed to update session: %w", err)
	}

	return session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) (model.Session, error) {
	query := `DELETE FROM sessions WHERE id = $1 RETURNING ` + sessionColumns

	session, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Session{}, model.ErrNotFound
		}
		return model.Session{}, fmt.Errorf("failed to delete session: %w", err)
	}

	return session, nil
}

func (r *SessionRepository) SetEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	query := `UPDATE sessions SET google_event_id = $2, updated_at = NOW() WHERE id = $1`

	cmd, err := r.db.Exec(ctx, query, id, eventID)
	if err != nil {
		return fmt.Errorf("failed to set event id: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}
