package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/trainhub/trainhub-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)
var _ model.CredentialStore = (*UserRepository)(nil)

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var user model.User
	query := `SELECT id, email, name, role, google_calendar_id, calendar_connected, created_at, updated_at
			  FROM users WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Name, &user.Role, &user.CalendarID, &user.CalendarConnected,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	query := `SELECT id, email, name, role, google_calendar_id, calendar_connected, created_at, updated_at
			  FROM users WHERE email = $1`

	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Name, &user.Role, &user.CalendarID, &user.CalendarConnected,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	query := `INSERT INTO users (id, email, name, role)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id, email, name, role, google_calendar_id, calendar_connected, created_at, updated_at`

	var savedUser model.User
	err := r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.Name, string(user.Role),
	).Scan(
		&savedUser.ID, &savedUser.Email, &savedUser.Name, &savedUser.Role,
		&savedUser.CalendarID, &savedUser.CalendarConnected,
		&savedUser.CreatedAt, &savedUser.UpdatedAt,
	)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return savedUser, nil
}

func (r *UserRepository) SetCalendar(ctx context.Context, id uuid.UUID, calendarID string) error {
	query := `UPDATE users SET google_calendar_id = $2, calendar_connected = TRUE, updated_at = NOW()
			  WHERE id = $1`

	cmd, err := r.db.Exec(ctx, query, id, calendarID)
	if err != nil {
		return fmt.Errorf("failed to set calendar: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *UserRepository) GetOAuthToken(ctx context.Context, userID uuid.UUID) (model.OAuthToken, error) {
	query := `SELECT google_access_token, google_refresh_token, google_token_expiry
			  FROM users WHERE id = $1`

	var (
		access  sql.NullString
		refresh sql.NullString
		expiry  sql.NullTime
	)
	err := r.db.QueryRow(ctx, query, userID).Scan(&access, &refresh, &expiry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.OAuthToken{}, model.ErrNotFound
		}
		return model.OAuthToken{}, fmt.Errorf("failed to get oauth token: %w", err)
	}

	// A user without a stored refresh token has never connected a calendar.
	if !refresh.Valid || refresh.String == "" {
		return model.OAuthToken{}, model.ErrNotFound
	}

	token := model.OAuthToken{
		AccessToken:  access.String,
		RefreshToken: refresh.String,
	}
	if expiry.Valid {
		token.Expiry = expiry.Time.UTC()
	}

	return token, nil
}

func (r *UserRepository) SaveOAuthToken(ctx context.Context, userID uuid.UUID, token model.OAuthToken) error {
	query := `UPDATE users
			  SET google_access_token = $2, google_refresh_token = $3, google_token_expiry = $4, updated_at = NOW()
			  WHERE id = $1`

	var expiry *time.Time
	if !token.Expiry.IsZero() {
		e := token.Expiry.UTC()
		expiry = &e
	}

	cmd, err := r.db.Exec(ctx, query, userID, token.AccessToken, token.RefreshToken, expiry)
	if err != nil {
		return fmt.Errorf("failed to save oauth token: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}
