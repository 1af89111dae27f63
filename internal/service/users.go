package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/trainhub/trainhub-server/internal/logger"
	"github.com/trainhub/trainhub-server/internal/model"
)

// CreditGranter issues credit packages on signup.
type CreditGranter interface {
	Grant(ctx context.Context, clientID uuid.UUID, sessionsIncluded int, transactionID *string) (model.Package, error)
}

// Users registers platform users and hands new clients their welcome credits.
type Users struct {
	users       model.UserStore
	ledger      CreditGranter
	logger      *logger.Logger
	signupGrant int
}

// NewUsers creates a Users service backed by the given user store.
func NewUsers(users model.UserStore, ledger CreditGranter, logger *logger.Logger, signupGrant int) *Users {
	return &Users{
		users:       users,
		ledger:      ledger,
		logger:      logger,
		signupGrant: signupGrant,
	}
}

// Register creates a user. A new client receives the free signup grant; the
// grant is never payment-sourced. An already registered email yields
// model.ErrConflict.
func (s *Users) Register(ctx context.Context, email, name string, role model.Role) (model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return model.User{}, model.NewValidationError("email", "must be a valid email address")
	}
	if name == "" {
		return model.User{}, model.NewValidationError("name", "required")
	}
	if role != model.RoleTrainer && role != model.RoleClient {
		return model.User{}, model.NewValidationError("role", "must be trainer or client")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return model.User{}, fmt.Errorf("email already registered: %w", model.ErrConflict)
	} else if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("failed to check existing user: %w", err)
	}

	user, err := s.users.Create(ctx, model.User{
		ID:    uuid.New(),
		Email: email,
		Name:  name,
		Role:  role,
	})
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	if role == model.RoleClient && s.signupGrant > 0 {
		if _, err := s.ledger.Grant(ctx, user.ID, s.signupGrant, nil); err != nil {
			// The account exists; a trainer can re-issue the welcome credits.
			s.logger.Error("failed to issue signup grant", "user_id", user.ID, "error", err)
		}
	}

	return user, nil
}

// GetByID returns the stored user.
func (s *Users) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return s.users.GetByID(ctx, id)
}
