package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/trainhub/trainhub-server/internal/logger"
	"github.com/trainhub/trainhub-server/internal/model"
)

// UserService registers platform users.
type UserService interface {
	Register(ctx context.Context, email, name string, role model.Role) (model.User, error)
}

// TokenIssuer signs access tokens for registered users.
type TokenIssuer interface {
	GenerateAccessToken(userID uuid.UUID, role model.Role) (string, error)
}

// Auth handles HTTP endpoints for registration and token issuance.
type Auth struct {
	users  UserService
	tokens TokenIssuer
	logger *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(users UserService, tokens TokenIssuer, logger *logger.Logger) *Auth {
	return &Auth{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

type registerRequest struct {
	Email string `json:"email" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Register creates a user and returns a signed access token. New clients
// receive their welcome credit package as part of registration.
func (h *Auth) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Email, req.Name, model.Role(req.Role))
	if err != nil {
		handleError(c, err)
		return
	}

	token, err := h.tokens.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		h.logger.Error("failed to sign access token", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user": userResponse{
			ID:    user.ID.String(),
			Email: user.Email,
			Name:  user.Name,
			Role:  string(user.Role),
		},
		"token": token,
	})
}
