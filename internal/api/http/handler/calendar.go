package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/trainhub/trainhub-server/internal/logger"
	"github.com/trainhub/trainhub-server/internal/model"
	"github.com/trainhub/trainhub-server/internal/service"
)

// ProvisionService provisions external calendars for trainers.
type ProvisionService interface {
	ProvisionCalendar(ctx context.Context, trainerID uuid.UUID) (service.ProvisionResult, error)
}

// CredentialConnector runs the OAuth consent flow for calendar access.
type CredentialConnector interface {
	AuthCodeURL(state string) string
	Connect(ctx context.Context, userID uuid.UUID, code string) error
}

// Calendar handles HTTP endpoints for calendar provisioning and consent.
type Calendar struct {
	provisioner    ProvisionService
	connector      CredentialConnector
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewCalendar creates a new Calendar handler.
func NewCalendar(provisioner ProvisionService, connector CredentialConnector, contextManager model.ContextManager, logger *logger.Logger) *Calendar {
	return &Calendar{
		provisioner:    provisioner,
		connector:      connector,
		contextManager: contextManager,
		logger:         logger,
	}
}

// AuthURL returns the consent URL the caller visits to authorize calendar
// access. The caller's own id rides along as the state parameter.
func (h *Calendar) AuthURL(c *gin.Context) {
	identity, ok := h.contextManager.GetIdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"auth_url": h.connector.AuthCodeURL(identity.UserID.String())})
}

type connectRequest struct {
	Code string `json:"code" binding:"required"`
}

// Connect redeems a consent code and stores the calendar credential.
func (h *Calendar) Connect(c *gin.Context) {
	identity, ok := h.contextManager.GetIdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
		return
	}

	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.connector.Connect(c.Request.Context(), identity.UserID, req.Code); err != nil {
		h.logger.Error("calendar consent failed", "user_id", identity.UserID, "error", err)
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"connected": true})
}

// Provision creates the caller's dedicated external calendar. Calling it again
// returns the already provisioned calendar.
func (h *Calendar) Provision(c *gin.Context) {
	identity, ok := h.contextManager.GetIdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
		return
	}

	result, err := h.provisioner.ProvisionCalendar(c.Request.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("calendar provisioning failed", "trainer_id", identity.UserID, "error", err)
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
