package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/trainhub/trainhub-server/internal/logger"
	"github.com/trainhub/trainhub-server/internal/model"
)

// LedgerService grants and lists session credit packages.
type LedgerService interface {
	Grant(ctx context.Context, clientID uuid.UUID, sessionsIncluded int, transactionID *string) (model.Package, error)
	ListPackages(ctx context.Context, clientID uuid.UUID) ([]model.Package, error)
}

// Package handles HTTP endpoints for credit packages.
type Package struct {
	ledger         LedgerService
	contextManager model.ContextManager
	webhookSecret  string
	logger         *logger.Logger
}

// NewPackage creates a new Package handler.
func NewPackage(ledger LedgerService, contextManager model.ContextManager, webhookSecret string, logger *logger.Logger) *Package {
	return &Package{
		ledger:         ledger,
		contextManager: contextManager,
		webhookSecret:  webhookSecret,
		logger:         logger,
	}
}

type packageResponse struct {
	ID               string  `json:"id"`
	ClientID         string  `json:"client_id"`
	SessionsIncluded int     `json:"sessions_included"`
	SessionsUsed     int     `json:"sessions_used"`
	Remaining        int     `json:"remaining"`
	Status           string  `json:"status"`
	PurchaseDate     string  `json:"purchase_date"`
	TransactionID    *string `json:"transaction_id,omitempty"`
}

func toPackageResponse(pkg model.Package) packageResponse {
	return packageResponse{
		ID:               pkg.ID.String(),
		ClientID:         pkg.ClientID.String(),
		SessionsIncluded: pkg.SessionsIncluded,
		SessionsUsed:     pkg.SessionsUsed,
		Remaining:        pkg.Remaining(),
		Status:           string(pkg.Status),
		PurchaseDate:     pkg.PurchaseDate.Format(time.RFC3339),
		TransactionID:    pkg.TransactionID,
	}
}

// ListForClient returns a client's packages. A client may only read their own;
// trainers may read any.
func (h *Package) ListForClient(c *gin.Context) {
	identity, ok := h.contextManager.GetIdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
		return
	}

	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "field": "id", "reason": "must be a UUID"})
		return
	}

	if identity.Role != model.RoleTrainer && identity.UserID != clientID {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}

	packages, err := h.ledger.ListPackages(c.Request.Context(), clientID)
	if err != nil {
		handleError(c, err)
		return
	}

	responses := make([]packageResponse, 0, len(packages))
	remaining := 0
	for _, pkg := range packages {
		responses = append(responses, toPackageResponse(pkg))
		remaining += pkg.Remaining()
	}

	c.JSON(http.StatusOK, gin.H{"packages": responses, "remaining": remaining})
}

type grantRequest struct {
	ClientID         string `json:"client_id" binding:"required"`
	SessionsIncluded int    `json:"sessions_included" binding:"required"`
}

// Grant issues a manual credit package. Manual packages carry no transaction
// id and are never topped up by payments.
func (h *Package) Grant(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "field": "client_id", "reason": "must be a UUID"})
		return
	}

	pkg, err := h.ledger.Grant(c.Request.Context(), clientID, req.SessionsIncluded, nil)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"package": toPackageResponse(pkg)})
}

type paymentWebhookRequest struct {
	ClientID         string `json:"client_id" binding:"required"`
	SessionsIncluded int    `json:"sessions_included" binding:"required"`
	TransactionID    string `json:"transaction_id" binding:"required"`
}

// PaymentWebhook records a payment-sourced grant. Signature verification
// happens upstream; this endpoint only checks the shared secret header.
func (h *Package) PaymentWebhook(c *gin.Context) {
	secret := c.GetHeader("X-Webhook-Secret")
	if h.webhookSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.webhookSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}

	var req paymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "field": "client_id", "reason": "must be a UUID"})
		return
	}

	pkg, err := h.ledger.Grant(c.Request.Context(), clientID, req.SessionsIncluded, &req.TransactionID)
	if err != nil {
		h.logger.Error("payment grant failed", "client_id", clientID, "transaction_id", req.TransactionID, "error", err)
		handleError(c, err)
		return
	}

	h.logger.Info("payment grant applied",
		"client_id", clientID,
		"transaction_id", req.TransactionID,
		"package_id", pkg.ID,
	)

	c.JSON(http.StatusOK, gin.H{"package": toPackageResponse(pkg)})
}
