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

// BookingService runs the booking sagas.
type BookingService interface {
	BookSession(ctx context.Context, session model.Session) (service.BookSessionResult, error)
	BookRecurring(ctx context.Context, params service.BookRecurringParams) (service.BookRecurringResult, error)
	CancelSession(ctx context.Context, id uuid.UUID) (service.CancelResult, error)
}

// SchedulerService mutates persisted sessions outside the saga paths.
type SchedulerService interface {
	PatchSession(ctx context.Context, id uuid.UUID, patch model.SessionPatch) (model.Session, error)
}

// Booking handles HTTP endpoints for session booking.
type Booking struct {
	bookings       BookingService
	scheduler      SchedulerService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewBooking creates a new Booking handler.
func NewBooking(bookings BookingService, scheduler SchedulerService, contextManager model.ContextManager, logger *logger.Logger) *Booking {
	return &Booking{
		bookings:       bookings,
		scheduler:      scheduler,
		contextManager: contextManager,
		logger:         logger,
	}
}

type createSessionRequest struct {
	ClientID        string `json:"client_id" binding:"required"`
	Date            string `json:"date" binding:"required"`
	StartTime       string `json:"start_time" binding:"required"`
	EndTime         string `json:"end_time"`
	Type            string `json:"type"`
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes"`
}

type sessionResponse struct {
	ID              string  `json:"id"`
	ClientID        string  `json:"client_id"`
	TrainerID       string  `json:"trainer_id"`
	Date            string  `json:"date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	Type            string  `json:"type,omitempty"`
	Status          string  `json:"status"`
	DurationMinutes int     `json:"duration_minutes"`
	Notes           string  `json:"notes,omitempty"`
	EventID         *string `json:"event_id,omitempty"`
}

func toSessionResponse(session model.Session) sessionResponse {
	return sessionResponse{
		ID:              session.ID.String(),
		ClientID:        session.ClientID.String(),
		TrainerID:       session.TrainerID.String(),
		Date:            session.Date,
		StartTime:       session.StartTime,
		EndTime:         session.EndTime,
		Type:            session.Type,
		Status:          session.Status,
		DurationMinutes: session.DurationMinutes,
		Notes:           session.Notes,
		EventID:         session.EventID,
	}
}

type bookSessionResponse struct {
	Session sessionResponse `json:"session"`
	EventID *string         `json:"eventId"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// CreateSession books one session through the saga. A degraded sync outcome
// still returns 201; the eventId is null and the error field explains why.
func (h *Booking) CreateSession(c *gin.Context) {
	identity, ok := h.contextManager.GetIdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
		return
	}

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "field": "client_id", "reason": "must be a UUID"})
		return
	}

	result, err := h.bookings.BookSession(c.Request.Context(), model.Session{
		ClientID:        clientID,
		TrainerID:       identity.UserID,
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Type:            req.Type,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	})
	if err != nil {
		h.logger.Error("booking failed", "client_id", clientID, "error", err)
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bookSessionResponse{
		Session: toSessionResponse(result.Session),
		EventID: result.Sync.EventID,
		Error:   result.Sync.Error,
		Message: result.Sync.Message,
	})
}

type bookRecurringRequest struct {
	ClientID    string `json:"client_id" binding:"required"`
	SessionType string `json:"session_type"`
	DayOfWeek   string `json:"day_of_week" binding:"required"`
	Time        string `json:"time" binding:"required"`
	Weeks       int    `json:"weeks" binding:"required"`
	StartDate   string `json:"start_date" binding:"required"`
	Location    string `json:"location"`
	Notes       string `json:"notes"`
}

type bookRecurringResponse struct {
	Sessions      []sessionResponse `json:"sessions"`
	TotalSessions int               `json:"total_sessions"`
	EventID       *string           `json:"eventId"`
	Error         string            `json:"error,omitempty"`
	Message       string            `json:"message,omitempty"`
}

// CreateRecurring books a weekly series; one credit per occurrence, all or
// nothing.
func (h *Booking) CreateRecurring(c *gin.Context) {
	identity, ok := h.contextManager.GetIdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
		return
	}

	var req bookRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "field": "client_id", "reason": "must be a UUID"})
		return
	}

	result, err := h.bookings.BookRecurring(c.Request.Context(), service.BookRecurringParams{
		Pattern: model.RecurringPattern{
			DayOfWeek: req.DayOfWeek,
			Time:      req.Time,
			Weeks:     req.Weeks,
			StartDate: req.StartDate,
		},
		ClientID:    clientID,
		TrainerID:   identity.UserID,
		SessionType: req.SessionType,
		Location:    req.Location,
		Notes:       req.Notes,
	})
	if err != nil {
		h.logger.Error("recurring booking failed", "client_id", clientID, "error", err)
		handleError(c, err)
		return
	}

	sessions := make([]sessionResponse, 0, len(result.Sessions))
	for _, session := range result.Sessions {
		sessions = append(sessions, toSessionResponse(session))
	}

	c.JSON(http.StatusCreated, bookRecurringResponse{
		Sessions:      sessions,
		TotalSessions: result.TotalSessions,
		EventID:       result.Sync.EventID,
		Error:         result.Sync.Error,
		Message:       result.Sync.Message,
	})
}

type patchSessionRequest struct {
	Date            *string `json:"date"`
	StartTime       *string `json:"start_time"`
	EndTime         *string `json:"end_time"`
	Type            *string `json:"type"`
	Status          *string `json:"status"`
	DurationMinutes *int    `json:"duration_minutes"`
	Notes           *string `json:"notes"`
}

// PatchSession updates only the supplied fields of a session.
func (h *Booking) PatchSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "field": "id", "reason": "must be a UUID"})
		return
	}

	var req patchSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, err := h.scheduler.PatchSession(c.Request.Context(), id, model.SessionPatch{
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Type:            req.Type,
		Status:          req.Status,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(session)})
}

// CancelSession deletes a session, refunds its credit, and removes the
// mirrored event best-effort.
func (h *Booking) CancelSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "field": "id", "reason": "must be a UUID"})
		return
	}

	result, err := h.bookings.CancelSession(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":         toSessionResponse(result.Session),
		"credit_refunded": result.CreditRefunded,
	})
}
