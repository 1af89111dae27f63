// Package router wires handlers and middleware into the HTTP engine.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/trainhub/trainhub-server/internal/api/http/handler"
	"github.com/trainhub/trainhub-server/internal/api/http/middleware"
	"github.com/trainhub/trainhub-server/internal/logger"
	"github.com/trainhub/trainhub-server/internal/model"
)

// Router assembles the HTTP API for the booking engine.
type Router struct {
	bookingService handler.BookingService
	scheduler      handler.SchedulerService
	ledger         handler.LedgerService
	provisioner    handler.ProvisionService
	connector      handler.CredentialConnector
	users          handler.UserService
	tokens         model.TokenManager
	contextManager model.ContextManager
	webhookSecret  string
	logger         *logger.Logger
}

// New creates a new Router instance.
func New(
	bookingService handler.BookingService,
	scheduler handler.SchedulerService,
	ledger handler.LedgerService,
	provisioner handler.ProvisionService,
	connector handler.CredentialConnector,
	users handler.UserService,
	tokens model.TokenManager,
	contextManager model.ContextManager,
	webhookSecret string,
	logger *logger.Logger,
) *Router {
	return &Router{
		bookingService: bookingService,
		scheduler:      scheduler,
		ledger:         ledger,
		provisioner:    provisioner,
		connector:      connector,
		users:          users,
		tokens:         tokens,
		contextManager: contextManager,
		webhookSecret:  webhookSecret,
		logger:         logger,
	}
}

// Register builds the gin engine with all routes and middleware. Everything
// under /v1 is authenticated except the payment webhook, which carries its own
// shared-secret check.
func (r *Router) Register() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.tokens, r.contextManager, r.logger)

	engine.Use(logging.Handle())

	bookingHandler := handler.NewBooking(r.bookingService, r.scheduler, r.contextManager, r.logger)
	packageHandler := handler.NewPackage(r.ledger, r.contextManager, r.webhookSecret, r.logger)
	calendarHandler := handler.NewCalendar(r.provisioner, r.connector, r.contextManager, r.logger)
	authHandler := handler.NewAuth(r.users, r.tokens, r.logger)

	v1 := engine.Group("/v1")
	v1.POST("/auth/register", authHandler.Register)
	v1.POST("/webhooks/payment", packageHandler.PaymentWebhook)

	authed := v1.Group("", authenticate.Handle())
	{
		trainerOnly := authenticate.RequireRole(model.RoleTrainer)

		authed.GET("/calendar/auth-url", trainerOnly, calendarHandler.AuthURL)
		authed.POST("/calendar/connect", trainerOnly, calendarHandler.Connect)
		authed.POST("/calendar/provision", trainerOnly, calendarHandler.Provision)
		authed.POST("/sessions", trainerOnly, bookingHandler.CreateSession)
		authed.POST("/sessions/recurring", trainerOnly, bookingHandler.CreateRecurring)
		authed.PATCH("/sessions/:id", bookingHandler.PatchSession)
		authed.DELETE("/sessions/:id", bookingHandler.CancelSession)
		authed.GET("/clients/:id/packages", packageHandler.ListForClient)
		authed.POST("/packages/grant", trainerOnly, packageHandler.Grant)
	}

	return engine
}
