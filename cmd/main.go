package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpctx "github.com/trainhub/trainhub-server/internal/api/http/context"
	"github.com/trainhub/trainhub-server/internal/api/http/router"
	httpServer "github.com/trainhub/trainhub-server/internal/api/http/server"
	"github.com/trainhub/trainhub-server/internal/calendar"
	"github.com/trainhub/trainhub-server/internal/config"
	"github.com/trainhub/trainhub-server/internal/logger"
	"github.com/trainhub/trainhub-server/internal/model"
	"github.com/trainhub/trainhub-server/internal/notify"
	"github.com/trainhub/trainhub-server/internal/repository/postgres"
	"github.com/trainhub/trainhub-server/internal/server"
	"github.com/trainhub/trainhub-server/internal/service"
	"github.com/trainhub/trainhub-server/internal/token"
	"github.com/trainhub/trainhub-server/internal/vault"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	location, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		logger.Fatal("failed to load booking timezone", "timezone", cfg.Booking.Timezone, "error", err)
	}

	db, err := postgres.NewConection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	packageRepo := postgres.NewPackageRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	tokenManager := token.NewJWT(cfg.JWT.Secret)
	ctxMgr := httpctx.NewManager()

	oauthConf := vault.NewOAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	credentialVault := vault.New(userRepo, oauthConf, logger)

	calendarAPI := calendar.NewGoogleAPI()
	calendarSync := calendar.NewAdapter(calendarAPI, credentialVault, logger, cfg.Booking.CalendarCallTimeout)

	ledger := service.NewLedger(packageRepo, logger)
	scheduler := service.NewScheduler(sessionRepo, logger, cfg.Booking.DefaultSessionMinutes)
	notifier := notify.NewLogNotifier(logger)
	booking := service.NewBooking(ledger, scheduler, calendarSync, userRepo, notifier, logger, location)
	users := service.NewUsers(userRepo, ledger, logger, cfg.Booking.SignupGrantSessions)

	r := router.New(booking, scheduler, ledger, booking, credentialVault, users, tokenManager, ctxMgr, cfg.Booking.PaymentWebhookSecret, logger)
	apiServer := httpServer.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		err := s.Start(sl)
		if err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(apiServer)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", apiServer.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
