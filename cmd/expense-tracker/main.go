package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/Flashmaxi/expense-tracker/internal/auth"
	"github.com/Flashmaxi/expense-tracker/internal/bitcoin"
	"github.com/Flashmaxi/expense-tracker/internal/config"
	"github.com/Flashmaxi/expense-tracker/internal/currency"
	database "github.com/Flashmaxi/expense-tracker/internal/db"
	emailService "github.com/Flashmaxi/expense-tracker/internal/email"
	"github.com/Flashmaxi/expense-tracker/internal/finance/application"
	"github.com/Flashmaxi/expense-tracker/internal/finance/infrastructure"
	"github.com/Flashmaxi/expense-tracker/internal/finance/interfaces"
	"github.com/Flashmaxi/expense-tracker/internal/marketdata"
	"github.com/Flashmaxi/expense-tracker/internal/middleware"
	"github.com/Flashmaxi/expense-tracker/internal/user"
)

const sessionCleanupInterval = time.Minute

type refresher interface {
	Refresh(ctx context.Context) error
}

// StartSchedulers keeps the price and exchange rate caches warm.
func StartSchedulers(cfg *config.Config, prices, rates refresher) (*cron.Cron, error) {
	c := cron.New()
	jobs := []struct {
		name     string
		schedule string
		target   refresher
	}{
		{name: "bitcoin prices", schedule: cfg.Bitcoin.RefreshSchedule, target: prices},
		{name: "exchange rates", schedule: cfg.Rates.RefreshSchedule, target: rates},
	}
	for _, job := range jobs {
		job := job
		_, err := c.AddFunc(job.schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := job.target.Refresh(ctx); err != nil {
				log.WithError(err).Warnf("Error refreshing %s", job.name)
				return
			}
			log.Debugf("Refreshed %s", job.name)
		})
		if err != nil {
			return nil, err
		}
	}
	c.Start()
	return c, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Missing configuration, update to start server: %v", err)
	}
	config.ConfigureLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbService, err := database.NewDBService(cfg.Database)
	if err != nil {
		log.Fatalf("Could not initialize database: %v", err)
	}
	if err := dbService.Migrate(ctx); err != nil {
		dbService.Close()
		log.Fatalf("Could not apply migrations: %v", err)
	}

	registry := middleware.NewRegistry()
	httpMetrics := middleware.NewHTTPMetrics(registry)

	rateCache := currency.NewRateCache(
		marketdata.NewExchangeRateClient(cfg.Rates.APIURL, cfg.Bitcoin.Timeout),
		cfg.Rates.TTL,
		nil,
	)
	currencyService := currency.NewService(rateCache)
	priceCache := bitcoin.NewPriceCache(
		marketdata.NewCoinGeckoClient(cfg.Bitcoin.APIURL, cfg.Bitcoin.APIKey, cfg.Bitcoin.Timeout),
		rateCache,
		bitcoin.WithDirectCurrencies(cfg.Bitcoin.DirectCurrencies...),
		bitcoin.WithRegisterer(registry),
	)

	userRepo := user.NewUserRepository(dbService.DB)
	userService := user.NewUserService(userRepo, currencyService)

	categoryRepo := infrastructure.NewCategoryRepository(dbService.DB)
	categoryService := application.NewCategoryService(categoryRepo)
	transactionRepo := infrastructure.NewTransactionRepository(dbService.DB)
	transactionService := application.NewTransactionService(transactionRepo, categoryService, priceCache, userService)

	owner, created, err := userService.EnsureOwner(ctx, cfg.Owner)
	if err != nil {
		log.Fatalf("Could not bootstrap owner account: %v", err)
	}
	if created {
		if err := categoryService.CreateDefaultCategories(ctx, owner.ID); err != nil {
			log.WithError(err).Warn("Could not seed default categories for owner")
		}
		log.WithField("email", owner.Email).Info("Created owner account")
	}

	mailer, err := emailService.NewEmailService(cfg.SMTP)
	if err != nil {
		log.Fatalf("Could not initialize email service: %v", err)
	}
	jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSecret)
	if err != nil {
		log.Fatalf("Could not initialize JWT manager: %v", err)
	}
	sessionManager := auth.NewSessionManager()
	sessionManager.StartSessionTokenCleanup(ctx, sessionCleanupInterval)

	authService := auth.NewAuthService(
		userService,
		categoryService,
		currencyService,
		sessionManager,
		jwtManager,
		mailer,
		&auth.Authenticator{},
		auth.OptionsFromConfig(cfg),
	)

	server := &Server{
		health:             dbService,
		authHandler:        auth.NewHandler(authService, respondJSON, respondError),
		authService:        authService,
		userHandler:        user.NewHandler(userService, currencyService, respondJSON, respondError),
		categoryHandler:    interfaces.NewCategoryHandler(categoryService, respondJSON, respondError),
		transactionHandler: interfaces.NewTransactionHandler(transactionService, respondJSON, respondError),
		bitcoinHandler:     bitcoin.NewHandler(priceCache, userService, respondJSON, respondError),
		metricsHandler:     middleware.MetricsHandler(registry),
	}
	server.RegisterRoutes()

	scheduler, err := StartSchedulers(cfg, priceCache, rateCache)
	if err != nil {
		log.Fatalf("Scheduler didn't start, stopping the app: %v", err)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Handler(cfg.Server.FrontendURL, httpMetrics),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	<-scheduler.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}

	mailer.Close()
	if err := dbService.Close(); err != nil {
		log.WithError(err).Error("Could not close database")
	}
	log.Info("Server stopped")
}
