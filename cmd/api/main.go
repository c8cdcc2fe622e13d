package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cardlink/backend/internal/cache"
	"cardlink/backend/internal/config"
	"cardlink/backend/internal/domain/admin"
	"cardlink/backend/internal/domain/analytics"
	"cardlink/backend/internal/domain/billing"
	"cardlink/backend/internal/domain/cardholder"
	"cardlink/backend/internal/domain/session"
	"cardlink/backend/internal/firebase"
	"cardlink/backend/internal/handlers"
	apihttp "cardlink/backend/internal/http"
	"cardlink/backend/internal/logging"
	"cardlink/backend/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	clients, err := firebase.NewClients(ctx, cfg)
	if err != nil {
		return err
	}
	defer clients.Close()

	m := metrics.New()

	// Repositories
	adminRepo := admin.NewRepo(clients.Firestore)
	cardholderRepo := cardholder.NewRepo(clients.Firestore)
	analyticsRepo := analytics.NewRepo(clients.Firestore)

	// Services
	adminSvc := admin.NewService(adminRepo, clients.Auth, logger.Named("admin"))
	cardholderSvc := cardholder.NewService(cardholderRepo, logger.Named("cardholder"))
	analyticsSvc := analytics.NewService(analyticsRepo, logger.Named("analytics"))
	analyticsSvc.SetMetrics(m)
	cardholderSvc.SetAnalyticsPurger(analyticsSvc)

	secret := cfg.TokenSecret
	if secret == "" {
		if cfg.IsProduction() {
			return errors.New("CARDHOLDER_TOKEN_SECRET is required in production")
		}
		secret = uuid.NewString() + uuid.NewString()
		logger.Warn("CARDHOLDER_TOKEN_SECRET not set, using an ephemeral secret")
	}
	issuer, err := session.NewIssuer(secret, cfg.TokenIssuer, cfg.TokenTTL)
	if err != nil {
		return err
	}
	sessionSvc := session.NewService(cardholderSvc, issuer, logger.Named("session"))

	// Redis (optional - only for view de-duplication)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, view de-duplication disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			analyticsSvc.SetDeduper(cache.NewDeduper(rdb), cfg.ViewDedupeWindow)
			logger.Info("view de-duplication enabled", zap.Duration("window", cfg.ViewDedupeWindow))
		}
	}

	// Stripe (optional - only if configured)
	var billingSvc *billing.Service
	if cfg.BillingEnabled() {
		billingSvc = billing.NewService(
			billing.NewRepo(clients.Firestore),
			billing.NewStripeGateway(cfg.StripeSecretKey),
			billing.Config{
				SecretKey:            cfg.StripeSecretKey,
				WebhookSecret:        cfg.StripeWebhookSecret,
				PriceProMonthly:      cfg.StripePriceProMonthly,
				PriceProYearly:       cfg.StripePriceProYearly,
				PriceBusinessMonthly: cfg.StripePriceBusinessMonthly,
				PriceBusinessYearly:  cfg.StripePriceBusinessYearly,
			},
			logger.Named("billing"),
		)
		adminSvc.SetLimitChecker(billingSvc)
		cardholderSvc.SetLimitChecker(billingSvc)
		logger.Info("billing enabled")
	} else {
		logger.Info("STRIPE_SECRET_KEY not set, billing and plan limits disabled")
	}

	uploads := handlers.NewUploads(cfg,
		handlers.IAMSigner(clients.IAM, cfg.SignedURLServiceAccountEmail),
		logger.Named("uploads"))

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Cfg:           cfg,
		Log:           logger,
		Metrics:       m,
		AuthClient:    clients.Auth,
		AdminSvc:      adminSvc,
		CardholderSvc: cardholderSvc,
		SessionSvc:    sessionSvc,
		AnalyticsSvc:  analyticsSvc,
		BillingSvc:    billingSvc,
		Uploads:       uploads,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("port", cfg.Port), zap.String("project", cfg.ProjectID))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errCh:
		return err
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down")
	return srv.Shutdown(ctxShutdown)
}
