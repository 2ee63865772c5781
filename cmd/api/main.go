package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/shopnearby-backend/api/routes"
	"github.com/angelmondragon/shopnearby-backend/internal/cart"
	"github.com/angelmondragon/shopnearby-backend/internal/catalog"
	"github.com/angelmondragon/shopnearby-backend/internal/chat"
	"github.com/angelmondragon/shopnearby-backend/internal/checkout"
	"github.com/angelmondragon/shopnearby-backend/internal/coupons"
	"github.com/angelmondragon/shopnearby-backend/internal/cron"
	"github.com/angelmondragon/shopnearby-backend/internal/orders"
	"github.com/angelmondragon/shopnearby-backend/internal/payments"
	stripewebhook "github.com/angelmondragon/shopnearby-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/shopnearby-backend/pkg/config"
	"github.com/angelmondragon/shopnearby-backend/pkg/db"
	"github.com/angelmondragon/shopnearby-backend/pkg/instance"
	"github.com/angelmondragon/shopnearby-backend/pkg/logger"
	"github.com/angelmondragon/shopnearby-backend/pkg/metrics"
	"github.com/angelmondragon/shopnearby-backend/pkg/migrate"
	"github.com/angelmondragon/shopnearby-backend/pkg/redis"
	pkgstripe "github.com/angelmondragon/shopnearby-backend/pkg/stripe"
)

const (
	shutdownTimeout   = 15 * time.Second
	webhookGuardTTL   = 72 * time.Hour
	webhookGuardScope = "stripe-webhook"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storefront := metrics.NewStorefront(reg)
	jobMetrics := metrics.NewJobMetrics(reg)

	catalogSvc, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}
	couponSvc, err := coupons.NewService(coupons.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}
	ordersSvc, err := orders.NewService(dbClient, orders.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}

	pricing, err := cart.PricingFromConfig(cfg.Cart)
	if err != nil {
		return err
	}
	var persister cart.Persister = cart.NewMemoryPersister()
	if cfg.Cart.UsesRedis() {
		persister, err = cart.NewRedisPersister(redisClient, cfg.Cart.PersistTTL)
		if err != nil {
			return err
		}
	}
	carts, err := cart.NewRegistry(cart.StoreParams{
		Pricing:        pricing,
		Coupons:        couponSvc,
		Persister:      persister,
		Logger:         logg,
		Metrics:        storefront,
		PersistTimeout: cfg.Cart.PersistTimeout,
	})
	if err != nil {
		return err
	}

	gateways := []checkout.Gateway{payments.NewCashOnDeliveryGateway()}
	var stripeClient *pkgstripe.Client
	if cfg.Stripe.Enabled() {
		stripeClient, err = pkgstripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return err
		}
		cardGateway, err := payments.NewStripeGateway(pkgstripe.NewPaymentIntentAPI(stripeClient))
		if err != nil {
			return err
		}
		gateways = append(gateways, cardGateway)
	} else {
		logg.Warn(ctx, "stripe disabled, card payments unavailable")
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Carts:    carts,
		Orders:   ordersSvc,
		Coupons:  couponSvc,
		Gateways: gateways,
		Logger:   logg,
		Metrics:  storefront,
	})
	if err != nil {
		return err
	}

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{Checkout: checkoutSvc, Logger: logg})
	if err != nil {
		return err
	}
	var guardStore redis.IdempotencyStore = stripewebhook.NewMemoryStore()
	if redisClient != nil {
		guardStore = redisClient
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(guardStore, webhookGuardTTL, webhookGuardScope)
	if err != nil {
		return err
	}

	hubParams := chat.HubParams{
		AutoReply:    cfg.Chat.AutoReply,
		HistoryLimit: cfg.Chat.HistoryLimit,
		Logger:       logg,
		Metrics:      storefront,
	}
	var relay *chat.RedisRelay
	if cfg.Chat.RedisRelay && redisClient != nil {
		relay, err = chat.NewRedisRelay(redisClient, cfg.Chat.Channel, logg)
		if err != nil {
			return err
		}
		hubParams.Relay = relay
	}
	hub, err := chat.NewHub(hubParams)
	if err != nil {
		return err
	}
	if relay != nil {
		go func() {
			if err := relay.Run(ctx, hub); err != nil {
				logg.Error(ctx, "chat relay stopped", err)
			}
		}()
	}

	jobs, err := cron.NewService(cron.ServiceParams{
		Logger: logg,
		Registry: cron.NewRegistry(
			cart.SweepJob{Registry: carts, Idle: cfg.Cart.SessionIdleTTL},
			checkout.ExpiryJob{Service: checkoutSvc, PendingTTL: cfg.Checkout.PendingTTL, Retain: cfg.Checkout.Retain},
			chat.SweepJob{Hub: hub, Idle: cfg.Chat.IdleTTL},
		),
		Metrics:  jobMetrics,
		Interval: cfg.Jobs.Interval,
	})
	if err != nil {
		return err
	}
	go func() {
		if err := jobs.Run(ctx); err != nil {
			logg.Error(ctx, "background jobs stopped", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"instance":     instance.ID(),
		"cart_storage": cfg.Cart.Storage,
		"stripe":       stripeClient != nil,
	})
	logg.Info(logCtx, "starting api server")

	deps := routes.Deps{
		Config:             cfg,
		Logger:             logg,
		DB:                 dbClient,
		Redis:              redisClient,
		Gatherer:           reg,
		Catalog:            catalogSvc,
		Carts:              carts,
		Checkout:           checkoutSvc,
		Orders:             ordersSvc,
		Chat:               hub,
		StripeClient:       stripeClient,
		StripeWebhook:      webhookSvc,
		StripeWebhookGuard: webhookGuard,
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(logCtx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
