package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/feed"
	apphttp "fintrack/internal/http"
	"fintrack/internal/identity"
	applog "fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	cacheSweep      = time.Minute
	sessionPurge    = time.Hour
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg)
	cfg = cli.LoadAndValidateConfig(logger)

	builtins, err := config.LoadBuiltins(cfg.CategoriesFile)
	if err != nil {
		logger.Error("Failed to load categories", applog.FieldError, err.Error(), "path", cfg.CategoriesFile)
		os.Exit(1)
	}

	m := metrics.New()
	res := cli.InitBackend(context.Background(), logger, cfg)

	hub := feed.NewHub(res.Store, m, logger)

	summaries := cache.NewLRUCache[core.Summary](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(summaries)
	caches.StartCleanup(cacheSweep)

	analytics := services.NewAnalyticsService(res.Store, summaries, m, logger)
	hub.OnChange(analytics.Invalidate)

	var publisher services.Publisher
	if res.Broker != nil {
		publisher = res.Broker
	}
	notifier := services.NewNotifier(hub, publisher, m, logger, analytics.Invalidate)

	profiles := services.NewProfileService(res.Store, res.Blobs, builtins, logger)
	transactions := services.NewTransactionService(res.Store, profiles, notifier, m, logger)

	auth := identity.NewPasswordAuthenticator(res.Store, identity.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL), logger)
	janitor := services.NewSessionJanitor(auth, sessionPurge, logger)

	srv := apphttp.NewServer(cfg.Addr(), apphttp.Deps{
		Auth:               auth,
		Transactions:       transactions,
		Profiles:           profiles,
		Analytics:          analytics,
		Feed:               hub,
		Metrics:            m,
		Logger:             logger,
		BlobHandler:        res.BlobHandler,
		Ready:              res.Store.Ping,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	parent, stop := context.WithCancel(context.Background())
	defer stop()

	ctx, done := cli.GracefulShutdown(parent, logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
		if err := janitor.Stop(ctx); err != nil {
			logger.Warn("Session janitor stop failed", applog.FieldError, err.Error())
		}
		hub.Close()
		caches.Stop()
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", applog.FieldError, err.Error())
			}
		}
	})

	if err := janitor.Start(ctx); err != nil {
		logger.Error("Failed to start session janitor", applog.FieldError, err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting fintrack server",
			applog.FieldOperation, applog.OpStartup,
			"addr", srv.Addr,
			"backend", cfg.DataBackend,
			"blobs", cfg.BlobBackend,
			"amqp", res.Broker != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if res.Broker != nil {
		g.Go(func() error {
			return consumeChanges(gctx, res.Broker, hub, logger)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", applog.FieldError, err.Error())
		stop()
		cli.WaitForShutdown(ctx, done)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// consumeChanges refreshes local subscribers for every change announced on
// the broker, including the ones this instance published.
func consumeChanges(ctx context.Context, broker *amqp.Client, hub *feed.Hub, logger *applog.Logger) error {
	logger = logger.WithComponent(applog.ComponentAMQP)
	err := broker.ConsumeTransactionsChanged(ctx, func(ctx context.Context, msg *amqp.TransactionsChangedMessage) error {
		if err := hub.Notify(ctx, msg.UserID); err != nil {
			logger.WarnContext(ctx, "Failed to refresh subscribers",
				applog.FieldUserID, msg.UserID,
				applog.FieldError, err.Error(),
				"origin", msg.Origin,
			)
			return err
		}
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
