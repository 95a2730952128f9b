// Package server wires the photorestore server: PostgreSQL, Redis, RabbitMQ,
// S3, the services on top of them and the gRPC and HTTP endpoints.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/logging"
	"github.com/dmitrijs2005/photorestore/internal/server/config"
	"github.com/dmitrijs2005/photorestore/internal/server/events"
	"github.com/dmitrijs2005/photorestore/internal/server/httpapi"
	"github.com/dmitrijs2005/photorestore/internal/server/metrics"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/photorestore/internal/server/services"
	"github.com/dmitrijs2005/photorestore/internal/server/trials"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/photorestore/internal/server/grpc"
)

const tokenCleanupInterval = time.Hour

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	rdb      *redis.Client
	events   events.Publisher
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	userService    *services.UserService
	profileService *services.ProfileService
	paymentService *services.PaymentService
	photoService   *services.PhotoService
}

// openDB connects to PostgreSQL, waiting for it to come up.
func openDB(ctx context.Context, dsn string, logger logging.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			logger.Warn(ctx, "database not ready", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger := logging.New(os.Stdout, "json", c.LogLevel)

	db, err := openDB(ctx, c.DatabaseDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db, registry: prometheus.NewRegistry()}
	app.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.metrics = metrics.New(app.registry)

	var trialStore trials.Store
	if c.RedisAddr != "" {
		app.rdb = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		trialStore = trials.NewRedisStore(app.rdb, c.TrialTTL)
	} else {
		logger.Warn(ctx, "REDIS_ADDR not set, trial claims kept in memory")
		trialStore = trials.NewMemoryStore(c.TrialTTL)
	}

	app.events = events.Nop{}
	if c.AMQPURL != "" {
		pub, err := events.NewAMQPPublisher(c.AMQPURL, c.EventsExchange)
		if err != nil {
			logger.Warn(ctx, "event broker unavailable, events disabled", "error", err)
		} else {
			app.events = pub
		}
	}

	app.userService = services.NewUserService(db, rm, c, app.events, app.metrics, logger)
	app.profileService = services.NewProfileService(db, rm, c, trialStore, app.events, app.metrics, logger)
	app.paymentService = services.NewPaymentService(db, rm, c, app.profileService, app.events, app.metrics, logger)
	app.photoService = services.NewPhotoService(c, logger)

	return app, nil
}

// purgeTokens periodically removes expired refresh tokens until ctx ends.
func (app *App) purgeTokens(ctx context.Context) error {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := app.userService.PurgeExpiredTokens(ctx)
			if err != nil {
				app.logger.Warn(ctx, "refresh token cleanup failed", "error", err)
				continue
			}
			app.logger.Debug(ctx, "refresh tokens purged", "count", n)
		}
	}
}

func (app *App) httpOptions() httpapi.Options {
	opts := httpapi.Options{
		Address:       app.config.EndpointAddrHTTP,
		WebhookSecret: app.config.WebhookSecret,
		MockCheckout:  app.config.MockCheckout,
		PerMin:        app.config.RateLimitPerMinute,
		Gatherer:      app.registry,
		Metrics:       app.metrics,
	}
	if app.rdb != nil {
		opts.Limiter = app.rdb
	}
	return opts
}

// Run serves gRPC and HTTP until ctx is canceled or one of them fails, then
// releases every connection.
func (app *App) Run(ctx context.Context) error {

	app.logger.Info(ctx, "Starting app...")
	defer app.close(ctx)

	grpcServer := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.metrics, app.config.SecretKey,
		app.userService, app.profileService, app.paymentService, app.photoService)
	httpServer := httpapi.NewServer(app.httpOptions(), app.logger, app.profileService, app.paymentService)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return grpcServer.Run(ctx) })
	g.Go(func() error { return httpServer.Run(ctx) })
	g.Go(func() error { return app.purgeTokens(ctx) })

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped with error", "error", err)
	}
	return err
}

func (app *App) close(ctx context.Context) {
	if err := app.events.Close(); err != nil {
		app.logger.Warn(ctx, "closing event publisher", "error", err)
	}
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Warn(ctx, "closing redis", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
