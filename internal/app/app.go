package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirinyoku/seatline/internal/config"
	"github.com/kirinyoku/seatline/internal/postgres"
	"github.com/kirinyoku/seatline/internal/queue"
	"github.com/kirinyoku/seatline/internal/redis"
	"github.com/kirinyoku/seatline/internal/repository"
	"github.com/kirinyoku/seatline/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/seatline/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/seatline/internal/repository/redis"
	"github.com/kirinyoku/seatline/internal/service"
	"github.com/kirinyoku/seatline/internal/service/catalog"
	"github.com/kirinyoku/seatline/internal/service/inventory"
	"github.com/kirinyoku/seatline/internal/service/schedule"
	"github.com/kirinyoku/seatline/internal/service/ticket"
	httpgin "github.com/kirinyoku/seatline/internal/transport/http/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const claimsRateScope = "claims"

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	closers    []func()
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	var checks []func(context.Context) error

	store, err := a.openStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	var rdb *goredis.Client
	if cfg.Redis.Enabled() {
		rdb, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		checks = append(checks, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	} else {
		logger.Warn("REDIS_ADDR not set, running without cache, rate limit and idempotency keys")
	}

	publisher, err := queue.NewPublisher(cfg.RabbitMQ.URL, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize rabbitmq: %w", err)
	}
	if publisher != nil {
		a.closers = append(a.closers, func() { _ = publisher.Close() })
	}

	// All redis components are nil when rdb is nil.
	deps := service.Deps{
		Cache:     redisrepo.New(rdb),
		PubSub:    redisrepo.NewSchedulesPubSub(rdb),
		Limiter:   redisrepo.NewSlidingWindowLimiter(rdb, claimsRateScope, cfg.RateLimit.Claims, cfg.RateLimit.Window),
		Publisher: publisher,
		Logger:    logger,
	}
	idem := redisrepo.NewIdempotencyStore(rdb, cfg.Cache.IdempotencyTTL)

	services := service.NewServices(store, deps, service.Config{
		Catalog:   catalog.Config{TTL: cfg.Cache.CatalogTTL},
		Schedule:  schedule.Config{DetailTTL: cfg.Cache.DetailTTL},
		Inventory: inventory.Config{AvailabilityTTL: cfg.Cache.AvailabilityTTL},
		Ticket:    ticket.Config{MaxSeatsPerClaim: cfg.Booking.MaxSeatsPerClaim},
	})

	if pg, ok := store.(*postgresrepo.Store); ok {
		checks = append(checks, pg.Ping)
	}

	router := httpgin.NewRouter(services, idem, logger, httpgin.RouterConfig{
		JWTSecret: cfg.Auth.JWTSecret,
		Ready: func(ctx context.Context) error {
			for _, check := range checks {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, trusting the X-Holder-ID header and leaving admin routes open")
	}

	a.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	if a.cfg.Storage.Driver == config.DriverMemory {
		a.logger.Warn("using in-memory storage, data is lost on exit")
		return memory.NewStore(), nil
	}

	pool, err := postgres.New(ctx, a.cfg.Postgres.DSN(), a.cfg.Postgres.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	if err := postgres.Migrate(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}

	return postgresrepo.NewStore(pool, postgresrepo.WithMaxRetries(a.cfg.Storage.TxRetries)), nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

// close releases resources in reverse order of acquisition.
func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
