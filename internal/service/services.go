package service

import (
	"log/slog"
	"time"

	"github.com/kirinyoku/seatline/internal/queue"
	"github.com/kirinyoku/seatline/internal/repository"
	redis "github.com/kirinyoku/seatline/internal/repository/redis"
	"github.com/kirinyoku/seatline/internal/service/catalog"
	"github.com/kirinyoku/seatline/internal/service/inventory"
	"github.com/kirinyoku/seatline/internal/service/payment"
	"github.com/kirinyoku/seatline/internal/service/schedule"
	"github.com/kirinyoku/seatline/internal/service/ticket"
)

type Services struct {
	Catalog   *catalog.Service
	Schedule  *schedule.Service
	Inventory *inventory.Service
	Ticket    *ticket.Service
	Payment   *payment.Service
}

type Config struct {
	Catalog   catalog.Config
	Schedule  schedule.Config
	Inventory inventory.Config
	Ticket    ticket.Config
	Payment   payment.Config
	// Now overrides the clock of every service when set.
	Now func() time.Time
}

// Deps are the optional collaborators of the services. Any of them may be
// nil; the services then run without caching, rate limiting, change
// notifications or broker events.
type Deps struct {
	Cache     *redis.Cache
	PubSub    *redis.SchedulesPubSub
	Limiter   *redis.SlidingWindowLimiter
	Publisher *queue.Publisher
	Logger    *slog.Logger
}

func NewServices(store repository.Store, deps Deps, cfg Config) *Services {
	if cfg.Now != nil {
		cfg.Schedule.Now = cfg.Now
		cfg.Inventory.Now = cfg.Now
		cfg.Ticket.Now = cfg.Now
		cfg.Payment.Now = cfg.Now
	}

	cat := catalog.New(store, deps.Cache, cfg.Catalog)
	inv := inventory.New(store, cat, deps.Cache, cfg.Inventory)

	return &Services{
		Catalog:   cat,
		Schedule:  schedule.New(store, cat, deps.Cache, deps.PubSub, cfg.Schedule),
		Inventory: inv,
		Ticket:    ticket.New(store, inv, deps.Limiter, deps.PubSub, deps.Publisher, deps.Logger, cfg.Ticket),
		Payment:   payment.New(store, deps.Publisher, cfg.Payment),
	}
}
