package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Domenick1991/cohortseat/config"
	"github.com/Domenick1991/cohortseat/internal/cache"
	"github.com/Domenick1991/cohortseat/internal/email"
	"github.com/Domenick1991/cohortseat/internal/kafka"
	"github.com/Domenick1991/cohortseat/internal/notify"
	"github.com/Domenick1991/cohortseat/internal/provider/bnpla"
	"github.com/Domenick1991/cohortseat/internal/provider/bnplb"
	"github.com/Domenick1991/cohortseat/internal/provider/card"
	"github.com/Domenick1991/cohortseat/internal/repository"
	"github.com/Domenick1991/cohortseat/internal/repository/memory"
	"github.com/Domenick1991/cohortseat/internal/service/cohorts"
	"github.com/Domenick1991/cohortseat/internal/service/ledger"
	"github.com/Domenick1991/cohortseat/internal/service/payment"
	"github.com/Domenick1991/cohortseat/internal/service/promo"
	"github.com/Domenick1991/cohortseat/internal/service/registration"
	"github.com/Domenick1991/cohortseat/internal/service/waitlist"
	"github.com/Domenick1991/cohortseat/internal/sweeper"
	"github.com/Domenick1991/cohortseat/internal/webhook"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App holds every service built from one configuration.
type App struct {
	Config        *config.Config
	Store         repository.Store
	Cohorts       *cohorts.CohortService
	Registrations *registration.RegistrationService
	Waitlist      *waitlist.WaitlistService
	Promos        *promo.Evaluator
	Payments      *payment.PaymentService
	Sweeper       *sweeper.Sweeper
	Processor     *webhook.Processor
	// Producer is nil when no Kafka brokers are configured.
	Producer *kafka.Producer
	Pool     *pgxpool.Pool

	closers []func()
}

// New connects the configured infrastructure and wires the services.
// Redis and Kafka are optional: without them the cohort cache and webhook
// dedupe are skipped and notifications go straight to the email sender.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	if cfg.Database.InMemory {
		log.Printf("WARNING: using the in-memory store, data is lost on exit")
		app.Store = memory.New()
	} else {
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("parse postgres config: %w", err)
		}
		if cfg.Database.MaxConns > 0 {
			poolCfg.MaxConns = cfg.Database.MaxConns
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		app.Pool = pool
		app.closers = append(app.closers, pool.Close)
		app.Store = repository.NewStore(pool)
	}

	var (
		cohortCache cohorts.Cache
		dedupe      webhook.Deduper
	)
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Cache.CohortsTTLSeconds)*time.Second)
		app.closers = append(app.closers, func() { _ = redisCache.Close() })
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("WARNING: redis unavailable, continuing without cache: %v", err)
		}
		cohortCache = redisCache
		dedupe = redisCache
	}

	var notifier notify.Notifier = email.NewSender()
	if len(cfg.Kafka.Brokers) > 0 {
		app.Producer = kafka.NewProducer(cfg.Kafka.Brokers)
		app.closers = append(app.closers, func() { _ = app.Producer.Close() })
		notifier = kafka.NewNotificationPublisher(app.Producer, cfg.Kafka.NotificationsTopic)
	}

	seats := ledger.New()
	app.Cohorts = cohorts.NewCohortService(app.Store, cohortCache)
	app.Waitlist = waitlist.NewWaitlistService(app.Store, notifier, cfg.Registration.WaitlistWindow())
	app.Registrations = registration.NewRegistrationService(app.Store, seats, app.Waitlist, notifier, cfg.Registration.HoldTTL())
	app.Promos = promo.NewEvaluator(app.Store.Cohorts(), app.Store.Promos())
	app.Payments = payment.NewPaymentService(app.Store, app.Registrations, app.Promos, notifier, Adapters(cfg.Providers))
	app.Sweeper = sweeper.New(
		app.Registrations,
		app.Waitlist,
		time.Duration(cfg.Worker.HoldSweepSeconds)*time.Second,
		time.Duration(cfg.Worker.WaitlistSweepMinutes)*time.Minute,
	)

	var opts []webhook.ProcessorOption
	if dedupe != nil {
		opts = append(opts, webhook.WithDeduper(dedupe, time.Duration(cfg.Cache.WebhookDedupeHours)*time.Hour))
	}
	app.Processor = webhook.NewProcessor(app.Payments, opts...)

	return app, nil
}

// Adapters builds an adapter for every provider with a base URL.
func Adapters(cfg config.ProvidersConfig) []payment.Adapter {
	var adapters []payment.Adapter
	if cfg.Card.BaseURL != "" {
		adapters = append(adapters, card.New(cfg.Card))
	}
	if cfg.BNPLA.BaseURL != "" {
		adapters = append(adapters, bnpla.New(cfg.BNPLA))
	}
	if cfg.BNPLB.BaseURL != "" {
		adapters = append(adapters, bnplb.New(cfg.BNPLB))
	}
	return adapters
}

// WebhookQueue returns the Kafka-backed queue when a producer exists and an
// in-process queue otherwise. The returned func drains the local queue.
func (a *App) WebhookQueue() (webhook.Queue, func()) {
	if a.Producer != nil {
		return webhook.NewKafkaQueue(a.Producer, a.Config.Kafka.PaymentEventsTopic), func() {}
	}
	q := webhook.NewLocalQueue(a.Processor, a.Config.Worker.LocalWebhookWorkers, 256)
	return q, q.Close
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
