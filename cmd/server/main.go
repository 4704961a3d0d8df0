package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"feedlink/internal/audit"
	donationhandler "feedlink/internal/donation/handler"
	donationmetrics "feedlink/internal/donation/metrics"
	donationservice "feedlink/internal/donation/service"
	donationstore "feedlink/internal/donation/store"
	doneehandler "feedlink/internal/donee/handler"
	doneeservice "feedlink/internal/donee/service"
	doneestore "feedlink/internal/donee/store"
	donormodels "feedlink/internal/donor/models"
	donorstore "feedlink/internal/donor/store"
	httpapi "feedlink/internal/http"
	"feedlink/internal/jwttoken"
	"feedlink/internal/matching"
	"feedlink/internal/notify"
	"feedlink/internal/platform/config"
	"feedlink/internal/platform/httpserver"
	"feedlink/internal/platform/logger"
	"feedlink/internal/platform/metrics"
	"feedlink/internal/platform/postgres"
	"feedlink/internal/platform/redis"
	"feedlink/internal/ratelimit"
	"feedlink/internal/stats"
	statshandler "feedlink/internal/stats/handler"
	"feedlink/pkg/platform/tx"
)

const (
	auditTopicPartitions        = 3
	auditTopicReplicationFactor = 1
	auditBreakerThreshold       = 5
	auditBreakerCooldown        = 30 * time.Second
)

type donorDirectory interface {
	Upsert(ctx context.Context, d *donormodels.Donor) error
	FindByID(ctx context.Context, id uuid.UUID) (*donormodels.Donor, error)
	Count(ctx context.Context) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// stores bundles the persistence layer for either backend.
type stores struct {
	donations donationservice.Store
	donees    doneeservice.Store
	donors    donorDirectory
	runner    tx.Runner
	db        *sql.DB
}

func main() {
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Error("feedlink stopped with error", "error", err)
		os.Exit(1)
	}
}

// run wires dependencies and serves until ctx is cancelled. Business logic
// lives in the internal service packages.
func run(ctx context.Context, log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}

	healthChecks := map[string]httpapi.HealthCheck{}
	if st.db != nil {
		healthChecks["postgres"] = st.db.PingContext
	}

	rc, err := openRedis(ctx, cfg, healthChecks)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
	}
	cache := newStatsCache(cfg, rc, log)

	sink, closeSink, err := openAuditSink(ctx, cfg, log, healthChecks)
	if err != nil {
		return err
	}
	defer closeSink()

	publisher := audit.NewPublisher(sink,
		audit.WithLogger(log),
		audit.WithMetrics(audit.NewMetrics()),
		audit.WithCircuitBreaker(audit.NewCircuitBreaker(auditBreakerThreshold, auditBreakerCooldown)),
	)

	notifier, err := newNotifier(cfg, log)
	if err != nil {
		return err
	}

	donees := doneeservice.New(st.donees,
		doneeservice.WithLogger(log),
		doneeservice.WithNotifier(notifier),
		doneeservice.WithAudit(publisher),
		doneeservice.WithDefaultRadius(cfg.Matching.DefaultSearchRadiusMeters),
	)
	donationMetrics := donationmetrics.New()
	ledger := donationservice.New(st.donations, st.donees,
		donationservice.WithLogger(log),
		donationservice.WithMetrics(donationMetrics),
	)
	orchestrator := matching.New(ledger, st.donors, donees, notifier, cfg.BaseURL,
		matching.WithLogger(log),
		matching.WithMetrics(donationMetrics),
		matching.WithAudit(publisher),
		matching.WithTxRunner(st.runner),
	)
	aggregator := stats.New(ledger, st.donors, donees,
		stats.WithLogger(log),
		stats.WithCache(cache, cfg.Stats.CacheTTL),
	)

	if cfg.SeedDemoData {
		if err := seedDemoData(ctx, st.donors, donees, log); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:            log,
		Metrics:           metrics.New(),
		Gatherer:          prometheus.DefaultGatherer,
		JWTValidator:      jwttoken.NewJWTService(cfg.JWTSigningKey),
		AdminUsername:     cfg.Admin.Username,
		AdminPasswordHash: cfg.Admin.PasswordHash,
		Donations:         donationhandler.New(orchestrator, log),
		Donees:            doneehandler.New(donees, log, cfg.Matching.NearbyRouteRadiusMeters),
		Stats:             statshandler.New(aggregator, log),
		Limiter:           newLimiter(cfg, rc),
		ConfirmPolicy:     ratelimit.Policy{Name: "confirm", Limit: cfg.RateLimit.ConfirmPerMinute, Window: time.Minute},
		PublicPolicy:      ratelimit.Policy{Name: "public", Limit: cfg.RateLimit.PublicPerMinute, Window: time.Minute},
		HealthChecks:      healthChecks,
	})
	if cfg.Admin.PasswordHash == "" {
		log.Warn("ADMIN_PASSWORD_HASH is not set; admin routes will reject every request")
	}

	srv := httpserver.New(cfg.Addr, router)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return publisher.Run(gctx)
	})
	g.Go(func() error {
		return httpserver.Run(gctx, srv, log)
	})

	log.Info("starting feedlink", "addr", cfg.Addr, "base_url", cfg.BaseURL, "postgres", st.db != nil)
	return g.Wait()
}

func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		log.Info("DATABASE_URL not set; using in-memory stores")
		return &stores{
			donations: donationstore.NewInMemory(),
			donees:    doneestore.NewInMemory(),
			donors:    donorstore.NewInMemory(),
			runner:    tx.NoopRunner{},
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &stores{
		donations: donationstore.NewPostgres(db),
		donees:    doneestore.NewPostgres(db),
		donors:    donorstore.NewPostgres(db),
		runner:    tx.NewSQLRunner(db),
		db:        db,
	}, nil
}

// openRedis connects when REDIS_URL is set and returns nil otherwise.
func openRedis(ctx context.Context, cfg config.Server, checks map[string]httpapi.HealthCheck) (*redis.Client, error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil || client == nil {
		return nil, err
	}
	checks["redis"] = client.Health
	return client, nil
}

func newStatsCache(cfg config.Server, rc *redis.Client, log *slog.Logger) stats.Cache {
	if rc == nil {
		log.Info("REDIS_URL not set; caching stats in process")
		return stats.NewMemoryCache(cfg.Stats.CacheTTL)
	}
	return stats.NewRedisCache(rc.Client)
}

func newLimiter(cfg config.Server, rc *redis.Client) ratelimit.Limiter {
	switch {
	case cfg.RateLimit.Disabled:
		return nil
	case rc == nil:
		return ratelimit.NewInMemory()
	default:
		return ratelimit.NewRedis(rc.Client)
	}
}

func openAuditSink(ctx context.Context, cfg config.Server, log *slog.Logger, checks map[string]httpapi.HealthCheck) (audit.Sink, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("KAFKA_BROKERS not set; keeping audit events in memory")
		return audit.NewInMemorySink(), func() {}, nil
	}
	sink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	if err := sink.EnsureTopic(ctx, auditTopicPartitions, auditTopicReplicationFactor); err != nil {
		sink.Close()
		return nil, nil, err
	}
	checks["kafka"] = sink.Health
	return sink, sink.Close, nil
}

func newNotifier(cfg config.Server, log *slog.Logger) (notify.Notifier, error) {
	if cfg.SMTP.Host == "" {
		log.Warn("SMTP_HOST not set; donation mail is logged instead of sent")
		return notify.NewLog(log), nil
	}
	n, err := notify.NewSMTP(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	if err != nil {
		return nil, fmt.Errorf("configure smtp: %w", err)
	}
	return n, nil
}
