package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/bootstrap"
	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/logger"
	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/Domenick1991/flightbooking/internal/migration"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/Domenick1991/flightbooking/internal/storage/memory"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type stores struct {
	flights  repository.FlightRepository
	bookings repository.BookingRepository
	tokens   repository.APITokenRepository
	tx       repository.Transactor
	close    func()
}

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer lg.Sync()
	zap.ReplaceGlobals(lg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("open storage", zap.Error(err))
	}
	defer st.close()

	if cfg.Storage.SeedDemoData {
		day := time.Now().UTC().AddDate(0, 0, 1).Truncate(24 * time.Hour)
		if err := migration.Seed(ctx, lg, st.tx, st.flights, st.tokens, migration.DemoFlights(day), cfg.Storage.DemoAPIKey); err != nil {
			lg.Fatal("seed demo data", zap.Error(err))
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	flightsTTL := time.Duration(cfg.Booking.FlightsCacheTTL) * time.Second
	redisCache := cache.NewRedisCache(cfg.Redis, flightsTTL)
	defer redisCache.Close()

	var flightCache flights.FlightCache
	bookingOpts := []booking.BookingServiceOption{
		booking.WithLogger(lg),
		booking.WithMetrics(m),
	}
	deps := bootstrap.Deps{Tokens: st.tokens, Metrics: m, Gatherer: registry, Logger: lg}

	if err := redisCache.Ping(ctx); err != nil {
		lg.Warn("redis unavailable, running without cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	} else {
		flightCache = redisCache
		bookingOpts = append(bookingOpts, booking.WithCache(redisCache))
		deps.APIKeys = redisCache
		deps.Idempotency = redisCache
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, lg)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			lg.Warn("kafka unavailable, booking events will fail to publish", zap.Error(err))
		}
		bookingOpts = append(bookingOpts,
			booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic),
			booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
			booking.WithPublishAttempts(cfg.Kafka.PublishAttempts),
		)
	}

	deps.Flights = flights.NewFlightService(st.flights, flightCache, flights.WithLogger(lg), flights.WithMetrics(m))
	deps.Bookings = booking.NewBookingService(st.bookings, st.flights, st.tx, bookingOpts...)

	if err := bootstrap.Run(ctx, cfg, deps); err != nil {
		lg.Fatal("server error", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg *config.Config, lg *zap.Logger) (*stores, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		db := memory.New(memory.WithLogger(lg))
		lg.Info("using in-memory storage")
		return &stores{
			flights:  db,
			bookings: db.Bookings(),
			tokens:   db.APITokens(),
			tx:       db,
			close:    func() {},
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	if err := migration.Up(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	lg.Info("using postgres storage", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.Name))
	return &stores{
		flights:  repository.NewFlightRepository(pool),
		bookings: repository.NewBookingRepository(pool),
		tokens:   repository.NewAPITokenRepository(pool),
		tx:       repository.NewTxManager(pool),
		close:    pool.Close,
	}, nil
}
