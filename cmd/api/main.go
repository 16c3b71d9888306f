package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/config"
	"github.com/ariefcatur/go-marketplace-orders/internal/fulfillment"
	"github.com/ariefcatur/go-marketplace-orders/internal/httpx"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/logging"
	"github.com/ariefcatur/go-marketplace-orders/internal/memory"
	"github.com/ariefcatur/go-marketplace-orders/internal/metrics"
	"github.com/ariefcatur/go-marketplace-orders/internal/notify"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/payment"
	"github.com/ariefcatur/go-marketplace-orders/internal/postgres"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
	"github.com/ariefcatur/go-marketplace-orders/internal/sequence"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.MustNew(logging.Options{Service: cfg.ServiceName, Env: cfg.Env, Level: cfg.LogLevel, File: cfg.LogFile})
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	var db *pgxpool.Pool
	if cfg.StoreBackend == "postgres" || cfg.SequenceBackend == "postgres" {
		var err error
		db, err = postgres.Connect(ctx, cfg.PostgresDSN, log)
		if err != nil {
			log.Fatal("db_connect_failed", zap.Error(err))
		}
		defer db.Close()
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	var cache redis.Cmdable = rdb
	if err := rdb.Ping(ctx).Err(); err != nil {
		if cfg.SequenceBackend == "redis" {
			log.Fatal("redis_connect_failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		log.Warn("redis_unavailable_cache_disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		cache = nil
	}

	// Stores
	var (
		store   orders.Store
		catalog inventory.Catalog
		stock   inventory.Store
	)
	switch cfg.StoreBackend {
	case "postgres":
		pg := &inventory.PostgresStore{DB: db}
		store, catalog, stock = &orders.Repo{DB: db}, pg, pg
	case "memory":
		mc := memory.NewCatalog(demoProducts()...)
		store, catalog, stock = memory.NewOrderStore(), mc, mc
	default:
		log.Fatal("unknown_store_backend", zap.String("backend", cfg.StoreBackend))
	}

	var counter sequence.Counter
	switch cfg.SequenceBackend {
	case "redis":
		counter = sequence.RedisCounter{Redis: rdb}
	case "postgres":
		counter = sequence.PostgresCounter{DB: db}
	case "memory":
		counter = memory.NewCounter()
	default:
		log.Fatal("unknown_sequence_backend", zap.String("backend", cfg.SequenceBackend))
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Kafka producers, one per event topic
	var publisher notify.Publisher = notify.Nop{}
	var producers []*kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		tps := make([]notify.TopicProducer, 0, len(orders.Topics))
		for _, topic := range orders.Topics {
			p := kafkax.NewProducer(cfg.KafkaBrokers, topic, cfg.NotifyBuffer, log)
			p.Start(ctx)
			producers = append(producers, p)
			tps = append(tps, p)
		}
		publisher = notify.NewKafkaPublisher(cfg.ServiceName, m, tps...)
	} else {
		log.Warn("kafka_disabled_notifications_dropped")
	}

	svc := fulfillment.New(fulfillment.Deps{
		Store:     store,
		Catalog:   catalog,
		Ledger:    inventory.NewLedger(stock),
		Allocator: sequence.NewAllocator(counter, cfg.OrderNumberPrefix, cfg.OrderNumberWidth),
		Gateway: &payment.Client{
			BaseURL:   cfg.GatewayBaseURL,
			KeyID:     cfg.GatewayKeyID,
			KeySecret: cfg.GatewayKeySecret,
			HTTP:      &http.Client{Timeout: cfg.GatewayTimeout},
		},
		Verifier:            payment.NewVerifier(cfg.GatewayKeySecret),
		Publisher:           publisher,
		Metrics:             m,
		Logger:              log,
		Currency:            cfg.Currency,
		GatewayTimeout:      cfg.GatewayTimeout,
		CompensationTimeout: cfg.CompensationTimeout,
	})

	router := httpx.NewRouter(log, m, prometheus.DefaultGatherer)
	oh := &httpx.OrdersHandler{Orders: svc, Catalog: catalog, Redis: cache}
	oh.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("http_listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreBackend),
			zap.String("sequence", cfg.SequenceBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http_listen_failed", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting_down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), cfg.CompensationTimeout)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn("http_shutdown_failed", zap.Error(err))
	}
	// flush buffered notifications before the writers close
	for _, p := range producers {
		p.Close()
	}
	for _, p := range producers {
		p.WaitClosed()
	}
	cancel()
}
