package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"soulpass/internal/events"
	jwttoken "soulpass/internal/jwt_token"
	"soulpass/internal/metadata"
	passporthandler "soulpass/internal/passport/handler"
	passportmetrics "soulpass/internal/passport/metrics"
	"soulpass/internal/passport/service"
	passportstore "soulpass/internal/passport/store/passport"
	"soulpass/internal/platform/config"
	"soulpass/internal/platform/httpserver"
	"soulpass/internal/platform/logger"
	platformmetrics "soulpass/internal/platform/metrics"
	"soulpass/internal/platform/postgres"
	platformredis "soulpass/internal/platform/redis"
	id "soulpass/pkg/domain"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	authority, err := id.ParseAddress(cfg.AuthorityAddress)
	if err != nil {
		log.Error("invalid AUTHORITY_ADDRESS", "error", err)
		return
	}

	// Store: postgres when configured, in-memory otherwise.
	var store passportstore.Store = passportstore.NewInMemory()
	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres unavailable", "error", err)
			return
		}
		defer db.Close()

		pg := passportstore.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("schema migration failed", "error", err)
			return
		}
		store = pg
	}

	// Events: always keep an in-process store for the explorer endpoints;
	// fan out to Kafka through a background worker when brokers are
	// configured.
	eventStore := events.NewInMemoryStore()
	var sink events.Sink = eventStore
	var kafkaWorker *events.Worker
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := events.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic,
			events.WithKafkaLogger(log))
		if err != nil {
			log.Error("kafka unavailable", "error", err)
			return
		}
		defer kafkaSink.Close()

		inbox := make(chan events.Event, 256)
		kafkaWorker = events.NewWorker(kafkaSink, inbox)
		sink = events.Multi(eventStore, events.ChannelSink(inbox))
	}
	publisher := events.NewPublisher(sink)

	renderer := metadata.NewRenderer(cfg.MetadataImageURI)
	if cfg.MetadataDefaultBase != "" {
		renderer.SetDefaultBase(cfg.MetadataDefaultBase)
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithPublisher(publisher),
		service.WithMetrics(passportmetrics.New()),
	}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		return
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, service.WithMetadataCache(
			metadata.NewCache(redisClient.Client, config.MetadataCacheTTL, log)))
	}

	ledger := service.New(store, renderer, authority, opts...)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	httpMetrics := platformmetrics.New()

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	passporthandler.New(ledger, log, httpMetrics, jwtService, eventStore).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting soulpass ledger", "addr", cfg.Addr, "authority", authority.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if kafkaWorker != nil {
		group.Go(func() error {
			if err := kafkaWorker.Run(groupCtx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
	}
}
