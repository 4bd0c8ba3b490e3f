package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"printtrace/internal/identity"
	"printtrace/internal/ledger"
	"printtrace/internal/ledger/alert"
	ledgerhandler "printtrace/internal/ledger/handler"
	ledgermetrics "printtrace/internal/ledger/metrics"
	"printtrace/internal/ledger/stats"
	"printtrace/internal/platform/config"
	"printtrace/internal/platform/httpserver"
	"printtrace/internal/platform/kafka"
	"printtrace/internal/platform/logger"
	platformredis "printtrace/internal/platform/redis"
	"printtrace/internal/quality"
	"printtrace/internal/quality/classifier"
	"printtrace/internal/risk"
	riskhandler "printtrace/internal/risk/handler"
	riskmetrics "printtrace/internal/risk/metrics"
	"printtrace/internal/token"
	"printtrace/internal/usage/analyzer"
	usagehandler "printtrace/internal/usage/handler"
	usagestore "printtrace/internal/usage/store"
	"printtrace/pkg/platform/middleware/auth"
	"printtrace/pkg/platform/middleware/metadata"
	"printtrace/pkg/platform/middleware/requestmeta"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Storage. An empty POSTGRES_URL selects the in-memory stores, which is
	// the single-node development mode.
	var (
		eventStore  usagestore.Store
		ledgerStore ledger.Store
		pgPool      *pgxpool.Pool
		ledgerDB    *sql.DB
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			log.Error("postgres pool", "error", err)
			os.Exit(1)
		}
		if err := pool.Ping(ctx); err != nil {
			log.Error("postgres ping", "error", err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, usagestore.Schema); err != nil {
			log.Error("usage schema", "error", err)
			os.Exit(1)
		}
		pgPool = pool
		eventStore = usagestore.NewPostgres(pool)

		db, err := sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			log.Error("ledger database", "error", err)
			os.Exit(1)
		}
		if _, err := db.ExecContext(ctx, ledger.Schema); err != nil {
			log.Error("ledger schema", "error", err)
			os.Exit(1)
		}
		ledgerDB = db
		ledgerStore = ledger.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		eventStore = usagestore.NewInMemoryStore()
		ledgerStore = ledger.NewInMemoryStore()
		log.Warn("POSTGRES_URL not set, using in-memory stores")
	}

	// Verdict counters. Redis-backed counters survive restarts; they remain a
	// rebuildable cache over the ledger either way.
	var counter stats.Counter
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		counter = stats.NewRedisCounter(redisClient.Client)
		log.Info("using redis verdict counters")
	} else {
		counter = stats.NewMemoryCounter()
		log.Warn("REDIS_URL not set, using in-memory verdict counters")
	}

	// Alert publishing. Without brokers alerts are only logged.
	kafkaClient, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		log.Error("kafka", "error", err)
		os.Exit(1)
	}
	var producer alert.Producer
	if kafkaClient != nil {
		producer = kafkaClient
		log.Info("alert publishing enabled", "topic", cfg.Kafka.AlertTopic)
	} else {
		log.Warn("KAFKA_BROKERS not set, alerts are log-only")
	}
	alerts := alert.NewPublisher(producer, cfg.Kafka.AlertTopic, log)

	ledgerService := ledger.NewService(ledgerStore, counter, alerts, log, ledgermetrics.New())

	// Collaborators are optional: without a classifier verdicts degrade to
	// usage-only, without an identity registry the status check is skipped.
	var classifierClient classifier.Classifier
	if cfg.Classifier.BaseURL != "" {
		classifierClient = classifier.NewHTTPClient(
			cfg.Classifier.BaseURL, cfg.Classifier.Timeout, cfg.Classifier.Retries, cfg.Classifier.Backoff, log)
	} else {
		log.Warn("CLASSIFIER_URL not set, verdicts degrade to usage-only")
	}
	var identityClient identity.Client
	if cfg.Identity.BaseURL != "" {
		identityClient = identity.NewHTTPClient(cfg.Identity.BaseURL, cfg.Identity.Timeout)
	} else {
		log.Warn("IDENTITY_URL not set, status mismatch check disabled")
	}

	riskService := risk.NewService(
		risk.Config{
			Analyzer: analyzer.Config{
				FrequencyThreshold: cfg.Analyzer.FrequencyThreshold,
				FrequencyWindow:    cfg.Analyzer.FrequencyWindow,
				DormancyGap:        cfg.Analyzer.DormancyGap,
				FrequencyWeight:    cfg.Analyzer.FrequencyWeight,
				ReuseWeight:        cfg.Analyzer.ReuseWeight,
				ReactivationWeight: cfg.Analyzer.ReactivationWeight,
			},
			Quality: quality.Config{
				LivenessWeight:    cfg.Quality.LivenessWeight,
				ClarityWeight:     cfg.Quality.ClarityWeight,
				TextureWeight:     cfg.Quality.TextureWeight,
				DistortionPenalty: cfg.Quality.DistortionPenalty,
				ReasonThreshold:   cfg.Quality.ReasonThreshold,
			},
			Fusion: risk.FusionConfig{
				UsageWeight:   cfg.Fusion.UsageWeight,
				QualityWeight: cfg.Fusion.QualityWeight,
				SuspiciousAt:  cfg.Fusion.SuspiciousAt,
				HighAt:        cfg.Fusion.HighAt,
			},
			ClassifierRequired: cfg.Classifier.Required,
			IndicatorDigestKey: []byte(cfg.Quality.IndicatorDigestKey),
		},
		eventStore, classifierClient, identityClient, ledgerService, alerts, log, riskmetrics.New(),
	)

	tokenService := token.NewService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)

	router := newRouter(log, tokenService,
		riskhandler.New(riskService, log),
		usagehandler.New(eventStore, log),
		ledgerhandler.New(ledgerService, log),
		healthHandler(pgPool, ledgerDB, redisClient))

	srv := httpserver.New(cfg.Server, router)

	log.Info("starting printtrace", "addr", cfg.Server.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	if kafkaClient != nil {
		kafkaClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if ledgerDB != nil {
		ledgerDB.Close()
	}
	if pgPool != nil {
		pgPool.Close()
	}
}

// newRouter assembles the middleware chain and mounts the API. Health and
// metrics stay outside the auth boundary for probes and scrapers.
func newRouter(
	log *slog.Logger,
	validator auth.TokenValidator,
	riskH *riskhandler.Handler,
	usageH *usagehandler.Handler,
	ledgerH *ledgerhandler.Handler,
	health http.HandlerFunc,
) http.Handler {
	r := chi.NewRouter()
	r.Use(requestmeta.RequestMeta)
	r.Use(metadata.ClientMetadata)

	r.Route("/v1", func(api chi.Router) {
		api.Use(auth.RequireAuth(validator, log))
		riskH.Register(api)
		usageH.Register(api)
		ledgerH.Register(api)
	})

	r.Get("/healthz", health)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// healthHandler reports liveness plus the state of each optional backend.
func healthHandler(pool *pgxpool.Pool, db *sql.DB, rdb *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				http.Error(w, `{"status":"postgres unreachable"}`, http.StatusServiceUnavailable)
				return
			}
		}
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				http.Error(w, `{"status":"ledger store unreachable"}`, http.StatusServiceUnavailable)
				return
			}
		}
		if rdb != nil {
			if err := rdb.Health(ctx); err != nil {
				http.Error(w, `{"status":"redis unreachable"}`, http.StatusServiceUnavailable)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}
}
