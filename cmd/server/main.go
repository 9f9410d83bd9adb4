package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/survey-integrity-scorer/internal/aggregation"
	"github.com/ignite/survey-integrity-scorer/internal/analyzers/fraud"
	"github.com/ignite/survey-integrity-scorer/internal/analyzers/text"
	"github.com/ignite/survey-integrity-scorer/internal/analyzers/text/textcache"
	"github.com/ignite/survey-integrity-scorer/internal/api"
	"github.com/ignite/survey-integrity-scorer/internal/clock"
	"github.com/ignite/survey-integrity-scorer/internal/config"
	"github.com/ignite/survey-integrity-scorer/internal/idgen"
	"github.com/ignite/survey-integrity-scorer/internal/ingest"
	"github.com/ignite/survey-integrity-scorer/internal/pkg/distlock"
	"github.com/ignite/survey-integrity-scorer/internal/pkg/logger"
	"github.com/ignite/survey-integrity-scorer/internal/scoring"
	"github.com/ignite/survey-integrity-scorer/internal/store"
)

func main() {
	logger.Info("starting", "service", "survey-integrity-scorer")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	clk := clock.Real{}
	ids := idgen.UUID{}

	s, db, closeStore := mustStore(cfg, clk, ids)
	defer closeStore()

	classifier := mustClassifier(cfg)
	cache := textcache.New(cfg.TextCache.Capacity, cfg.TextCache.TTL())
	textAnalyzer := text.NewAnalyzer(classifier, cache, cfg.Classifier)

	geo := mustGeo(cfg)
	fraudAnalyzer := fraud.New(s, geo, cfg.Fraud)

	engine := scoring.NewEngine(s, clk, textAnalyzer, fraudAnalyzer, *cfg)
	if lockFactory := mustLockFactory(cfg, db); lockFactory != nil {
		engine.WithDistLock(lockFactory)
	}
	ingestSvc := ingest.New(s, cfg.Ingest.EventCountCap)
	aggSvc := aggregation.New(s)

	router := api.NewRouter(api.Deps{
		Store:  s,
		Agg:    aggSvc,
		Ingest: ingestSvc,
		Engine: engine,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-done
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("stopped")
}

// mustStore builds the configured Store backend. A DSN selects
// Postgres; an empty DSN falls back to the in-memory store, useful
// for local smoke-testing without a database. The *sql.DB is returned
// alongside (nil for the in-memory backend) so mustLockFactory can
// fall back to Postgres advisory locks when Redis isn't configured.
func mustStore(cfg *config.Config, clk clock.Clock, ids idgen.Generator) (store.Store, *sql.DB, func()) {
	if cfg.Database.DSN == "" {
		logger.Warn("database.dsn is empty, using in-memory store")
		return store.NewMemory(clk, ids), nil, func() {}
	}
	db, err := store.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	return store.NewPostgres(db, clk, ids), db, func() { _ = db.Close() }
}

// mustLockFactory builds the cross-process scoring-lock factory, when
// one is possible: Redis if configured, else Postgres advisory locks
// if a database is open, else nil (process-local coalescing only).
func mustLockFactory(cfg *config.Config, db *sql.DB) func(sessionID string) distlock.DistLock {
	if cfg.Redis.Addr == "" && db == nil {
		return nil
	}
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return func(sessionID string) distlock.DistLock {
		return distlock.NewScoringSessionLock(rdb, db, sessionID, lockTTLDefault)
	}
}

const lockTTLDefault = 30 * time.Second

// mustClassifier builds the configured TextClassifier. "openai"
// requires classifier.api_key; anything else (including empty)
// falls back to the deterministic Stub, so local runs don't require
// network access.
func mustClassifier(cfg *config.Config) text.TextClassifier {
	if cfg.Classifier.Provider == "openai" && cfg.Classifier.APIKey != "" {
		openai := text.NewOpenAI(cfg.Classifier.APIKey, cfg.Classifier.Model, cfg.Classifier.BaseURL, cfg.Classifier.Retries, cfg.Classifier.Timeout())
		return text.NewRateLimited(openai, cfg.Classifier.RatePerSecond, cfg.Classifier.QueueCapacity)
	}
	logger.Warn("classifier.provider is not openai (or no api_key), using deterministic stub")
	return &text.Stub{}
}

// mustGeo builds the configured GeoLookup. An empty GeoDBPath
// disables geolocation entirely rather than failing startup.
func mustGeo(cfg *config.Config) fraud.GeoLookup {
	if cfg.Fraud.GeoDBPath == "" {
		return fraud.Disabled{}
	}
	geo, err := fraud.OpenMaxMindGeo(cfg.Fraud.GeoDBPath)
	if err != nil {
		logger.Error("failed to open geo database, disabling geolocation", "path", cfg.Fraud.GeoDBPath, "error", err)
		return fraud.Disabled{}
	}
	return geo
}
