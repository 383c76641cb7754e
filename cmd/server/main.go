package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"signoff/internal/audit"
	"signoff/internal/auth"
	authhandler "signoff/internal/auth/handler"
	"signoff/internal/inference"
	jwttoken "signoff/internal/jwt_token"
	"signoff/internal/platform/config"
	"signoff/internal/platform/httpserver"
	"signoff/internal/platform/logger"
	"signoff/internal/platform/metrics"
	platformredis "signoff/internal/platform/redis"
	"signoff/internal/samples"
	sampleshandler "signoff/internal/samples/handler"
	"signoff/internal/signatory"
	signatoryhandler "signoff/internal/signatory/handler"
	signatorymetrics "signoff/internal/signatory/metrics"
	httptransport "signoff/internal/transport/http"
	"signoff/internal/verify"
	verifyhandler "signoff/internal/verify/handler"
	verifymetrics "signoff/internal/verify/metrics"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Audit trail. The local store is always on; Postgres replaces the
	// in-memory store when configured, and a Kafka stream is added on top
	// when brokers are present.
	var auditStore audit.Store = audit.NewMemoryStore()
	var db *sql.DB
	if cfg.Postgres.URL != "" {
		db, err = sql.Open("pgx", cfg.Postgres.URL)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		pgStore, err := audit.NewPostgresStore(ctx, db)
		if err != nil {
			log.Error("prepare audit store", "error", err)
			os.Exit(1)
		}
		auditStore = pgStore
	}

	asyncAudit := audit.NewAsyncPublisher(256, log)
	auditWorker := audit.NewWorker(auditStore, asyncAudit.Inbox(), log)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go func() { _ = auditWorker.Run(workerCtx) }()

	publishers := audit.Multi{asyncAudit}
	var kafkaAudit *audit.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaAudit, err = audit.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			log.Error("connect audit stream", "error", err)
			os.Exit(1)
		}
		defer kafkaAudit.Close()
		publishers = append(publishers, kafkaAudit)
	}

	// Signatory registry. Store and service share one metrics instance.
	registryMetrics := signatorymetrics.New()
	store, err := signatory.NewFileStore(cfg.DataDir,
		signatory.WithFileLogger(log),
		signatory.WithFileMetrics(registryMetrics),
	)
	if err != nil {
		log.Error("open signatory registry", "error", err)
		os.Exit(1)
	}
	registry := signatory.NewService(store,
		signatory.WithLogger(log),
		signatory.WithAuditPublisher(publishers),
		signatory.WithMetrics(registryMetrics),
	)

	// Sample invoices shipped with the deployment.
	sampleCatalog, err := samples.NewService(cfg.SamplesDir)
	if err != nil {
		log.Error("open samples dir", "error", err)
		os.Exit(1)
	}

	// Vision model client. Endpoint and model fall back to client defaults
	// when unset.
	inferClient := inference.NewAnthropicClient(cfg.Inference.APIKey,
		inference.WithEndpoint(cfg.Inference.Endpoint),
		inference.WithModel(cfg.Inference.Model),
		inference.WithClientLogger(log),
	)

	// Verification session, with a shared result cache when Redis is
	// configured.
	sessionOpts := []verify.SessionOption{
		verify.WithLogger(log),
		verify.WithMetrics(verifymetrics.New()),
		verify.WithAuditPublisher(publishers),
	}
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessionOpts = append(sessionOpts,
			verify.WithCache(verify.NewRedisCache(redisClient.Client, cfg.Redis.CacheTTL)))
	}
	session := verify.NewSession(registry, inferClient, sessionOpts...)

	// Client credentials and token issuance.
	jwtService := jwttoken.NewService(cfg.Auth.SigningKey, cfg.Auth.Issuer)
	jwtValidator := jwttoken.NewValidator(jwtService)
	clients, err := auth.ParseClients(cfg.Auth.ClientsJSON)
	if err != nil {
		log.Error("parse client registry", "error", err)
		os.Exit(1)
	}
	tokens := auth.NewService(clients, jwtService, cfg.Auth.TokenTTL, auth.WithLogger(log))

	router := httptransport.NewRouter(
		httptransport.Deps{Logger: log, Metrics: metrics.New()},
		authhandler.New(tokens, log),
		signatoryhandler.New(registry, log, jwtValidator),
		verifyhandler.New(session, sampleCatalog, log, jwtValidator),
		sampleshandler.New(sampleCatalog, log),
	)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting signoff",
		"addr", cfg.Addr,
		"data_dir", cfg.DataDir,
		"cache", redisClient != nil,
		"audit_stream", kafkaAudit != nil,
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	if db != nil {
		_ = db.Close()
	}
}
