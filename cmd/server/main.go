// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"certverify/internal/audit"
	certhandler "certverify/internal/certificate/handler"
	certmetrics "certverify/internal/certificate/metrics"
	certservice "certverify/internal/certificate/service"
	certstore "certverify/internal/certificate/store"
	"certverify/internal/docstore"
	"certverify/internal/extraction"
	"certverify/internal/platform/config"
	"certverify/internal/platform/httpserver"
	"certverify/internal/platform/logger"
	"certverify/internal/platform/middleware"
	platformredis "certverify/internal/platform/redis"
	"certverify/internal/token"
	"certverify/internal/visibility"
)

// tokenValidator adapts the JWT service to the middleware contract.
type tokenValidator struct {
	svc *token.Service
}

func (v *tokenValidator) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	claims, err := v.svc.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.TokenClaims{SubjectID: claims.SubjectID, Role: claims.Role}, nil
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	var (
		db         *sql.DB
		certs      certservice.CertificateStore
		auditStore audit.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		certs = certstore.NewPostgres(db)
		auditStore = audit.NewPostgres(db)
	} else {
		log.Warn("no database configured, using in-memory stores")
		certs = certstore.NewInMemory()
		auditStore = audit.NewInMemory()
	}

	var docs docstore.Store
	if cfg.Docstore.Endpoint != "" {
		minioStore, err := docstore.NewMinio(cfg.Docstore)
		if err != nil {
			log.Error("failed to init document storage", "error", err)
			os.Exit(1)
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			log.Error("failed to ensure document bucket", "error", err)
			os.Exit(1)
		}
		docs = minioStore
	} else {
		log.Warn("no object storage configured, using in-memory document store")
		docs = docstore.NewInMemory()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	extractor := extraction.NewClient(cfg.Extraction.BaseURL, cfg.Extraction.Timeout)
	auditPublisher := audit.NewPublisher(auditStore)
	certMetrics := certmetrics.New()

	certSvc := certservice.New(certs, docs, extractor, cfg.Docstore.PresignTTL,
		certservice.WithLogger(log),
		certservice.WithAuditPublisher(auditPublisher),
		certservice.WithMetrics(certMetrics),
	)

	// The certificate store doubles as the visibility read model; there is
	// exactly one source of truth for records.
	visibilityStore, ok := certs.(visibility.CertificateStore)
	if !ok {
		log.Error("certificate store does not support visibility reads")
		os.Exit(1)
	}
	visOpts := []visibility.Option{
		visibility.WithLogger(log),
		visibility.WithAuditPublisher(auditPublisher),
	}
	if redisClient != nil {
		visOpts = append(visOpts, visibility.WithCache(
			visibility.NewRedisCache(redisClient, cfg.VisibilityCacheTTL, log)))
	}
	visSvc := visibility.New(visibilityStore, docs, cfg.Docstore.PresignTTL, visOpts...)

	validator := &tokenValidator{svc: token.NewService(cfg.JWTSigningKey, cfg.JWTIssuer)}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(60 * time.Second))

	certhandler.New(certSvc, auditPublisher, log, validator, cfg.AdminToken).Register(router)
	visibility.NewHandler(visSvc, log, validator).Register(router)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", readiness(db, redisClient, docs, extractor))
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting certverify", "addr", cfg.Addr)

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
		os.Exit(1)
	}
}

// readiness probes every hard dependency in parallel. Optional dependencies
// that were never configured are skipped rather than failed.
func readiness(db *sql.DB, redisClient *platformredis.Client, docs docstore.Store, extractor *extraction.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)
		if db != nil {
			g.Go(func() error { return db.PingContext(gctx) })
		}
		if redisClient != nil {
			g.Go(func() error { return redisClient.Health(gctx) })
		}
		g.Go(func() error { return docs.Health(gctx) })
		g.Go(func() error { return extractor.Health(gctx) })

		if err := g.Wait(); err != nil {
			http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
