// Command server runs the intake gateway: the assessment wizard API, the
// progression guard, and the billing webhook. Business logic lives in the
// internal packages; main only wires dependencies and owns the lifecycle.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"intake/internal/assessment"
	"intake/internal/assessment/guard"
	assessmenthandler "intake/internal/assessment/handler"
	assessmentmetrics "intake/internal/assessment/metrics"
	assessmentservice "intake/internal/assessment/service"
	"intake/internal/audit"
	auditmemory "intake/internal/audit/store/memory"
	"intake/internal/auth"
	"intake/internal/billing"
	"intake/internal/platform/config"
	"intake/internal/platform/httpserver"
	"intake/internal/platform/logger"
	platformpostgres "intake/internal/platform/postgres"
	platformredis "intake/internal/platform/redis"
	"intake/internal/profile"
	profilecache "intake/internal/profile/store/cache"
	profilememory "intake/internal/profile/store/memory"
	profilepostgres "intake/internal/profile/store/postgres"
	httptransport "intake/internal/transport/http"
)

func main() {
	log := logger.New(slog.LevelInfo)

	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	// Record store: postgres when configured, memory otherwise (dev).
	var store profile.Store
	if cfg.DatabaseURL != "" {
		pool, err := platformpostgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		pg := profilepostgres.New(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		store = pg
	} else {
		log.Warn("no database configured, using in-memory record store")
		store = profilememory.New()
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		store = profilecache.New(store, redisClient.Client, cfg.RecordCacheTTL, log)
	}

	// Audit pipeline: in-process store, Kafka sink when brokers are set.
	auditOpts := []audit.Option{audit.WithAsyncBuffer(256)}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.DefaultProduceTopic(cfg.Kafka.Topic),
		)
		if err != nil {
			return err
		}
		defer kafkaClient.Close()
		auditOpts = append(auditOpts, audit.WithKafka(kafkaClient, cfg.Kafka.Topic))
	}
	publisher := audit.NewPublisher(auditmemory.New(), log, auditOpts...)
	defer publisher.Close()

	registry := assessment.NewRegistry()
	evaluator := assessment.NewEvaluator(registry)
	metrics := assessmentmetrics.New()

	svc, err := assessmentservice.New(registry, evaluator, store, publisher, log,
		assessmentservice.WithMetrics(metrics))
	if err != nil {
		return err
	}

	verifier := auth.NewJWTVerifier(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	routeGuard := guard.New(evaluator, store, publisher, log, metrics)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:     log,
		Validator:  verifier,
		Guard:      routeGuard,
		Assessment: assessmenthandler.New(registry, svc, store, log),
		Billing:    billing.NewHandler(store, cfg.BillingWebhookSecret, publisher, log),
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting intake gateway", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
