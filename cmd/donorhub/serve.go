package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	aggregationhandler "donorhub/internal/aggregation/handler"
	aggregationsvc "donorhub/internal/aggregation/service"
	cataloghandler "donorhub/internal/catalog/handler"
	catalogmetrics "donorhub/internal/catalog/metrics"
	catalogsvc "donorhub/internal/catalog/service"
	donationhandler "donorhub/internal/donation/handler"
	donationmetrics "donorhub/internal/donation/metrics"
	donationsvc "donorhub/internal/donation/service"
	jwttoken "donorhub/internal/jwt_token"
	"donorhub/internal/notification"
	notifymetrics "donorhub/internal/notification/metrics"
	"donorhub/internal/platform/httpserver"
	"donorhub/internal/platform/middleware"
	"donorhub/internal/platform/tracing"
	"donorhub/internal/scheduler"
	"donorhub/pkg/platform/httputil"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, outbox relay and campaign scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()
	log := a.logger

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Env, Version, os.Stdout, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	engine, aggMetrics, err := a.engine()
	if err != nil {
		return err
	}
	idem, err := a.idempotencyStore(ctx)
	if err != nil {
		return err
	}
	issuer, err := a.receiptIssuer(ctx)
	if err != nil {
		return err
	}
	notifyMetrics := notifymetrics.New(a.metrics.Registry)
	publisher, err := a.publisher(ctx, notifyMetrics)
	if err != nil {
		return err
	}

	catalogService := catalogsvc.New(a.db, engine,
		catalogsvc.WithLogger(log),
		catalogsvc.WithMetrics(catalogmetrics.New(a.metrics.Registry)),
	)
	donationService := donationsvc.New(a.db, engine, issuer,
		donationsvc.WithIdempotency(idem),
		donationsvc.WithLogger(log),
		donationsvc.WithMetrics(donationmetrics.New(a.metrics.Registry)),
	)
	aggregationService := aggregationsvc.New(a.db, engine,
		aggregationsvc.WithLogger(log),
		aggregationsvc.WithMetrics(aggMetrics),
	)

	jwt := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))
	r.Use(middleware.LatencyMiddleware(a.metrics))

	r.Get("/healthz", a.healthz)
	r.Handle("/metrics", a.metrics.Handler())

	cataloghandler.New(catalogService, jwt, log).Register(r)
	donationhandler.New(donationService, jwt, log).Register(r)
	aggregationhandler.New(aggregationService, jwt, log).Register(r)

	relay := notification.NewRelay(a.db.Outbox(), publisher,
		notification.WithBatchSize(cfg.Outbox.BatchSize),
		notification.WithMaxAttempts(cfg.Outbox.MaxAttempts),
		notification.WithPollInterval(cfg.Outbox.PollInterval),
		notification.WithLogger(log),
		notification.WithMetrics(notifyMetrics),
	)
	sweeper := scheduler.New(catalogService,
		scheduler.WithInterval(cfg.Scheduler.Interval),
		scheduler.WithLogger(log),
	)

	srv := httpserver.New(cfg.HTTP, r)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting donorhub", "addr", cfg.HTTP.Addr, "version", Version, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return ignoreCanceled(relay.Run(gctx))
	})
	if cfg.Scheduler.Enabled {
		g.Go(func() error {
			return ignoreCanceled(sweeper.Run(gctx))
		})
	}
	if store, ok := idem.(interface {
		StartCleanup(context.Context, time.Duration) error
	}); ok {
		g.Go(func() error {
			return ignoreCanceled(store.StartCleanup(gctx, time.Hour))
		})
	}

	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (a *app) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	out := healthStatus{Status: "ok", Checks: map[string]string{}}
	check := func(name string, err error) {
		if err != nil {
			out.Status = "degraded"
			out.Checks[name] = err.Error()
			return
		}
		out.Checks[name] = "ok"
	}
	check("storage", a.db.Ping(ctx))
	if a.redis != nil {
		check("redis", a.redis.Health(ctx))
	}
	if a.kafka != nil {
		check("kafka", a.kafka.Ping(ctx))
	}

	status := http.StatusOK
	if out.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, out)
}
