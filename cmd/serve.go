package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sony/gobreaker"
	"github.com/spf13/cobra"

	"github.com/angeloszaimis/grocery-proxy/config"
	"github.com/angeloszaimis/grocery-proxy/internal/circuitbreaker"
	"github.com/angeloszaimis/grocery-proxy/internal/handler"
	"github.com/angeloszaimis/grocery-proxy/internal/healthcheck"
	"github.com/angeloszaimis/grocery-proxy/internal/httpserver"
	"github.com/angeloszaimis/grocery-proxy/internal/metrics"
	"github.com/angeloszaimis/grocery-proxy/internal/route"
	"github.com/angeloszaimis/grocery-proxy/internal/tracing"
	"github.com/angeloszaimis/grocery-proxy/internal/upstream"
	"github.com/angeloszaimis/grocery-proxy/pkg/logger"
)

const (
	metricsBufferSize = 1000
	readinessInterval = 5 * time.Second
	tracerStopTimeout = 5 * time.Second
	// Added on top of the upstream timeout so a slow upstream answer can still be written.
	writeTimeoutSlack = 15 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the proxy and the admin listener",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

// app holds every long-lived component built from the configuration.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	routes    *route.Table
	collector *metrics.Collector
	breakers  *circuitbreaker.Registry
	tracer    *tracing.Tracer
	checker   *healthcheck.Checker
	proxy     *handler.ProxyHandler
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize proxy", slog.Any("err", err))
		return err
	}

	return a.serve(ctx)
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{
		cfg:       cfg,
		log:       log,
		routes:    route.Default(),
		collector: metrics.NewCollector(metricsBufferSize, log),
	}

	upstreams, err := buildUpstreams(cfg)
	if err != nil {
		return nil, fmt.Errorf("build upstreams: %w", err)
	}

	tracer, err := tracing.New(ctx, tracing.Config{
		ServiceName:  logger.ServiceName,
		Endpoint:     cfg.Tracing.Endpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		Enabled:      cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.tracer = tracer

	clientOpts := []upstream.ClientOption{upstream.WithTracer(tracer)}

	if cfg.CircuitBreaker.Enabled {
		a.breakers = circuitbreaker.NewRegistry(
			cfg.CircuitBreaker.FailureThreshold,
			cfg.ResetTimeout(),
			log,
			circuitbreaker.WithStateChange(breakerMetrics(a.collector)),
		)
		clientOpts = append(clientOpts, upstream.WithBreakers(a.breakers))
	}

	// A nil registry must stay an untyped nil so the checker treats it as absent.
	var breakerState healthcheck.BreakerState
	if a.breakers != nil {
		breakerState = a.breakers
	}
	a.checker = healthcheck.NewChecker(breakerState, log)

	client := upstream.NewClient(cfg.RapidAPI.Key, cfg.UpstreamTimeout(), clientOpts...)
	a.proxy = handler.NewProxyHandler(log, a.routes, upstreams, client, a.collector)

	return a, nil
}

func (a *app) serve(ctx context.Context) error {
	a.collector.Start(ctx)
	go a.checker.Run(ctx, readinessInterval)

	public, err := httpserver.New(a.cfg.Server.Address, a.proxy, httpserver.WithWriteTimeout(writeTimeout(a.cfg.UpstreamTimeout())))
	if err != nil {
		a.log.Error("Failed to create server", slog.Any("err", err))
		return err
	}

	servers := []*httpserver.Server{public}
	srvErrCh := make(chan error, 2)

	if a.cfg.Admin.Enabled {
		admin, err := httpserver.New(a.cfg.Admin.Address, setupAdminRouter(a.collector, a.checker))
		if err != nil {
			a.log.Error("Failed to create admin server", slog.Any("err", err))
			return err
		}
		servers = append(servers, admin)
		go func() {
			srvErrCh <- admin.Start()
		}()
		a.log.Info("Admin listener started", slog.String("address", admin.Addr()))
	}

	go func() {
		srvErrCh <- public.Start()
	}()

	a.log.Info("Proxy started",
		slog.String("address", public.Addr()),
		slog.String("version", version),
		slog.Any("endpoints", a.routes.Endpoints()),
		slog.Bool("circuit_breaker", a.cfg.CircuitBreaker.Enabled),
		slog.Bool("tracing", a.cfg.Tracing.Enabled))

	var runErr error
	select {
	case <-ctx.Done():
		if drain := a.cfg.ShutdownTimeout(); drain > 0 {
			a.log.Info("Shutting down gracefully...", slog.Duration("drain", drain))
		} else {
			a.log.Info("Shutting down...")
		}
	case err := <-srvErrCh:
		if err != nil {
			a.log.Error("Error starting proxy", slog.Any("err", err))
			runErr = err
		}
	}

	a.stop(servers)
	return runErr
}

func (a *app) stop(servers []*httpserver.Server) {
	for _, srv := range servers {
		if err := srv.Shutdown(context.Background(), a.cfg.ShutdownTimeout()); err != nil {
			a.log.Error("Error during shutdown", slog.String("address", srv.Addr()), slog.Any("err", err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), tracerStopTimeout)
	defer cancel()
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.log.Warn("Failed to flush traces", slog.Any("err", err))
	}
}

func buildUpstreams(cfg *config.Config) (upstream.Set, error) {
	return upstream.NewSet(map[route.Family]string{
		route.Coles:      cfg.Upstream.Coles.URL,
		route.Woolworths: cfg.Upstream.Woolworths.URL,
	})
}

// breakerMetrics forwards breaker transitions to the metrics collector.
func breakerMetrics(collector *metrics.Collector) circuitbreaker.StateChangeFunc {
	return func(name string, from, to gobreaker.State) {
		collector.Emit(metrics.MetricEvent{
			Type:         metrics.EventBreakerChanged,
			Upstream:     name,
			BreakerState: int(to),
			BreakerLabel: to.String(),
		})
	}
}

func writeTimeout(upstreamTimeout time.Duration) time.Duration {
	if upstreamTimeout <= 0 {
		return 0
	}
	return upstreamTimeout + writeTimeoutSlack
}
