package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/intercept-simulator/internal/logging"
	"github.com/signalsfoundry/intercept-simulator/internal/observability"
	"github.com/signalsfoundry/intercept-simulator/internal/rpc"
	"github.com/signalsfoundry/intercept-simulator/kb"
	"github.com/signalsfoundry/intercept-simulator/scenarios"
	"github.com/signalsfoundry/intercept-simulator/sim"
)

// Config holds the server settings taken from flags.
type Config struct {
	ListenAddress  string
	MetricsAddress string
	// ScenariosPath is an optional JSON scenario file loaded in addition
	// to the built-in presets.
	ScenariosPath string
	// NoPresets starts with an empty catalog (plus ScenariosPath).
	NoPresets bool
	MaxSteps  int
}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.ListenAddress, "grpc-addr", ":50051", "TCP address the simulation gRPC server listens on")
	flag.StringVar(&cfg.MetricsAddress, "metrics-addr", ":9090", "HTTP address for Prometheus /metrics (empty disables)")
	flag.StringVar(&cfg.ScenariosPath, "scenarios", "", "JSON scenario file to preload into the catalog")
	flag.BoolVar(&cfg.NoPresets, "no-presets", false, "do not preload the built-in presets")
	flag.IntVar(&cfg.MaxSteps, "max-steps", rpc.DefaultMaxSteps, "largest step count a single requested run may need")
	flag.Parse()

	log := logging.NewFromEnv(os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Release: "sim-server"}); err != nil {
			log.Warn(ctx, "sentry init failed", logging.Err(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	lis, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.ListenAddress), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then stops gracefully.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	reg := prometheus.NewRegistry()
	rpcCollector, err := observability.NewRPCCollector(reg)
	if err != nil {
		return fmt.Errorf("initialise rpc metrics: %w", err)
	}
	runCollector, err := observability.NewRunCollector(reg)
	if err != nil {
		return fmt.Errorf("initialise run metrics: %w", err)
	}

	catalog := kb.NewCatalog()
	unsubscribe := catalog.Subscribe(func(ev kb.Event) {
		if ev.Type != kb.EventRunRecorded {
			rpcCollector.SetCatalogSize(catalog.Len())
		}
	})
	defer unsubscribe()
	if err := loadCatalog(ctx, log, catalog, cfg); err != nil {
		return err
	}

	metricsSrv := serveMetrics(ctx, cfg.MetricsAddress, rpcCollector, log)

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			rpc.RequestIDUnaryServerInterceptor(log),
			rpc.TracingUnaryServerInterceptor(),
			rpcCollector.UnaryServerInterceptor(),
		),
	)
	rpc.RegisterSimulationServer(server, rpc.NewService(catalog, log,
		rpc.WithRunCollector(runCollector),
		rpc.WithMaxSteps(cfg.MaxSteps),
	))

	serveErr := make(chan error, 1)
	log.Info(ctx, "starting simulation gRPC server", logging.String("addr", lis.Addr().String()))
	go func() {
		serveErr <- server.Serve(lis)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = err
	}

	log.Info(context.Background(), "shutting down simulation server")
	server.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if errors.Is(runErr, grpc.ErrServerStopped) {
		return nil
	}
	return runErr
}

func loadCatalog(ctx context.Context, log logging.Logger, catalog *kb.Catalog, cfg Config) error {
	var list []*sim.Scenario
	if !cfg.NoPresets {
		list = append(list, scenarios.All()...)
	}
	if cfg.ScenariosPath != "" {
		loaded, err := sim.LoadScenariosFile(cfg.ScenariosPath)
		if err != nil {
			return err
		}
		list = append(list, loaded...)
	}
	if err := catalog.AddScenarios(list...); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	log.Info(ctx, "loaded scenario catalog",
		logging.Int("count", catalog.Len()),
		logging.String("path", cfg.ScenariosPath),
	)
	return nil
}

func serveMetrics(ctx context.Context, addr string, collector *observability.RPCCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(ctx, "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(ctx, "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
