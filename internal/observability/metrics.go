package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// RPCCollector holds the server-side gRPC metrics and the catalog size gauge.
type RPCCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests      *prometheus.CounterVec
	RPCDurations     *prometheus.HistogramVec
	CatalogScenarios prometheus.Gauge
}

// NewRPCCollector registers the RPC metrics with reg, or with the default
// registry when reg is nil. Metrics already present in reg are reused.
func NewRPCCollector(reg prometheus.Registerer) (*RPCCollector, error) {
	reg, gatherer := resolveRegistry(reg)
	c := &RPCCollector{gatherer: gatherer}

	var err error
	if c.RPCRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_rpc_requests_total",
		Help: "Handled simulation RPCs by service, method and gRPC status code.",
	}, []string{"service", "method", "code"})); err != nil {
		return nil, err
	}
	// a Run RPC can integrate for minutes
	if c.RPCDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sim_rpc_request_duration_seconds",
		Help:    "Simulation RPC latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"service", "method"})); err != nil {
		return nil, err
	}
	if c.CatalogScenarios, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_scenarios",
		Help: "Scenarios currently held in the server catalog.",
	})); err != nil {
		return nil, err
	}
	return c, nil
}

// UnaryServerInterceptor counts and times every unary call by status code.
func (c *RPCCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if c != nil {
			c.observe(info, err, time.Since(start))
		}
		return resp, err
	}
}

func (c *RPCCollector) observe(info *grpc.UnaryServerInfo, err error, elapsed time.Duration) {
	var full string
	if info != nil {
		full = info.FullMethod
	}
	service, method := SplitMethod(full)
	if c.RPCRequests != nil {
		c.RPCRequests.WithLabelValues(service, method, status.Code(err).String()).Inc()
	}
	if c.RPCDurations != nil {
		c.RPCDurations.WithLabelValues(service, method).Observe(elapsed.Seconds())
	}
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *RPCCollector) Handler() http.Handler {
	g := c.gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// SetCatalogSize updates the catalog gauge.
func (c *RPCCollector) SetCatalogSize(n int) {
	if c != nil && c.CatalogScenarios != nil {
		c.CatalogScenarios.Set(float64(n))
	}
}

// SplitMethod turns "/pkg.Service/Method" into ("Service", "Method").
// Anything it cannot parse is reported as "unknown".
func SplitMethod(fullMethod string) (service, method string) {
	service, method = "unknown", "unknown"
	path := strings.TrimPrefix(fullMethod, "/")
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return service, method
	}
	svc, m := path[:i], path[i+1:]
	if j := strings.LastIndex(svc, "/"); j >= 0 {
		svc = svc[j+1:]
	}
	if j := strings.LastIndex(svc, "."); j >= 0 {
		svc = svc[j+1:]
	}
	if svc != "" {
		service = svc
	}
	if m != "" {
		method = m
	}
	return service, method
}

func resolveRegistry(reg prometheus.Registerer) (prometheus.Registerer, prometheus.Gatherer) {
	if reg == nil {
		return prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		return reg, g
	}
	return reg, prometheus.DefaultGatherer
}

// register adds c to reg. If an identical collector is already registered
// the existing one is returned so repeated construction shares series.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, err
	}
	existing, ok := are.ExistingCollector.(C)
	if !ok {
		return c, fmt.Errorf("metric already registered with a different type: %w", err)
	}
	return existing, nil
}
