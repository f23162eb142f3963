package observability

import (
	"context"
	"errors"
	"net/http"
	"os"

	"intern-portal/backend/pkg/logger"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config selects exporters
type Config struct {
	ServiceName string
	// TraceStdout exports spans as JSON to stdout
	TraceStdout bool
}

// Telemetry bundles the tracer, meter and the scrape handler
type Telemetry struct {
	Tracer  trace.Tracer
	Meter   metric.Meter
	Metrics *ChatMetrics

	handler   http.Handler
	shutdowns []func(context.Context) error
}

// Setup installs global tracer and meter providers backed by the SDK and
// returns a Telemetry whose MetricsHandler serves the prometheus registry.
func Setup(cfg Config, log *logger.Logger) (*Telemetry, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName)),
	)
	if err != nil {
		return nil, err
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.TraceStdout {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
		if err != nil {
			return nil, err
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)

	reg := promclient.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter), sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)

	t := &Telemetry{
		Tracer:    tp.Tracer(cfg.ServiceName),
		Meter:     mp.Meter(cfg.ServiceName),
		handler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		shutdowns: []func(context.Context) error{mp.Shutdown, tp.Shutdown},
	}

	t.Metrics, err = NewChatMetrics(t.Meter)
	if err != nil {
		_ = t.Shutdown(context.Background())
		return nil, err
	}

	log.Info("Telemetry initialised", "service", cfg.ServiceName, "trace_stdout", cfg.TraceStdout)
	return t, nil
}

// MetricsHandler serves the prometheus exposition format
func (t *Telemetry) MetricsHandler() http.Handler {
	if t.handler == nil {
		return http.NotFoundHandler()
	}
	return t.handler
}

// Shutdown flushes and stops the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdowns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
