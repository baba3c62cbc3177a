package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"golang.org/x/sync/errgroup"
)

type Client struct {
	log *slog.Logger

	tracerProvider *trace.TracerProvider
	metricProvider *metric.MeterProvider
	loggerProvider *log.LoggerProvider
}

func (client *Client) Flush(ctx context.Context) error {
	if client == nil {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	if client.metricProvider != nil {
		g.Go(func() error {
			return client.metricProvider.ForceFlush(ctx)
		})
	}
	if client.loggerProvider != nil {
		g.Go(func() error {
			return client.loggerProvider.ForceFlush(ctx)
		})
	}
	if client.tracerProvider != nil {
		g.Go(func() error {
			return client.tracerProvider.ForceFlush(ctx)
		})
	}
	return g.Wait()
}

// Shutdown flushes and stops all providers. Logging falls back to logrus only.
func (client *Client) Shutdown(ctx context.Context) error {
	if client == nil {
		return nil
	}

	var errs []error
	if client.metricProvider != nil {
		errs = append(errs, client.metricProvider.Shutdown(ctx))
	}
	if client.tracerProvider != nil {
		errs = append(errs, client.tracerProvider.Shutdown(ctx))
	}
	if client.loggerProvider != nil {
		SetupLogging(nil)
		errs = append(errs, client.loggerProvider.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		client.log.ErrorContext(ctx, "error shutting down telemetry", "error", err.Error())
		return err
	}
	return nil
}

// Setup exports metrics, traces and logs over otlp/http to endpoint. An empty
// endpoint disables telemetry and returns a nil client, which is safe to use.
func Setup(ctx context.Context, appName, command, endpoint string) (*Client, error) {
	if endpoint == "" {
		return nil, nil
	}

	client := &Client{
		log: slog.With("component", "telemetry"),
	}
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(cause error) {
		client.log.ErrorContext(ctx, "otel error", "error", cause.Error())
	}))

	r, err := newResource(appName, command)
	if err != nil {
		return nil, err
	}

	if client.metricProvider, err = newMeterProvider(ctx, r, endpoint); err != nil {
		return nil, err
	}
	otel.SetMeterProvider(client.metricProvider)
	client.log.InfoContext(ctx, "metrics provider initialized")

	if client.tracerProvider, err = newTracerProvider(ctx, r, endpoint); err != nil {
		return nil, err
	}
	otel.SetTracerProvider(client.tracerProvider)
	client.log.InfoContext(ctx, "tracing provider initialized")

	if client.loggerProvider, err = newLoggerProvider(ctx, r, endpoint); err != nil {
		return nil, err
	}
	SetupLogging(client.loggerProvider)
	// recreate telemetry logger on top of the new default handler
	client.log = slog.With("component", "telemetry")
	client.log.InfoContext(ctx, "logger provider initialized")

	runs, err := otel.Meter(appName+"/telemetry").Int64Counter("runs_total")
	if err != nil {
		return nil, err
	}
	runs.Add(ctx, 1)

	return client, nil
}

func newResource(appName, command string) (*resource.Resource, error) {
	hostName, _ := os.Hostname()

	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(appName),
			semconv.HostName(hostName),
			semconv.ServiceInstanceID(uuid.NewString()),
			attribute.String("polyreduce.command", command),
		),
	)
}

func newMeterProvider(ctx context.Context, r *resource.Resource, endpoint string) (*metric.MeterProvider, error) {
	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithRetry(otlpmetrichttp.RetryConfig{Enabled: false}),
	)
	if err != nil {
		return nil, err
	}
	return metric.NewMeterProvider(
		metric.WithResource(r),
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(10*time.Second))),
	), nil
}

func newTracerProvider(ctx context.Context, r *resource.Resource, endpoint string) (*trace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{Enabled: false}),
	)
	if err != nil {
		return nil, err
	}
	return trace.NewTracerProvider(
		trace.WithResource(r),
		trace.WithBatcher(exporter, trace.WithExportTimeout(time.Second)),
	), nil
}

func newLoggerProvider(ctx context.Context, r *resource.Resource, endpoint string) (*log.LoggerProvider, error) {
	exporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpoint(endpoint),
		otlploghttp.WithRetry(otlploghttp.RetryConfig{Enabled: false}),
	)
	if err != nil {
		return nil, err
	}
	return log.NewLoggerProvider(
		log.WithResource(r),
		log.WithProcessor(log.NewBatchProcessor(exporter, log.WithExportInterval(time.Second))),
	), nil
}
