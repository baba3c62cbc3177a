package server

import (
	"context"
	"fmt"
	"os"

	"github.com/royalcat/polyreduce/internal/telemetry"
	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	logglobal "go.opentelemetry.io/otel/log/global"
	logsdk "go.opentelemetry.io/otel/sdk/log"
	meticsdk "go.opentelemetry.io/otel/sdk/metric"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
)

func setEnvIfNotSet(key, value string) {
	if _, ok := os.LookupEnv(key); !ok {
		os.Setenv(key, value)
	}
}

// setupTelemetry exposes metrics for prometheus and leaves the otlp
// exporters to the standard OTEL_* environment variables.
func setupTelemetry(ctx context.Context) error {
	// autoexport defaults to an otlp exporter on localhost
	setEnvIfNotSet("OTEL_TRACES_EXPORTER", "none")
	setEnvIfNotSet("OTEL_LOGS_EXPORTER", "none")
	setEnvIfNotSet("OTEL_METRICS_EXPORTER", "none")

	promExporter, err := prometheus.New(prometheus.WithNamespace("polyreduce"))
	if err != nil {
		return fmt.Errorf("failed to initialize prometheus exporter: %w", err)
	}
	metricExporter, err := autoexport.NewMetricReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize metric exporter: %w", err)
	}
	otel.SetMeterProvider(meticsdk.NewMeterProvider(
		meticsdk.WithReader(promExporter),
		meticsdk.WithReader(metricExporter),
	))

	spanExporter, err := autoexport.NewSpanExporter(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize trace exporter: %w", err)
	}
	otel.SetTracerProvider(tracesdk.NewTracerProvider(tracesdk.WithBatcher(spanExporter)))

	logsExporter, err := autoexport.NewLogExporter(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize log exporter: %w", err)
	}
	logsProvider := logsdk.NewLoggerProvider(logsdk.WithProcessor(logsdk.NewBatchProcessor(logsExporter)))
	logglobal.SetLoggerProvider(logsProvider)

	telemetry.SetupLogging(logsProvider)

	return nil
}
