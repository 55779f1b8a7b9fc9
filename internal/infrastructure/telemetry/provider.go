package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// LogSpanExporter writes finished spans to an hclog logger at debug level
type LogSpanExporter struct {
	logger hclog.Logger
}

func NewLogSpanExporter(logger hclog.Logger) *LogSpanExporter {
	return &LogSpanExporter{logger: logger.Named("trace")}
}

// ExportSpans logs each span on one line. It never fails.
func (e *LogSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if !e.logger.IsDebug() {
		return nil
	}
	for _, s := range spans {
		args := []interface{}{
			"span", s.Name(),
			"duration", s.EndTime().Sub(s.StartTime()),
			"status", s.Status().Code.String(),
		}
		if desc := s.Status().Description; desc != "" {
			args = append(args, "status_message", desc)
		}
		for _, kv := range s.Attributes() {
			args = append(args, string(kv.Key), kv.Value.Emit())
		}
		e.logger.Debug("span finished", args...)
	}
	return nil
}

func (e *LogSpanExporter) Shutdown(ctx context.Context) error { return nil }

// Providers owns the SDK tracer and meter providers of one process
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider

	reader *sdkmetric.ManualReader
	logger hclog.Logger
}

// NewProviders creates providers that report through logger
func NewProviders(logger hclog.Logger, serviceVersion string) *Providers {
	res := resource.NewSchemaless(
		semconv.ServiceNameKey.String("km-plugins"),
		semconv.ServiceVersionKey.String(serviceVersion),
	)

	reader := sdkmetric.NewManualReader()
	return &Providers{
		Tracer: sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(NewLogSpanExporter(logger))),
			sdktrace.WithResource(res),
		),
		Meter: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(reader),
			sdkmetric.WithResource(res),
		),
		reader: reader,
		logger: logger.Named("metrics"),
	}
}

// Telemetry returns instruments backed by these providers
func (p *Providers) Telemetry() *Telemetry {
	return New(p.Tracer, p.Meter)
}

// CounterTotals collects every int64 counter, keyed by name and encoded attributes
func (p *Providers) CounterTotals(ctx context.Context) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("failed to collect metrics: %w", err)
	}

	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				key := m.Name
				if enc := dp.Attributes.Encoded(attribute.DefaultEncoder()); enc != "" {
					key += "{" + enc + "}"
				}
				totals[key] += dp.Value
			}
		}
	}
	return totals, nil
}

// LogCounters writes the counter totals at debug level
func (p *Providers) LogCounters(ctx context.Context) {
	if !p.logger.IsDebug() {
		return
	}
	totals, err := p.CounterTotals(ctx)
	if err != nil {
		p.logger.Warn("could not collect metrics", "error", err)
		return
	}
	for name, v := range totals {
		p.logger.Debug("counter", "name", name, "value", v)
	}
}

// Shutdown flushes and stops both providers
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(p.Tracer.Shutdown(ctx), p.Meter.Shutdown(ctx))
}
