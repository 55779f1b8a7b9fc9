package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "kilometers.ai/pluginrepo"

// Telemetry bundles the tracer and counters used by the update core.
// A nil *Telemetry is valid and records nothing.
type Telemetry struct {
	tracer    trace.Tracer
	installs  metric.Int64Counter
	updates   metric.Int64Counter
	cleanups  metric.Int64Counter
	refreshes metric.Int64Counter
}

// New creates instruments from the given providers. Counter creation failures
// leave that counter unset.
func New(tp trace.TracerProvider, mp metric.MeterProvider) *Telemetry {
	meter := mp.Meter(instrumentationName)
	t := &Telemetry{tracer: tp.Tracer(instrumentationName)}

	t.installs, _ = meter.Int64Counter("pluginrepo.installs",
		metric.WithDescription("Plugin installations attempted"), metric.WithUnit("1"))
	t.updates, _ = meter.Int64Counter("pluginrepo.updates",
		metric.WithDescription("Plugin updates resolved by update passes"), metric.WithUnit("1"))
	t.cleanups, _ = meter.Int64Counter("pluginrepo.cleanups",
		metric.WithDescription("Version directories removed by cleanup"), metric.WithUnit("1"))
	t.refreshes, _ = meter.Int64Counter("pluginrepo.refreshes",
		metric.WithDescription("Catalog refreshes by final state"), metric.WithUnit("1"))
	return t
}

// Start opens a span; with a nil receiver it returns a non-recording span
func (t *Telemetry) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// End finishes a span and records err as its status
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (t *Telemetry) RecordInstall(ctx context.Context, plugin string, ok bool) {
	if t == nil || t.installs == nil {
		return
	}
	t.installs.Add(ctx, 1, metric.WithAttributes(attribute.String("plugin", plugin), attribute.Bool("success", ok)))
}

func (t *Telemetry) RecordUpdate(ctx context.Context, plugin, channel string, dryRun bool) {
	if t == nil || t.updates == nil {
		return
	}
	t.updates.Add(ctx, 1, metric.WithAttributes(
		attribute.String("plugin", plugin),
		attribute.String("channel", channel),
		attribute.Bool("dry_run", dryRun),
	))
}

func (t *Telemetry) RecordCleanup(ctx context.Context, plugin, reason string) {
	if t == nil || t.cleanups == nil {
		return
	}
	t.cleanups.Add(ctx, 1, metric.WithAttributes(attribute.String("plugin", plugin), attribute.String("reason", reason)))
}

func (t *Telemetry) RecordRefresh(ctx context.Context, state string) {
	if t == nil || t.refreshes == nil {
		return
	}
	t.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}
