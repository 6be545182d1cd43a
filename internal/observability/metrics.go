package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sandeepkv93/edupro-device-guard/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const instrumentationName = "edupro-device-guard"

type AppMetrics struct {
	repositoryOps       metric.Int64Counter
	deviceRegistrations metric.Int64Counter
	violationEvents     metric.Int64Counter
	violationReviews    metric.Int64Counter
	cleanupRuns         metric.Int64Counter
	cleanupDeactivated  metric.Int64Counter
	accessTokenChecks   metric.Int64Counter
	rateLimitDecisions  metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var (
		m   AppMetrics
		err error
	)
	counters := []struct {
		name string
		dst  *metric.Int64Counter
	}{
		{"repository.operations", &m.repositoryOps},
		{"device.registrations", &m.deviceRegistrations},
		{"violation.case.events", &m.violationEvents},
		{"violation.reviews", &m.violationReviews},
		{"device.cleanup.runs", &m.cleanupRuns},
		{"device.cleanup.deactivated", &m.cleanupDeactivated},
		{"auth.access_token.validations", &m.accessTokenChecks},
		{"http.rate_limit.decisions", &m.rateLimitDecisions},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name)
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
	}
	return &m, nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.repositoryOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// RecordDeviceRegistration outcome is one of new, refreshed, blocked, error.
func RecordDeviceRegistration(ctx context.Context, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.deviceRegistrations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordViolationEvent(ctx context.Context, event, severity string) {
	m := current()
	if m == nil {
		return
	}
	m.violationEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("severity", severity),
	))
}

func RecordViolationReview(ctx context.Context, action, status string) {
	m := current()
	if m == nil {
		return
	}
	m.violationReviews.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("status", status),
	))
}

func RecordCleanupRun(ctx context.Context, trigger, outcome string, deactivated int64) {
	m := current()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("trigger", trigger), attribute.String("outcome", outcome))
	m.cleanupRuns.Add(ctx, 1, attrs)
	if deactivated > 0 {
		m.cleanupDeactivated.Add(ctx, deactivated, metric.WithAttributes(attribute.String("trigger", trigger)))
	}
}

func RecordAccessTokenValidation(ctx context.Context, outcome, source string) {
	m := current()
	if m == nil {
		return
	}
	m.accessTokenChecks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("source", source),
	))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.rateLimitDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
	))
}
