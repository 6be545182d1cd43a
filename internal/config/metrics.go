package config

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	configMetricsOnce sync.Once
	configCounter     metric.Int64Counter
)

// loadFailure describes why Load failed in low-cardinality terms: a class and, for validation
// failures, the first offending key.
type loadFailure struct {
	class string
	key   string
}

var loadSucceeded = loadFailure{class: "none"}

func recordConfigValidationEvent(ctx context.Context, env, outcome string, failure loadFailure) {
	configMetricsOnce.Do(func() {
		counter, err := otel.Meter("edupro-device-guard").Int64Counter(
			"config.validation.events",
			metric.WithDescription("Configuration load attempts by outcome"),
		)
		if err == nil {
			configCounter = counter
		}
	})
	if configCounter == nil {
		return
	}
	configCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("env", normalizeConfigEnv(env)),
		attribute.String("outcome", outcome),
		attribute.String("error_class", failure.class),
		attribute.String("config_key", failure.key),
	))
}

func normalizeConfigEnv(env string) string {
	v := strings.TrimSpace(strings.ToLower(env))
	if v == "" {
		return "unknown"
	}
	return v
}

func classifyConfigLoadError(err error) loadFailure {
	if err == nil {
		return loadSucceeded
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return loadFailure{class: "validation", key: verrs[0].Field()}
	}
	var rule *ruleError
	if errors.As(err, &rule) {
		return loadFailure{class: "validation", key: rule.key}
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "validate config:"):
		return loadFailure{class: "validation"}
	case strings.Contains(msg, "env file:"):
		return loadFailure{class: "env_file"}
	case strings.Contains(msg, "parse "):
		return loadFailure{class: "parse"}
	default:
		return loadFailure{class: "load"}
	}
}
