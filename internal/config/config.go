package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv   string `mapstructure:"APP_ENV" validate:"required,oneof=development test staging production"`
	HTTPAddr string `mapstructure:"HTTP_ADDR" validate:"required"`
	LogLevel string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER" validate:"required,oneof=postgres sqlite"`
	DatabaseURL    string `mapstructure:"DATABASE_URL" validate:"required"`
	UserStore      string `mapstructure:"USER_STORE" validate:"required,oneof=gorm mongo"`
	MongoURI       string `mapstructure:"MONGO_URI" validate:"required_if=UserStore mongo"`
	MongoDatabase  string `mapstructure:"MONGO_DATABASE" validate:"required_if=UserStore mongo"`

	RedisEnabled  bool   `mapstructure:"REDIS_ENABLED"`
	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required_if=RedisEnabled true"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB" validate:"gte=0"`

	JWTIssuer       string `mapstructure:"JWT_ISSUER" validate:"required"`
	JWTAudience     string `mapstructure:"JWT_AUDIENCE" validate:"required"`
	JWTAccessSecret string `mapstructure:"JWT_ACCESS_SECRET" validate:"required,min=32"`

	DeviceRetention          time.Duration `mapstructure:"DEVICE_RETENTION" validate:"gt=0"`
	CleanupInterval          time.Duration `mapstructure:"CLEANUP_INTERVAL" validate:"gt=0"`
	CleanupLeaseEnabled      bool          `mapstructure:"CLEANUP_LEASE_ENABLED"`
	CleanupLeaseTTL          time.Duration `mapstructure:"CLEANUP_LEASE_TTL" validate:"gt=0"`
	CourseAccessRateLimitRPM int           `mapstructure:"COURSE_ACCESS_RATE_LIMIT_RPM" validate:"gt=0"`

	OTELServiceName           string        `mapstructure:"OTEL_SERVICE_NAME" validate:"required"`
	OTELEnvironment           string        `mapstructure:"OTEL_ENVIRONMENT"`
	OTELExporterOTLPEndpoint  string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELExporterOTLPInsecure  bool          `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTELMetricsEnabled        bool          `mapstructure:"OTEL_METRICS_ENABLED"`
	OTELTracingEnabled        bool          `mapstructure:"OTEL_TRACING_ENABLED"`
	OTELLogsEnabled           bool          `mapstructure:"OTEL_LOGS_ENABLED"`
	OTELMetricsExportInterval time.Duration `mapstructure:"OTEL_METRICS_EXPORT_INTERVAL" validate:"gt=0"`
	OTELTraceSampleRatio      float64       `mapstructure:"OTEL_TRACE_SAMPLE_RATIO" validate:"gte=0,lte=1"`

	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

var defaults = map[string]any{
	"APP_ENV":                       "development",
	"HTTP_ADDR":                     ":8080",
	"LOG_LEVEL":                     "info",
	"DATABASE_DRIVER":               "sqlite",
	"DATABASE_URL":                  "file:deviceguard.db?cache=shared",
	"USER_STORE":                    "gorm",
	"MONGO_URI":                     "",
	"MONGO_DATABASE":                "",
	"REDIS_ENABLED":                 false,
	"REDIS_ADDR":                    "localhost:6379",
	"REDIS_PASSWORD":                "",
	"REDIS_DB":                      0,
	"JWT_ISSUER":                    "edupro",
	"JWT_AUDIENCE":                  "edupro-api",
	"JWT_ACCESS_SECRET":             "",
	"DEVICE_RETENTION":              30 * 24 * time.Hour,
	"CLEANUP_INTERVAL":              6 * time.Hour,
	"CLEANUP_LEASE_ENABLED":         false,
	"CLEANUP_LEASE_TTL":             30 * time.Minute,
	"COURSE_ACCESS_RATE_LIMIT_RPM":  120,
	"OTEL_SERVICE_NAME":             "edupro-device-guard",
	"OTEL_ENVIRONMENT":              "development",
	"OTEL_EXPORTER_OTLP_ENDPOINT":   "localhost:4317",
	"OTEL_EXPORTER_OTLP_INSECURE":   true,
	"OTEL_METRICS_ENABLED":          false,
	"OTEL_TRACING_ENABLED":          false,
	"OTEL_LOGS_ENABLED":             false,
	"OTEL_METRICS_EXPORT_INTERVAL":  15 * time.Second,
	"OTEL_TRACE_SAMPLE_RATIO":       1.0,
	"SHUTDOWN_TIMEOUT":              20 * time.Second,
}

// Load reads configuration from the process environment, an optional .env file (ENV_FILE,
// default ".env") and an optional config.yaml in the working directory or ./config.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := LoadEnvFile(envFile); err != nil {
		recordConfigValidationEvent(context.Background(), os.Getenv("APP_ENV"), "error", classifyConfigLoadError(err))
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	cfg, err := load(v)
	if err != nil {
		recordConfigValidationEvent(context.Background(), v.GetString("APP_ENV"), "error", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(context.Background(), cfg.AppEnv, "success", loadSucceeded)
	return cfg, nil
}

func load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// ruleError is a cross-field rule the struct tags cannot express.
type ruleError struct {
	key string
	msg string
}

func (e *ruleError) Error() string { return e.key + " " + e.msg }

// Validate reports failures by their environment key rather than the Go field name.
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
	if err := v.Struct(c); err != nil {
		return err
	}
	if c.CleanupLeaseEnabled && !c.RedisEnabled {
		return &ruleError{key: "CLEANUP_LEASE_ENABLED", msg: "requires REDIS_ENABLED"}
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// LoadEnvFile loads KEY=VALUE pairs from path without overriding variables that are already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open env file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("open env file: %s is a directory", path)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("read env file: %w", err)
	}
	return nil
}
