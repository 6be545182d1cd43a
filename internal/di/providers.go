package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"

	"github.com/sandeepkv93/edupro-device-guard/internal/app"
	"github.com/sandeepkv93/edupro-device-guard/internal/config"
	"github.com/sandeepkv93/edupro-device-guard/internal/database"
	"github.com/sandeepkv93/edupro-device-guard/internal/health"
	"github.com/sandeepkv93/edupro-device-guard/internal/http/handler"
	"github.com/sandeepkv93/edupro-device-guard/internal/http/router"
	"github.com/sandeepkv93/edupro-device-guard/internal/observability"
	"github.com/sandeepkv93/edupro-device-guard/internal/repository"
	"github.com/sandeepkv93/edupro-device-guard/internal/security"
	"github.com/sandeepkv93/edupro-device-guard/internal/service"
)

// Container exposes the pieces the CLI commands drive directly.
type Container struct {
	App        *app.App
	Logger     *slog.Logger
	DB         *gorm.DB
	Devices    repository.DeviceRepository
	Violations *service.ViolationService
	Scheduler  *service.CleanupScheduler
}

func provideContainer(
	a *app.App,
	logger *slog.Logger,
	db *gorm.DB,
	devices repository.DeviceRepository,
	violations *service.ViolationService,
	scheduler *service.CleanupScheduler,
) *Container {
	return &Container{App: a, Logger: logger, DB: db, Devices: devices, Violations: violations, Scheduler: scheduler}
}

func provideObservability(ctx context.Context, cfg *config.Config) (*observability.Runtime, func(), error) {
	rt, err := observability.InitRuntime(ctx, cfg, slog.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("init observability: %w", err)
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Shutdown(shutdownCtx); err != nil {
			slog.Default().Warn("observability shutdown failed", "error", err)
		}
	}
	return rt, cleanup, nil
}

func provideLogger(cfg *config.Config, rt *observability.Runtime) *slog.Logger {
	logger := observability.NewLogger(os.Stdout, cfg.LogLevel, rt.LoggerProvider)
	slog.SetDefault(logger)
	return logger
}

func provideDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, func(), error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db, logger); err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

// provideRedis returns a nil client when Redis is disabled.
func provideRedis(ctx context.Context, cfg *config.Config) (redis.UniversalClient, func(), error) {
	if !cfg.RedisEnabled {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// provideMongo returns a nil database unless users and courses live in MongoDB.
func provideMongo(ctx context.Context, cfg *config.Config) (*mongo.Database, func(), error) {
	if cfg.UserStore != "mongo" {
		return nil, func() {}, nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	mdb := client.Database(cfg.MongoDatabase)
	if err := repository.EnsureMongoIndexes(connectCtx, mdb); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	cleanup := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}
	return mdb, cleanup, nil
}

func provideUserRepository(db *gorm.DB, mdb *mongo.Database) repository.UserRepository {
	if mdb != nil {
		return repository.NewMongoUserRepository(mdb)
	}
	return repository.NewUserRepository(db)
}

func provideCourseRepository(db *gorm.DB, mdb *mongo.Database) repository.CourseRepository {
	if mdb != nil {
		return repository.NewMongoCourseRepository(mdb)
	}
	return repository.NewCourseRepository(db)
}

func provideDeviceService(
	cfg *config.Config,
	devices repository.DeviceRepository,
	courses repository.CourseRepository,
	detector *service.ViolationDetector,
	logger *slog.Logger,
) *service.DeviceService {
	return service.NewDeviceService(devices, courses, detector, cfg.DeviceRetention, logger)
}

func provideCleanupLease(cfg *config.Config, client redis.UniversalClient) service.CleanupLease {
	if cfg.CleanupLeaseEnabled && client != nil {
		return service.NewRedisCleanupLease(client, "")
	}
	return service.NewNoopCleanupLease()
}

func provideCleanupScheduler(
	cfg *config.Config,
	devices *service.DeviceService,
	lease service.CleanupLease,
	logger *slog.Logger,
) *service.CleanupScheduler {
	return service.NewCleanupScheduler(devices, lease, cfg.CleanupInterval, cfg.CleanupLeaseTTL, logger)
}

func provideValidator() *validator.Validate {
	return validator.New()
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret)
}

func provideReadiness(db *gorm.DB, client redis.UniversalClient, mdb *mongo.Database) *health.ProbeRunner {
	checkers := []health.Checker{health.DatabaseChecker(db)}
	if client != nil {
		checkers = append(checkers, health.RedisChecker(client))
	}
	if mdb != nil {
		checkers = append(checkers, health.MongoChecker(mdb.Client()))
	}
	return health.NewProbeRunner(2*time.Second, checkers...)
}

func provideRouter(
	cfg *config.Config,
	logger *slog.Logger,
	deviceHandler *handler.DeviceHandler,
	violationHandler *handler.ViolationHandler,
	cleanupHandler *handler.CleanupHandler,
	devices *service.DeviceService,
	jwtMgr *security.JWTManager,
	readiness *health.ProbeRunner,
) http.Handler {
	return router.NewRouter(router.Dependencies{
		DeviceHandler:            deviceHandler,
		ViolationHandler:         violationHandler,
		CleanupHandler:           cleanupHandler,
		DeviceRegistrar:          devices,
		JWTManager:               jwtMgr,
		Readiness:                readiness,
		Logger:                   logger,
		CourseAccessRateLimitRPM: cfg.CourseAccessRateLimitRPM,
		EnableOTelHTTP:           cfg.OTELTracingEnabled || cfg.OTELMetricsEnabled,
	})
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
