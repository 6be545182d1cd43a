//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/sandeepkv93/edupro-device-guard/internal/app"
	"github.com/sandeepkv93/edupro-device-guard/internal/config"
	"github.com/sandeepkv93/edupro-device-guard/internal/http/handler"
	"github.com/sandeepkv93/edupro-device-guard/internal/repository"
	"github.com/sandeepkv93/edupro-device-guard/internal/service"
)

var infraSet = wire.NewSet(
	provideObservability,
	provideLogger,
	provideDB,
	provideRedis,
	provideMongo,
)

var repositorySet = wire.NewSet(
	repository.NewDeviceRepository,
	repository.NewViolationRepository,
	provideUserRepository,
	provideCourseRepository,
)

var serviceSet = wire.NewSet(
	service.NewViolationDetector,
	provideDeviceService,
	service.NewViolationService,
	provideCleanupLease,
	provideCleanupScheduler,
	wire.Bind(new(service.DeviceServiceInterface), new(*service.DeviceService)),
	wire.Bind(new(service.ViolationServiceInterface), new(*service.ViolationService)),
	wire.Bind(new(service.CleanupRunner), new(*service.CleanupScheduler)),
	wire.Bind(new(app.BackgroundTask), new(*service.CleanupScheduler)),
)

var httpSet = wire.NewSet(
	provideValidator,
	provideJWTManager,
	provideReadiness,
	handler.NewDeviceHandler,
	handler.NewViolationHandler,
	handler.NewCleanupHandler,
	provideRouter,
	provideHTTPServer,
)

func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(
		infraSet,
		repositorySet,
		serviceSet,
		httpSet,
		app.New,
		provideContainer,
	)
	return nil, nil, nil
}
