package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sandeepkv93/edupro-device-guard/internal/config"

	"golang.org/x/sync/errgroup"
)

// BackgroundTask is anything the app starts alongside the HTTP server and stops on shutdown.
type BackgroundTask interface {
	Start()
	Stop()
}

type App struct {
	Config          *config.Config
	Logger          *slog.Logger
	Server          *http.Server
	Background      BackgroundTask
	ShutdownTimeout time.Duration
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	background BackgroundTask,
) *App {
	return &App{
		Config:          cfg,
		Logger:          logger,
		Server:          server,
		Background:      background,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Run serves until ctx is cancelled or the server fails, then drains in-flight requests and
// stops background work.
func (a *App) Run(ctx context.Context) error {
	if a.Background != nil {
		a.Background.Start()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})
	return g.Wait()
}

func (a *App) shutdown() error {
	timeout := a.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.Logger.Info("shutting down")
	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if a.Background != nil {
		a.Background.Stop()
	}
	return errors.Join(errs...)
}
