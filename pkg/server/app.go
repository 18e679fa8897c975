package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"MarketLab/internal/domain/repository"
	pkgcache "MarketLab/pkg/cache"
	"MarketLab/pkg/config"
	xhttp "MarketLab/pkg/http"
	applogger "MarketLab/pkg/logger"
)

// App encapsulates the application lifecycle: HTTP serving plus orderly
// shutdown of the entry cache, durable store and event publisher.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	handler    xhttp.Handler
	httpServer *xhttp.Server

	entries pkgcache.Service
	bars    repository.BarStore
	events  repository.EventPublisher
}

// New creates an App with all dependencies injected.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	entries pkgcache.Service,
	bars repository.BarStore,
	events repository.EventPublisher,
) *App {
	return &App{
		cfg:     cfg,
		log:     log,
		handler: handler,
		entries: entries,
		bars:    bars,
		events:  events,
	}
}

// Run starts the HTTP server and blocks until an interrupt or termination
// signal arrives, then shuts down within the configured timeout.
func (a *App) Run() error {
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(a.cfg.Metrics.Path),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("server started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("env", a.cfg.Environment))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http server stop error", applogger.Error(err))
	}
	if err := a.events.Close(); err != nil {
		a.log.Error("event publisher close error", applogger.Error(err))
	}
	if err := a.entries.Close(); err != nil {
		a.log.Error("entry cache close error", applogger.Error(err))
	}
	if err := a.bars.Close(); err != nil {
		a.log.Error("bar store close error", applogger.Error(err))
	}
	a.log.Info("shutdown complete")
	return nil
}
