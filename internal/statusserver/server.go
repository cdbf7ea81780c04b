// Package statusserver exposes the running pushers over HTTP.
package statusserver

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/aaronromeo/imappush/internal/push"
)

const (
	localsPusher   = "pusher"
	localsActivity = "activity"
)

// Pusher is the part of push.Pusher the server drives.
type Pusher interface {
	Folders() []push.FolderStatus
	Refresh()
	RefreshFolder(name string) error
	LastRefresh() time.Time
}

// Activity reports what the receiver has seen per folder.
type Activity interface {
	Active(folder string) bool
	LastSync(folder string) (time.Time, bool)
}

type Server struct {
	app *fiber.App
	log *slog.Logger
}

type Option func(*settings)

type settings struct {
	log            *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

func WithLogger(log *slog.Logger) Option {
	return func(s *settings) {
		s.log = log
	}
}

// WithTelemetry instruments every request with otelfiber.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(s *settings) {
		s.tracerProvider = tp
		s.meterProvider = mp
	}
}

func New(pusher Pusher, activity Activity, opts ...Option) *Server {
	cfg := settings{log: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "imappush",
	})
	if cfg.tracerProvider != nil || cfg.meterProvider != nil {
		var mwOpts []otelfiber.Option
		if cfg.tracerProvider != nil {
			mwOpts = append(mwOpts, otelfiber.WithTracerProvider(cfg.tracerProvider))
		}
		if cfg.meterProvider != nil {
			mwOpts = append(mwOpts, otelfiber.WithMeterProvider(cfg.meterProvider))
		}
		app.Use(otelfiber.Middleware(mwOpts...))
	}
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(localsPusher, pusher)
		c.Locals(localsActivity, activity)
		return c.Next()
	})

	app.Get("/healthz", Health)
	app.Get("/folders", Folders)
	app.Post("/refresh", Refresh)
	app.Post("/folders/:name/refresh", RefreshFolder)

	return &Server{app: app, log: cfg.log}
}

// App is the underlying fiber app, mostly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Status server listening", "addr", addr)
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}
