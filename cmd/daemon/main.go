package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/tbleher/niandra-go/internal/config"
	"github.com/tbleher/niandra-go/internal/domain"
	"github.com/tbleher/niandra-go/internal/engine"
	"github.com/tbleher/niandra-go/internal/listening"
	"github.com/tbleher/niandra-go/internal/mpris"
	"github.com/tbleher/niandra-go/internal/registry"
	"github.com/tbleher/niandra-go/internal/sink"
)

// AppOptions defines the application's dependency graph. Exporting it lets
// us validate the graph in tests without actually running the daemon.
var AppOptions = fx.Options(
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),

	fx.Provide(
		newLogger,
		config.NewAppConfig,
		provideTrackingConfig,
		providePlayerConfig,
		provideAdmissionFilter,
		registry.New,
		fx.Annotate(
			newSink,
			fx.As(new(domain.Sink)),
		),
		fx.Annotate(
			listening.NewExecProber,
			fx.As(new(domain.ContextProber)),
		),
		fx.Annotate(
			mpris.NewAdapter,
			fx.As(new(domain.BusAdapter)),
		),
		engine.New,
	),

	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(AppOptions)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		panic(err)
	}

	<-ctx.Done()

	if err := app.Stop(context.Background()); err != nil {
		panic(err)
	}
}

// newLogger creates a new zap logger instance.
func newLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

// provideTrackingConfig extracts the sub-config most components depend on,
// so they don't all need *config.AppConfig in their constructor signature.
func provideTrackingConfig(cfg *config.AppConfig) config.TrackingConfig {
	return cfg.Tracking
}

func providePlayerConfig(cfg *config.AppConfig) config.PlayerConfig {
	return cfg.Player
}

func provideAdmissionFilter(cfg *config.AppConfig) registry.AdmissionFilter {
	return registry.AdmissionFilter{
		Whitelist: cfg.Tracking.Whitelist,
		Blacklist: cfg.Tracking.Blacklist,
	}
}

// newSink opens the SQLite-backed play log named by configuration.
func newSink(cfg *config.AppConfig) (*sink.SQLiteSink, error) {
	return sink.NewSQLiteSink(cfg.Database.Path)
}

// registerHooks wires the Engine into fx's lifecycle.
func registerHooks(lc fx.Lifecycle, logger *zap.Logger, eng *engine.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting niandra daemon")
			return eng.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down niandra daemon")
			return eng.Stop(ctx)
		},
	})
}
