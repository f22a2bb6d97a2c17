package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/readgarden/readgarden/internal/api"
	"github.com/readgarden/readgarden/internal/app/garden"
	"github.com/readgarden/readgarden/internal/app/goals"
	"github.com/readgarden/readgarden/internal/app/library"
	"github.com/readgarden/readgarden/internal/app/progression"
	"github.com/readgarden/readgarden/internal/domain"
	"github.com/readgarden/readgarden/internal/health"
	"github.com/readgarden/readgarden/internal/infra/sqlite"
)

// Daemon is the readgarden runtime. It wires together all services.
type Daemon struct {
	Config Config
	Log    *zap.Logger
	DB     *sqlite.DB
	Cache  *progression.ProgressCache

	Engine  *progression.Engine
	Goals   *goals.Service
	Garden  *garden.Service
	Library *library.Service
	Health  *health.Checker
	Server  *api.Server

	cancel context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	dir := cfg.Storage.Dir
	if dir == "" {
		dir = readgardenHome()
	}
	db, err := sqlite.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	clock := domain.SystemClock{}
	cache := progression.NewProgressCache(parseDuration(cfg.Progression.CacheTTL, progression.DefaultCacheTTL))

	d := &Daemon{
		Config: cfg,
		Log:    logger,
		DB:     db,
		Cache:  cache,
	}

	d.Engine = progression.NewEngine(db, db, db, progression.Config{
		Table:  cfg.Progression.XPTable,
		Cache:  cache,
		Clock:  clock,
		Logger: logger,
		OnLevelUp: func(r domain.ProgressionResult) {
			logger.Info("level up",
				zap.Int("from", r.LevelUp.OldLevel),
				zap.Int("to", r.LevelUp.NewLevel),
				zap.Int64("coins", r.LevelUp.CoinsAwarded))
		},
	})
	d.Goals = goals.NewService(db, db, clock, logger)
	d.Garden = garden.NewService(db, cache, clock, logger)
	d.Library = library.NewService(db, clock)

	// The periodic pass also sweeps plant health and goal completion, so
	// both stay current while nobody is calling the API.
	d.Health = health.NewChecker(db, sqlite.LatestSchema,
		parseDuration(cfg.Progression.HealthCheckInterval, health.DefaultInterval), logger,
		health.Check{
			Name: "garden",
			CheckFn: func(ctx context.Context) error {
				_, err := d.Garden.List(ctx)
				return err
			},
		},
		health.Check{
			Name: "goals",
			CheckFn: func(ctx context.Context) error {
				_, err := d.Goals.Refresh(ctx)
				return err
			},
		},
	)

	srv := api.NewServer(api.Services{
		Engine:  d.Engine,
		Goals:   d.Goals,
		Garden:  d.Garden,
		Library: d.Library,
		Health:  d.Health,
	}, logger)
	srv.SetTimeout(parseDuration(cfg.API.RequestTimeout, 30*time.Second))
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	d.Server = srv

	return d, nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		d.Log.Info("shutting down")
		cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	d.Log.Info("readgarden serving",
		zap.String("addr", "http://"+addr),
		zap.Bool("metrics", d.Config.Telemetry.Prometheus))

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
	if d.Log != nil {
		_ = d.Log.Sync()
	}
}
