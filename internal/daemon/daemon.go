package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quill-writing/quill/internal/api"
	"github.com/quill-writing/quill/internal/app/engagement"
	"github.com/quill-writing/quill/internal/health"
	"github.com/quill-writing/quill/internal/infra/redisstore"
	"github.com/quill-writing/quill/internal/infra/sqlite"
)

var log = logrus.WithField("component", "daemon")

// Store is a progress backend the daemon can own.
type Store interface {
	health.Store
	Close() error
}

// Daemon is the core Quill runtime. It wires together all services.
type Daemon struct {
	Config  Config
	Store   Store
	Engine  *engagement.Engine
	Session *engagement.Session
	Server  *api.Server
	Health  *health.Checker

	closeLog func() error
	cancel   context.CancelFunc
}

// New creates and initializes a Daemon from the on-disk configuration.
func New(ctx context.Context) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(ctx, cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(ctx context.Context, cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	closeLog, err := SetupLogging(cfg.Logging)
	if err != nil {
		return nil, err
	}
	loc, _ := cfg.Location()

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("open store: %w", err)
	}

	engine := engagement.NewEngine(store, engagement.Options{
		Slot:     cfg.Storage.Slot,
		UserID:   cfg.User.ID,
		Location: loc,
		Logger:   logrus.WithField("component", "engine"),
	})
	session, err := engagement.OpenSession(ctx, engine, cfg.Engagement.ActivityThresholdChars)
	if err != nil {
		store.Close()
		closeLog()
		return nil, err
	}

	srv := api.NewServer(session)
	srv.SetCORSOrigins(cfg.API.CORSOrigins)

	// Enable Prometheus /metrics if configured
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	if cfg.Engagement.Debug {
		srv.EnableDebug()
		log.Warn("debug mode: DELETE /api/progress is enabled")
	}

	checker := health.NewChecker(store, cfg.Storage.Slot, cfg.Storage.Dir)
	srv.SetHealth(checker)

	return &Daemon{
		Config:   cfg,
		Store:    store,
		Engine:   engine,
		Session:  session,
		Server:   srv,
		Health:   checker,
		closeLog: closeLog,
	}, nil
}

// OpenStore opens the configured storage backend.
func OpenStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Storage.Backend {
	case BackendRedis:
		rs, err := redisstore.Connect(ctx, redisstore.Options{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			MaxRetries: cfg.Redis.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		return rs, nil
	case BackendSQLite, "":
		dir := cfg.Storage.Dir
		if dir == "" {
			dir = quillHome()
		}
		db, err := sqlite.Open(dir)
		if err != nil {
			return nil, err
		}
		log.WithField("path", db.Path()).Debug("sqlite store opened")
		return db, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// Serve starts the HTTP server and blocks until shutdown. The daemon is
// closed when Serve returns, whether or not the listener came up.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	defer d.Close()

	// Health checker (always runs)
	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			log.Info("shutdown signal received")
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Quill serving on http://%s\n", addr)
	fmt.Printf("  Storage: %s (slot %s)\n", d.Config.Storage.Backend, d.Config.Storage.Slot)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			log.WithError(err).Warn("closing store")
		}
		d.Store = nil
	}
	if d.closeLog != nil {
		_ = d.closeLog()
		d.closeLog = nil
	}
}
