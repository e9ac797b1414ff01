package control

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/vietddude/guardrail/internal/boundary"
	"github.com/vietddude/guardrail/internal/core/config"
	"github.com/vietddude/guardrail/internal/core/domain"
	"github.com/vietddude/guardrail/internal/core/worker"
	"github.com/vietddude/guardrail/internal/events"
	"github.com/vietddude/guardrail/internal/faultlog"
	"github.com/vietddude/guardrail/internal/health"
	redisclient "github.com/vietddude/guardrail/internal/infra/redis"
	"github.com/vietddude/guardrail/internal/infra/storage/memory"
	"github.com/vietddude/guardrail/internal/infra/storage/postgres"
	"github.com/vietddude/guardrail/internal/preserve"
	"github.com/vietddude/guardrail/internal/report"
	"github.com/vietddude/guardrail/internal/restore"

	"github.com/pressly/goose/v3"
)

// App is the main application struct that wires storage, fault logging,
// reporting and the boundary registry together and manages their lifecycle.
type App struct {
	cfg          *config.AppConfig
	store        preserve.Store
	logger       *faultlog.Logger
	monitor      *report.Monitor
	bus          *events.Broadcaster
	boundaries   map[string]*boundary.Boundary
	healthServer *health.Server
	redisClient  *redisclient.Client
	db           *postgres.DB
	pruner       *worker.Pruner
	log          *slog.Logger

	restartOnce sync.Once
	restartCh   chan struct{}
}

// NewApp creates a new App instance with all dependencies initialized.
func NewApp(cfg *config.AppConfig) (*App, error) {
	a := &App{
		cfg:        cfg,
		bus:        events.NewBroadcaster(),
		boundaries: make(map[string]*boundary.Boundary),
		log:        slog.Default(),
		restartCh:  make(chan struct{}),
	}

	// 1. Preservation store: Redis when configured, in-memory otherwise
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = client
		a.store = redisclient.NewPreserveStore(client, cfg.Redis.Namespace)
		slog.Info("Using Redis preservation store", "namespace", cfg.Redis.Namespace)
	} else {
		a.store = memory.NewStore()
		slog.Info("Using in-memory preservation store")
	}

	// 2. Fault history: PostgreSQL when configured, bounded ring otherwise
	var history faultlog.History
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		a.db = db

		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		repo := postgres.NewFaultHistoryRepo(db)
		history = repo
		if cfg.Database.Retention > 0 {
			a.pruner = worker.NewPruner(cfg.Database.Retention, repo)
		}
		slog.Info("Using PostgreSQL fault history")
	} else {
		history = memory.NewFaultHistory(500)
		slog.Info("Using in-memory fault history")
	}

	// 3. Fault logger and report delivery
	var reporter faultlog.Reporter
	if cfg.Reporting.Endpoint != "" {
		reporter = report.NewClient(cfg.Reporting.Endpoint, 10*time.Second)
	}
	a.logger = faultlog.New(history, reporter, faultlog.Options{
		Production: cfg.Reporting.Production,
		Debug:      cfg.Logging.Level == "debug",
	})
	if cfg.Reporting.Endpoint != "" {
		a.monitor = report.NewMonitor(
			cfg.Reporting.Endpoint,
			cfg.Reporting.ProbeInterval,
			a.logger.SetOnline,
		)
	}

	// 4. Boundary registry
	nav := &LogNavigator{}
	host, _ := os.Hostname()
	deps := boundary.Deps{
		Store:   a.store,
		Logger:  a.logger,
		Nav:     nav,
		Restart: a.requestRestart,
		Client: domain.ClientInfo{
			UserAgent: fmt.Sprintf("guardrail/%s (%s)", runtime.Version(), runtime.GOOS),
			URL:       host,
		},
	}
	for _, bc := range cfg.Boundaries {
		bcfg, err := boundaryConfig(bc)
		if err != nil {
			return nil, err
		}
		a.boundaries[bc.Name] = boundary.New(bcfg, deps)
	}

	// 5. Health server
	a.healthServer = health.NewServer(a.healthReport, cfg.Server.Port)

	return a, nil
}

// boundaryConfig builds a boundary config from its declaration, starting from
// the kind preset and applying explicit overrides.
func boundaryConfig(bc config.BoundaryConfig) (boundary.Config, error) {
	var cfg boundary.Config
	switch bc.Kind {
	case "transaction":
		cfg = boundary.TransactionConfig(bc.Name)
	case "upload":
		cfg = boundary.UploadConfig(bc.Name)
	case "auth":
		cfg = boundary.AuthConfig(bc.Name, bc.RecoveryURL)
	case "critical":
		cfg = boundary.CriticalOperationConfig(bc.Name)
	default:
		return boundary.Config{}, fmt.Errorf("unknown boundary kind: %s", bc.Kind)
	}

	if bc.MaxRetries > 0 {
		cfg.MaxRetries = bc.MaxRetries
	}
	if bc.RetryDelay > 0 {
		cfg.RetryDelay = bc.RetryDelay
	}
	if bc.SettleDelay > 0 {
		cfg.SettleDelay = bc.SettleDelay
	}
	if bc.RecoveryURL != "" {
		cfg.RecoveryURL = bc.RecoveryURL
	}
	return cfg, nil
}

// Start starts the app and all its components.
func (a *App) Start(ctx context.Context) error {
	// Start Health Server
	go func() {
		if err := a.healthServer.Start(); err != nil {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	// Start Connectivity Monitor
	if a.monitor != nil {
		a.monitor.Start(ctx)
	}

	// Start Fault History Pruner
	if a.pruner != nil {
		go a.pruner.Start(ctx)
	}

	// Detect unfinished work from a previous run
	pending, err := restore.HasRecoveryData(ctx, a.store)
	if err != nil {
		a.log.Warn("Failed to check for recovery data", "error", err)
		return nil
	}
	if !pending {
		return nil
	}

	a.log.Info("Preserved work found from previous session")
	if a.cfg.Recovery.ReplayOnStart {
		payload, err := restore.GetRecoveryData(ctx, a.store)
		if err != nil {
			a.log.Warn("Failed to assemble recovery data", "error", err)
			return nil
		}
		restore.Restore(a.bus, payload)
		a.log.Info("Recovery events published",
			"transactions", len(payload.Transactions),
			"unsaved_changes", len(payload.UnsavedChanges),
		)
	}
	return nil
}

// Stop stops the app.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping Guardrail...")

	if a.monitor != nil {
		a.monitor.Stop()
	}

	for _, b := range a.boundaries {
		b.Close()
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}

	return a.healthServer.Stop(ctx)
}

// Boundary returns a registered boundary by name, or nil.
func (a *App) Boundary(name string) *boundary.Boundary {
	return a.boundaries[name]
}

// Logger returns the process-wide fault logger.
func (a *App) Logger() *faultlog.Logger {
	return a.logger
}

// Store returns the preservation store.
func (a *App) Store() preserve.Store {
	return a.store
}

// Bus returns the recovery event broadcaster.
func (a *App) Bus() *events.Broadcaster {
	return a.bus
}

// RestartRequested is closed when a rollback recovery asks for a clean
// restart. The entrypoint treats it like a shutdown signal.
func (a *App) RestartRequested() <-chan struct{} {
	return a.restartCh
}

func (a *App) requestRestart() {
	a.restartOnce.Do(func() {
		a.log.Info("Clean restart requested by rollback recovery")
		close(a.restartCh)
	})
}

func (a *App) healthReport(ctx context.Context) health.Report {
	r := health.Report{
		ReportingOnline: a.logger.Online(),
		ReportQueue:     a.logger.QueueDepth(),
	}

	pending, err := restore.HasRecoveryData(ctx, a.store)
	r.StoreReachable = err == nil
	r.RecoveryPending = pending

	switch {
	case !r.StoreReachable:
		r.Status = health.StatusCritical
	case !r.ReportingOnline || r.ReportQueue > 0:
		r.Status = health.StatusDegraded
	default:
		r.Status = health.StatusHealthy
	}
	return r
}

// LogNavigator implements boundary.Navigator by recording the redirect
// target. Interactive surfaces subscribe to the broadcaster instead of
// navigating in-process.
type LogNavigator struct {
	mu   sync.Mutex
	last string
}

func (n *LogNavigator) Navigate(url string) error {
	n.mu.Lock()
	n.last = url
	n.mu.Unlock()
	slog.Info("Recovery navigation requested", "url", url)
	return nil
}

// LastURL returns the most recent navigation target.
func (n *LogNavigator) LastURL() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}
