package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/key-management/internal"
	"github.com/frahmantamala/key-management/internal/auth"
	"github.com/frahmantamala/key-management/internal/core/events"
	"github.com/frahmantamala/key-management/internal/history"
	"github.com/frahmantamala/key-management/internal/key"
	"github.com/frahmantamala/key-management/internal/ledger"
	"github.com/frahmantamala/key-management/internal/metrics"
	"github.com/frahmantamala/key-management/internal/storage"
	"github.com/frahmantamala/key-management/internal/transport/rest"
	"github.com/frahmantamala/key-management/internal/user"
	"github.com/frahmantamala/key-management/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	Store    *openedStore
	Ledger   *ledger.Ledger
	EventBus *events.EventBus
	Metrics  *metrics.Metrics
	Router   *chi.Mux
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "storage", deps.Config.Storage.Driver)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.EventBus.Drain(ctx); err != nil {
			deps.Logger.Warn("event handlers still running at shutdown", "error", err)
		}
		if err := deps.Store.Close(); err != nil {
			deps.Logger.Error("Storage close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	authService := auth.NewService(
		deps.Ledger,
		auth.NewJWTTokenGenerator(deps.Config.Security.JWTSecret, deps.Config.Security.AccessTokenDuration),
		deps.Logger,
	)

	cfg := rest.RouterConfig{
		Checks: healthChecks(deps.Store),
		Logger: deps.Logger,
	}
	if deps.Config.Observability.Metrics.Enabled {
		cfg.Metrics = deps.Metrics
		cfg.MetricsPath = deps.Config.Observability.Metrics.Path
	}

	rest.RegisterAllRoutes(deps.Router, rest.Handlers{
		Auth:    auth.NewHandler(authService),
		Users:   user.NewHandler(deps.Ledger),
		Keys:    key.NewHandler(deps.Ledger),
		History: history.NewHandler(deps.Ledger),
		Ledger:  ledger.NewHandler(deps.Ledger),
	}, cfg)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	lg := logger.L()

	ctx := context.Background()
	store, err := openStore(ctx, config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	bus := events.NewEventBus(lg)
	l, err := ledger.Open(ctx, store, append(ledgerOptions(config, lg), ledger.WithPublisher(bus))...)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	m := metrics.New(l)
	m.Subscribe(bus)

	return &Dependencies{
		Config:   config,
		Store:    store,
		Ledger:   l,
		EventBus: bus,
		Metrics:  m,
		Router:   chi.NewRouter(),
		Logger:   lg,
	}, nil
}

func healthChecks(store *openedStore) map[string]rest.Checker {
	checks := map[string]rest.Checker{}
	if p, ok := store.BlobStore.(storage.Pinger); ok {
		checks["storage"] = p.Ping
	}
	if store.db != nil {
		checks["database"] = store.db.PingContext
	}
	return checks
}
