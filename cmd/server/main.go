/*
main.go - Application entry point

PURPOSE:
  Starts the CatButler credits server and hosts a few operator commands.
  Handles configuration, store selection, dependency injection and
  graceful shutdown.

COMMANDS:
  serve              Run the HTTP API (default)
  users              List every user with a stored balance
  verify --user ID   Check one user's stored ledger invariants
  verify --all       Same, for every stored user
  balance --user ID  Print one user's stored balance

STARTUP SEQUENCE (serve):
  1. Load config from CATBUTLER_* environment variables
  2. Load the reward/unlock catalog (CATBUTLER_CATALOG_PATH)
  3. Open the configured store (memory, sqlite, postgres)
  4. Create the session manager and start the idle sweep
  5. Configure the HTTP router and metrics endpoint
  6. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sweep and close every open session
  4. Close the store

EXAMPLES:
  # Run with a file database
  CATBUTLER_SQLITE_PATH=./data/catbutler.db ./server serve

  # Run with Postgres
  CATBUTLER_STORE=postgres CATBUTLER_DATABASE_URL=postgres://... ./server

  # Check a user's history after an incident
  ./server verify --user 42

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - session/manager.go: Per-user session lifecycle
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/catbutler/credits-engine/api"
	"github.com/catbutler/credits-engine/config"
	"github.com/catbutler/credits-engine/credits"
	"github.com/catbutler/credits-engine/credits/store"
	"github.com/catbutler/credits-engine/metrics"
	"github.com/catbutler/credits-engine/session"
	"github.com/catbutler/credits-engine/store/postgres"
	"github.com/catbutler/credits-engine/store/sqlite"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "catbutler",
		Short:        "CatButler credits and rewards server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newUsersCmd(), newVerifyCmd(), newBalanceCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// =============================================================================
// SERVE
// =============================================================================

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.ConfigureLogging()

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	collector := metrics.New(prometheus.DefaultRegisterer)
	sessions := session.NewManager(st,
		session.WithLocation(cfg.Location()),
		session.WithRewardTable(catalog.Rewards),
		session.WithCatalog(catalog.Items),
		session.WithObserver(collector.Handle),
		session.WithNotificationHook(collector.NotificationCreated),
	)
	sessions.IdleTimeout = cfg.SessionIdleTimeout
	sessions.OnOpen = collector.SessionOpened
	sessions.OnClose = collector.SessionClosed
	if err := sessions.Start(cfg.SessionSweepSchedule); err != nil {
		return err
	}

	handler := api.NewHandler(sessions, catalog.Items)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins(),
		Metrics:        promhttp.Handler(),
		Scenarios:      cfg.EnableScenarios,
	})
	if cfg.EnableScenarios {
		log.Warn("Demo scenarios enabled; POST /api/me/scenarios/load wipes the caller's account")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"port":  cfg.HTTPPort,
			"store": cfg.Store,
			"tz":    cfg.Timezone,
		}).Info("🚀 Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			sessions.CloseAll()
			return fmt.Errorf("server failed: %w", err)
		}
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	sessions.Stop(shutdownCtx)
	sessions.CloseAll()

	log.Info("Server stopped")
	return nil
}

// openStore opens the configured backend and returns its closer.
func openStore(ctx context.Context, cfg *config.Config) (credits.Store, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("Using in-memory store; state is lost on exit")
		return store.NewMemory(), func() {}, nil
	case config.StoreSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return s, func() {
			if err := s.Close(); err != nil {
				log.WithError(err).Warn("Closing sqlite store")
			}
		}, nil
	case config.StorePostgres:
		s, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
