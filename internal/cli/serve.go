package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/api"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/config"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/events/kafka"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/events/logpub"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/gateway"
	interfaces "github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/interfaces"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/ledger"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/lifecycle"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/remediation"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/storage/memory"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/storage/postgres"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("scenario", string(gateway.ScenarioRandom),
		"gateway scenario: random, fast-success, slow-success, fast-failure, slow-failure, hidden-success")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.LogLevel)

	scenarioFlag, _ := cmd.Flags().GetString("scenario")
	scenario, err := gateway.ParseScenario(scenarioFlag)
	if err != nil {
		return err
	}

	clk := clock.New()
	ldg := ledger.NewLedger(ledger.SeedAccounts(), clk, logger)
	gw := gateway.NewSimulator(clk, scenario, time.Now().UnixNano(), logger)

	var store interfaces.TransactionStore = memory.NewTransactionStore()
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		pg := postgres.NewTransactionStore(db)
		if err := pg.EnsureSchema(cmd.Context()); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		store = pg
		logger.Info("using postgres transaction store")
	}

	var publisher interfaces.EventPublisher = logpub.NewPublisher(logger)
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
		logger.Info("using kafka event publisher", "brokers", cfg.KafkaBrokers)
	}

	machine := lifecycle.NewMachine(lifecycle.Config{
		WatchdogThreshold: cfg.WatchdogThreshold,
		HighRiskThreshold: cfg.HighRiskThreshold,
	}, ldg, store, gw, publisher, clk, logger)
	coordinator := remediation.NewCoordinator(ldg, store, gw, publisher, clk, logger)

	server := api.NewServer(machine, coordinator, ldg, logger)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Handler(),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", cfg.HTTPAddr, "scenario", scenario,
			"watchdog_threshold", cfg.WatchdogThreshold.String(),
			"high_risk_threshold", cfg.HighRiskThreshold.String())
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
