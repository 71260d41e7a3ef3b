package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/config"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/events/logpub"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/gateway"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/ledger"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/lifecycle"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/models"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/remediation"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/storage/memory"
)

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().Bool("realtime", false, "use wall-clock delays instead of accelerated time")
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk every gateway scenario end to end against an in-memory stack",
	Long: `Runs one $25.00 bill payment per gateway scenario, then demonstrates
remediation of the hidden-success case and withdrawal of a pending money
request. By default the demo runs on accelerated simulated time; pass
--realtime to watch the watchdog race at real speed.`,
	RunE: runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	realtime, _ := cmd.Flags().GetBool("realtime")
	logger := config.NewLogger(slog.LevelWarn)

	var clk clock.Clock = clock.New()
	if !realtime {
		mock := clock.NewMock()
		clk = mock
		// Drive simulated time forward continuously so timer-bound
		// goroutines (gateway, watchdog) make progress.
		done := make(chan struct{})
		defer close(done)
		go func() {
			for {
				select {
				case <-done:
					return
				default:
				}
				mock.Add(250 * time.Millisecond)
				time.Sleep(time.Millisecond)
			}
		}()
	}

	cfg := config.Defaults()
	ldg := ledger.NewLedger(ledger.SeedAccounts(), clk, logger)
	store := memory.NewTransactionStore()
	gw := gateway.NewSimulator(clk, gateway.ScenarioRandom, 42, logger)
	publisher := logpub.NewPublisher(logger)

	machine := lifecycle.NewMachine(lifecycle.Config{
		WatchdogThreshold: cfg.WatchdogThreshold,
		HighRiskThreshold: cfg.HighRiskThreshold,
	}, ldg, store, gw, publisher, clk, logger)
	coordinator := remediation.NewCoordinator(ldg, store, gw, publisher, clk, logger)

	ctx := cmd.Context()
	amount := decimal.NewFromFloat(25.00)

	fmt.Println("Seed accounts:")
	printBalances(ldg)

	scenarios := []gateway.Scenario{
		gateway.ScenarioFastSuccess,
		gateway.ScenarioSlowSuccess,
		gateway.ScenarioFastFailure,
		gateway.ScenarioSlowFailure,
		gateway.ScenarioHiddenSuccess,
	}

	var hiddenSuccessID string
	for _, scenario := range scenarios {
		gw.SetScenario(scenario)
		fmt.Printf("\n── scenario %s ──\n", scenario)

		tx, err := machine.Initiate(ctx, lifecycle.InitiateRequest{
			Kind:        models.KindPayment,
			FromAccount: "chk-001",
			Amount:      amount,
			Description: "City Power & Light",
		})
		if err != nil {
			return err
		}
		fmt.Printf("initiated %s\n", tx.ID)

		if err := machine.WaitForResolution(ctx, tx.ID); err != nil {
			return err
		}
		final, err := machine.GetTransaction(tx.ID)
		if err != nil {
			return err
		}
		fmt.Printf("resolved  %-21s was_pending=%-5t remediable=%t\n",
			final.Status, final.WasPending, final.Remediable())
		printBalances(ldg)

		if scenario == gateway.ScenarioHiddenSuccess {
			hiddenSuccessID = tx.ID
		}
	}

	fmt.Printf("\n── remediation of %s ──\n", hiddenSuccessID)
	outcome, err := coordinator.Remediate(ctx, hiddenSuccessID)
	if err != nil {
		return err
	}
	fmt.Printf("first pass:  %s\n", outcome)
	printBalances(ldg)

	outcome, err = coordinator.Remediate(ctx, hiddenSuccessID)
	if err != nil {
		return err
	}
	fmt.Printf("second pass: %s (balances unchanged)\n", outcome)
	printBalances(ldg)

	fmt.Printf("\n── pending money request, then withdrawal ──\n")
	req, err := machine.Initiate(ctx, lifecycle.InitiateRequest{
		Kind:        models.KindRequestSent,
		FromAccount: "chk-001",
		Amount:      decimal.NewFromFloat(40.00),
		Description: "Dinner split",
		Recipient:   &models.Recipient{ID: "rcp-001", Name: "Jordan Diaz", Initials: "JD"},
	})
	if err != nil {
		return err
	}
	fmt.Printf("request %s status=%s\n", req.ID, req.Status)
	if err := machine.CancelPending(ctx, req.ID); err != nil {
		return err
	}
	fmt.Printf("request %s withdrawn\n", req.ID)

	return nil
}

func printBalances(ldg *ledger.Ledger) {
	for _, accountID := range []string{"chk-001", "sav-001"} {
		balance, err := ldg.Balance(accountID)
		if err != nil {
			continue
		}
		fmt.Printf("  %-8s $%s\n", accountID, balance.StringFixed(2))
	}
}
