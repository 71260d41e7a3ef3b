// Package cli holds the paymentsd command tree.
package cli

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "paymentsd",
	Short: "Asynchronous payments with watchdog-bounded latency and remediation",
	Long: `paymentsd runs financial operations against a slow, unreliable backend.
Each operation races the backend's answer against a watchdog timer; if the
watchdog wins, the caller sees PENDING_CONFIRMATION while the operation keeps
running. Failures that happened inside that ambiguity window can later be
reconciled against the backend's authoritative status, retroactively
correcting balances and records.`,
	SilenceUsage: true,
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}
