package main

import (
	"os"

	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
