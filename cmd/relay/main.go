// Package main provides the relay command line tool.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay simulates digital circuits in fixed time steps",
	Long: `Relay simulates digital circuits in fixed time steps. Each step runs the
input, element, and wire update phases in order; wires settle toward their
pull rails on a worker pool while simulated time advances by a fixed
interval per step.`,
}

func main() {
	// A .env file may carry RELAY_* defaults. A missing file is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
