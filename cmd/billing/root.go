/*
root.go - Command tree and shared configuration

PURPOSE:
  Defines the root cobra command and the configuration loading shared by
  every subcommand. A .env file in the working directory is loaded first
  so BILLING_DB and BILLING_LISTEN can be set per deployment without
  editing the YAML file.

COMMANDS:
  serve   Run the HTTP API server
  run     Execute a billing run against the stored inputs
  rates   Show pay/bill margins per role

SEE ALSO:
  - config/config.go: The YAML file format
*/
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/warp/billing-engine/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "billing",
	Short: "Contract labor billing engine",
	Long: `billing turns timekeeping exports into invoice-ready rollups:
effective-dated rate resolution, task classification, differential pay,
and per-CLIN invoice assembly.`,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "billing.yaml", "configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ratesCmd)
}

// loadConfig loads .env overrides and the YAML configuration. A missing
// config file falls back to defaults; a malformed one is fatal.
func loadConfig() (config.Config, error) {
	_ = godotenv.Load()
	return config.LoadOrDefault(configPath)
}
