package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	cfgPath string
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "reporter",
	Short: "Report nightly and scheduled workflow failures and recoveries to chat",
	Long: `reporter polls the nightly result feed and scheduled GitHub Actions runs,
detects lanes that newly failed or recovered and publishes one morning report.

  reporter run     Run on the configured schedule
  reporter once    Run a single tick and exit
  reporter lanes   Print the configured lanes`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "../config/reporter.yaml", "path to the reporter config")
	onceCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the report instead of publishing it; cursors are not written")

	rootCmd.Version = version
	rootCmd.AddCommand(runCmd, onceCmd, lanesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
