// Package cli implements the readgarden command-line interface using Cobra.
// Each subcommand opens the local database through the daemon wiring.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "readgarden",
	Short: "readgarden: a reading tracker that grows a garden",
	Long: `readgarden tracks reading sessions, books and goals.
Reading earns XP and coins; coins buy plants that grow on the days you read
and wilt when you forget to water them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
