// Package cli implements the Quill command-line interface using Cobra.
// Each subcommand opens the daemon runtime, applies one progress operation
// and prints the result.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Quill: writing progress, levels and badges",
	Long: `Quill tracks your writing practice locally.
Words, finished texts and prompts earn XP, consecutive writing days build a
streak, and milestones unlock badges.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
