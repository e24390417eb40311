package main

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/voicesentinel/voicesentinel/cmd/cli/callers"
	"github.com/voicesentinel/voicesentinel/internal/errors"
)

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(callers.Group)
	rootCmd.AddCommand(callers.Seed)
	rootCmd.AddCommand(callers.History)
	rootCmd.AddCommand(callers.Memory)
	rootCmd.AddCommand(callers.Reset)
}

var rootCmd = &cobra.Command{
	Use:  "voicesentinel-cli",
	Long: `Operator utilities for the Voice Sentinel verification service`,
	Run: func(cmd *cobra.Command, args []string) {
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
