package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	rootOpts = struct {
		logLevel string
		color    string
	}{}

	logger *slog.Logger

	rootCmd = &cobra.Command{
		Use:   "nucleus",
		Short: "Simulate the nucleus scheduler",
		Long:  "Boot the nucleus round-robin scheduler on a simulated Cortex-M core, record its dispatches and analyse them",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(rootOpts.logLevel)); err != nil {
				return fmt.Errorf("invalid log level %q", rootOpts.logLevel)
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			switch strings.ToLower(rootOpts.color) {
			case "auto":
				color.NoColor = !term.IsTerminal(int(os.Stdout.Fd()))
			case "always":
				color.NoColor = false
			case "never":
				color.NoColor = true
			default:
				return fmt.Errorf("invalid color mode %q", rootOpts.color)
			}
			return nil
		},
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&rootOpts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&rootOpts.color, "color", "auto", "colorize output (auto, always, never)")

	rootCmd.AddCommand(runCmd, sweepCmd, analyzeCmd, targetsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
