package main

import (
	"github.com/spf13/cobra"

	"omibyte.io/nucleus/trace"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze trace.msgpack...",
	Short: "Print fairness statistics for recorded traces",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			t, err := trace.LoadFile(path)
			if err != nil {
				return err
			}
			if t.Dropped > 0 {
				logger.Warn("trace is incomplete", "path", path, "dropped", t.Dropped)
			}

			report, err := trace.Analyze(t)
			if err != nil {
				return err
			}
			name := t.Name
			if name == "" {
				name = path
			}
			printReport(cmd.OutOrStdout(), name, report)
		}
		return nil
	},
}
