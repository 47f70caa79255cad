package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"omibyte.io/nucleus/scenario"
	"omibyte.io/nucleus/trace"
)

var (
	sweepOpts = struct {
		jobs     int
		traceDir string
	}{}

	sweepCmd = &cobra.Command{
		Use:   "sweep scenario.toml...",
		Short: "Run several scenarios concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios := make([]scenario.Scenario, len(args))
			for i, path := range args {
				sc, err := scenario.Load(path)
				if err != nil {
					return err
				}
				scenarios[i] = sc
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			results, err := scenario.Sweep(ctx, scenarios, sweepOpts.jobs, logger)
			if err != nil {
				return err
			}

			for i, result := range results {
				printResult(cmd.OutOrStdout(), result)
				if len(sweepOpts.traceDir) > 0 {
					path := filepath.Join(sweepOpts.traceDir, fmt.Sprintf("%02d-%s.msgpack", i, filepath.Base(result.Name)))
					if err = trace.SaveFile(path, result.Trace); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
)

func init() {
	sweepCmd.Flags().IntVarP(&sweepOpts.jobs, "jobs", "j", runtime.NumCPU(), "number of concurrent simulations")
	sweepCmd.Flags().StringVar(&sweepOpts.traceDir, "trace-dir", "", "write one trace per scenario into this directory")
}
