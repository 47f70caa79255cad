package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"omibyte.io/nucleus/scenario"
	"omibyte.io/nucleus/trace"
)

var (
	runOpts = struct {
		trace  string
		cycles uint64
		report bool
	}{}

	runCmd = &cobra.Command{
		Use:   "run [scenario.toml]",
		Short: "Run one scenario",
		Long:  "Boot a scenario on the simulator and print the dispatch sequence. Without a file the reference two task boot runs.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := scenario.Default()
			if len(args) == 1 {
				var err error
				if sc, err = scenario.Load(args[0]); err != nil {
					return err
				}
			}
			if runOpts.cycles > 0 {
				sc.Cycles = runOpts.cycles
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			result, err := scenario.Run(ctx, sc, logger)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)

			if runOpts.report {
				report, err := trace.Analyze(result.Trace)
				if err != nil {
					return err
				}
				printReport(cmd.OutOrStdout(), result.Name, report)
			}

			if len(runOpts.trace) > 0 {
				if err = trace.SaveFile(runOpts.trace, result.Trace); err != nil {
					return err
				}
				logger.Info("trace written", "path", runOpts.trace, "events", len(result.Trace.Events))
			}
			return nil
		},
	}
)

func init() {
	runCmd.Flags().StringVarP(&runOpts.trace, "trace", "t", "", "write the dispatch trace to this file")
	runCmd.Flags().Uint64VarP(&runOpts.cycles, "cycles", "c", 0, "override the scenario's cycle budget")
	runCmd.Flags().BoolVarP(&runOpts.report, "report", "r", false, "print a fairness report")
}
