package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-stack/pkg/metrics/prompush"
	"github.com/David-Botos/sales-stack/pkg/pipeline"
)

var _ pipeline.MetricsSink = (*prompush.Backend)(nil)

var runOpts struct {
	table    string
	dryRun   bool
	jsonOut  bool
	noVerify bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Rebuild the summary table",
	RunE:  runSummary,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.table, "table", "", "Destination table (overrides DESTINATION_TABLE)")
	f.BoolVar(&runOpts.dryRun, "dry-run", false, "Aggregate and clean without writing the destination table")
	f.BoolVar(&runOpts.jsonOut, "json", false, "Print run metrics as JSON instead of a text report")
	f.BoolVar(&runOpts.noVerify, "no-verify", false, "Skip the post-write verification")
	rootCmd.AddCommand(runCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	opts := pipeline.OptionsFromConfig(cfg)
	if runOpts.table != "" {
		opts.Table = runOpts.table
	}
	opts.DryRun = runOpts.dryRun
	if runOpts.noVerify {
		opts.Verify = false
	}

	conn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(conn)

	p, err := pipeline.New(conn, opts, logger)
	if err != nil {
		return err
	}

	if cfg.MetricsPushgatewayURL != "" {
		backend, err := prompush.NewBackend(cfg.MetricsJob, cfg.MetricsPushgatewayURL)
		if err != nil {
			return err
		}
		p.WithMetricsSink(backend)
	}

	result, err := p.Run(ctx)
	if err != nil {
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			logger.Error("Sales stack summary failed",
				zap.String("stage", string(stageErr.Stage)),
				zap.String("category", stageErr.Category.String()),
				zap.Error(stageErr.Err))
		}
		return err
	}

	out := cmd.OutOrStdout()
	if runOpts.jsonOut {
		raw, err := p.Metrics().ToJSON()
		if err != nil {
			return fmt.Errorf("failed to encode run metrics: %w", err)
		}
		fmt.Fprintln(out, string(raw))
		return nil
	}

	fmt.Fprint(out, p.Metrics().Report())
	if result.DryRun {
		fmt.Fprintf(out, "\nDry run: %d rows would replace %s\n", result.RowsRead, result.Table)
	}
	return nil
}
