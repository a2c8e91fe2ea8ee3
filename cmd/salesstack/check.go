package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/David-Botos/sales-stack/pkg/pipeline"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the store connection and the source tables",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	conn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(conn)

	p, err := pipeline.New(conn, pipeline.OptionsFromConfig(cfg), logger)
	if err != nil {
		return err
	}
	if err := p.CheckSources(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Source tables OK (%s)\n", conn.Dialect())
	return nil
}
