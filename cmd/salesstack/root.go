package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-stack/pkg/config"
	"github.com/David-Botos/sales-stack/pkg/connector"
	"github.com/David-Botos/sales-stack/pkg/logging"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "salesstack",
	Short: "Build the sales stack summary table",
	Long: `salesstack joins purchases, purchase costs, sales and freight invoices
per vendor and brand, derives profitability ratios and replaces the
destination table with the result.

Configuration comes from the environment and an optional .env file.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file (default .env)")
}

// setup loads configuration and builds the process logger before any
// subcommand runs
func setup(cmd *cobra.Command, args []string) error {
	if envFile != "" {
		if err := os.Setenv("ENV_FILE", envFile); err != nil {
			return err
		}
	}

	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err = logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Debug("Configuration loaded",
		zap.String("driver", cfg.Store.Driver),
		zap.String("table", cfg.DestinationTable),
		zap.Int("batchSize", cfg.BatchSize),
		zap.Duration("queryTimeout", cfg.QueryTimeout))
	return nil
}

// openStore connects to the configured store. Callers own the returned
// connector and must close it.
func openStore(ctx context.Context) (connector.DatabaseConnector, error) {
	factory := connector.NewConnectorFactory(cfg.Store, logger)
	conn, err := factory.Create(ctx)
	if err != nil {
		logger.Error("Database connection failed", zap.Error(err))
		return nil, err
	}
	return conn, nil
}

// closeStore closes conn and logs a failure to do so
func closeStore(conn connector.DatabaseConnector) {
	if err := conn.Close(); err != nil {
		logger.Warn("Failed to close database connection", zap.Error(err))
	}
}
