// pkg/connector/postgres.go
package connector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-stack/pkg/config"
)

// PostgresConnector implements the DatabaseConnector interface for PostgreSQL
type PostgresConnector struct {
	baseConnector
	cfg *config.PostgresConfig
}

// NewPostgresConnector creates and initializes a new PostgreSQL connector
func NewPostgresConnector(ctx context.Context, cfg *config.PostgresConfig, logger *zap.Logger) (*PostgresConnector, error) {
	logger = logger.Named("postgres-connector")

	// Log connection attempt
	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	db, err := sqlx.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	// Unquoted identifiers come back folded to lower case.
	db.Mapper = reflectx.NewMapperTagFunc("db", strings.ToLower, strings.ToLower)

	ApplyConnectionSettings(
		db,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	connector := &PostgresConnector{
		baseConnector: baseConnector{
			db:      db,
			logger:  logger,
			dialect: DialectPostgres,
			name:    cfg.Database,
		},
		cfg: cfg,
	}

	LogConnectionStats(logger, cfg.Database, db.DB)
	return connector, nil
}

// Validate verifies the PostgreSQL connection and that the current user may
// create the destination table
func (c *PostgresConnector) Validate(ctx context.Context) error {
	var version string
	if err := c.GetWithTimeout(ctx, &version, "SELECT version()", 10*time.Second); err != nil {
		return fmt.Errorf("failed to query PostgreSQL version: %w", err)
	}
	c.logger.Info("Connected to PostgreSQL", zap.String("version", version))

	var canCreate bool
	err := c.GetWithTimeout(ctx, &canCreate,
		"SELECT has_schema_privilege(current_schema(), 'CREATE')", 10*time.Second)
	if err != nil {
		return fmt.Errorf("permission validation failed: %w", err)
	}
	if !canCreate {
		return errors.New("permission validation failed: current user cannot create tables in the current schema")
	}

	c.logger.Info("PostgreSQL connection validated",
		zap.String("database", c.cfg.Database),
		zap.String("host", c.cfg.Host),
		zap.Int("port", c.cfg.Port))

	return nil
}
