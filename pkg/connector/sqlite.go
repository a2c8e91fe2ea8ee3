// pkg/connector/sqlite.go
package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/David-Botos/sales-stack/pkg/config"
)

// SQLiteConnector implements the DatabaseConnector interface for SQLite
type SQLiteConnector struct {
	baseConnector
	cfg *config.SQLiteConfig
}

// NewSQLiteConnector opens the SQLite database file described by cfg
func NewSQLiteConnector(ctx context.Context, cfg *config.SQLiteConfig, logger *zap.Logger) (*SQLiteConnector, error) {
	logger = logger.Named("sqlite-connector")

	logger.Info("Opening SQLite database", zap.String("path", cfg.Path))

	db, err := sqlx.Open("sqlite", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite connection: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting across pool members.
	ApplyConnectionSettings(db, 1, 1, 0, 0)

	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open SQLite database %s: %w", cfg.Path, err)
	}

	connector := &SQLiteConnector{
		baseConnector: baseConnector{
			db:      db,
			logger:  logger,
			dialect: DialectSQLite,
			name:    cfg.Path,
		},
		cfg: cfg,
	}

	LogConnectionStats(logger, cfg.Path, db.DB)
	return connector, nil
}

// Validate checks the engine answers queries
func (c *SQLiteConnector) Validate(ctx context.Context) error {
	var version string
	if err := c.GetWithTimeout(ctx, &version, "SELECT sqlite_version()", 5*time.Second); err != nil {
		return fmt.Errorf("failed to query SQLite version: %w", err)
	}

	c.logger.Info("Connected to SQLite",
		zap.String("path", c.cfg.Path),
		zap.String("version", version))
	return nil
}
