package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-andiamo/modelmap/internal/config"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

const retryInterval = 2 * time.Second

// Open opens a connection pool for the configured driver and verifies it, retrying the ping
func Open(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*sql.DB, error) {
	connector, err := newConnector(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	attempts := cfg.ConnectRetries
	if attempts < 1 {
		attempts = 1
	}
	for i := 1; ; i++ {
		if err = db.PingContext(ctx); err == nil {
			log.Info("connected to database", "driver", cfg.Driver)
			return db, nil
		}
		log.Warn("database connection attempt failed", "attempt", i, "max_attempts", attempts, "error", err)
		if i >= attempts {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	_ = db.Close()
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
}

func newConnector(cfg config.DatabaseConfig) (driver.Connector, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		mc, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		// DATETIME columns scan as time.Time and UPDATE reports matched (not changed) rows
		mc.ParseTime = true
		mc.ClientFoundRows = true
		return mysql.NewConnector(mc)
	case config.DriverPostgres:
		c, err := pq.NewConnector(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid postgres dsn: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
}

var schemaStatements = map[string][]string{
	config.DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS products (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			product_id BIGINT NOT NULL,
			quantity BIGINT NOT NULL,
			price DECIMAL(10,2) NULL,
			INDEX idx_product_id (product_id),
			FOREIGN KEY (product_id) REFERENCES products(id)
		)`,
	},
	config.DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id BIGSERIAL PRIMARY KEY,
			product_id BIGINT NOT NULL REFERENCES products(id),
			quantity BIGINT NOT NULL,
			price NUMERIC(10,2) NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_product_id ON order_items (product_id)`,
	},
}

// EnsureSchema creates the products and order_items tables if they don't exist
func EnsureSchema(ctx context.Context, db *sql.DB, driverName string, log *slog.Logger) error {
	statements, ok := schemaStatements[driverName]
	if !ok {
		return fmt.Errorf("unsupported database driver: %s", driverName)
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	log.Info("database schema ready", "driver", driverName)
	return nil
}
