package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Config holds SQLite connection configuration
type Config struct {
	Path        string
	BusyTimeout time.Duration
	// InMemory replaces the file with a shared in-memory database. Used by
	// tests and ephemeral runs.
	InMemory bool
}

// Client represents an SQLite database client
type Client struct {
	db     *sqlx.DB
	config *Config
	logger *slog.Logger
}

// NewClient opens (and creates if needed) the database file. Transactions
// are opened in immediate mode so writers take the database lock up front,
// and WAL keeps readers from blocking behind them.
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	busyTimeout := config.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	dsn := config.Path
	if config.InMemory {
		dsn = fmt.Sprintf("file:queue-%d?mode=memory&cache=shared", time.Now().UnixNano())
	}
	params := url.Values{}
	params.Set("_txlock", "immediate")
	params.Set("_busy_timeout", fmt.Sprintf("%d", busyTimeout.Milliseconds()))
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_foreign_keys", "on")
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn = dsn + sep + params.Encode()

	logger.Info("Opening SQLite database",
		slog.String("path", config.Path),
		slog.Bool("in_memory", config.InMemory),
		slog.Duration("busy_timeout", busyTimeout),
	)

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		logger.Error("Failed to open SQLite database",
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// A single connection serializes this process's writers ahead of
	// SQLite's own lock and keeps shared-cache memory databases coherent.
	db.SetMaxOpenConns(1)

	client := &Client{
		db:     db,
		config: config,
		logger: logger,
	}

	logger.Info("SQLite database ready",
		slog.String("path", config.Path),
	)

	return client, nil
}

// GetDB returns the underlying sqlx.DB instance
func (c *Client) GetDB() *sqlx.DB {
	return c.db
}

// Close closes the database connection
func (c *Client) Close() error {
	c.logger.Info("Closing SQLite database")

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close SQLite database",
				slog.Any("error", err),
			)
			return err
		}
	}

	c.logger.Info("SQLite database closed successfully")
	return nil
}

// Ping checks the database connection
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// BeginTx starts a new write transaction
func (c *Client) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		c.logger.Error("Failed to begin transaction",
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// HealthCheck performs a health check on the database
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := c.db.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return fmt.Errorf("database query health check failed: %w", err)
	}

	return nil
}
