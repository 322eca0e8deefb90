package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/billflow/billflow/internal/config"
	ierr "github.com/billflow/billflow/internal/errors"
	"github.com/billflow/billflow/internal/logger"
	"github.com/billflow/billflow/internal/types"
	_ "github.com/lib/pq"
)

// Querier is the subset of database/sql used by repositories. Both *sql.DB
// and *sql.Tx satisfy it, so repository code is transaction agnostic.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// IClient is the database client handed to repositories and services.
type IClient interface {
	// Querier returns the transaction bound to the context when inside
	// WithTx, otherwise the connection pool.
	Querier(ctx context.Context) Querier

	// WithTx runs fn inside a transaction. The transaction is carried on the
	// context so repository calls made from fn join it transparently.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// TxFromContext returns the transaction bound to the context, or nil.
	TxFromContext(ctx context.Context) *sql.Tx

	// LockKey acquires an advisory transaction lock; see locks.go.
	LockKey(ctx context.Context, req types.LockRequest) error

	// Close releases the underlying pool.
	Close() error
}

type txCtxKey struct{}

// Client wraps a database/sql pool with transaction propagation.
type Client struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewClient opens a connection pool against the configured Postgres.
func NewClient(cfg *config.Configuration, log *logger.Logger) (*Client, error) {
	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to open postgres connection").
			Mark(ierr.ErrDatabase)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetimeMinutes) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to ping postgres").
			WithReportableDetails(map[string]interface{}{
				"host": cfg.Postgres.Host,
				"port": cfg.Postgres.Port,
			}).
			Mark(ierr.ErrDatabase)
	}

	return &Client{db: db, logger: log}, nil
}

// NewClientWithDB wraps an existing pool. Used by tests (sqlmock) and by
// callers that manage the pool themselves.
func NewClientWithDB(db *sql.DB, log *logger.Logger) *Client {
	return &Client{db: db, logger: log}
}

func (c *Client) Querier(ctx context.Context) Querier {
	if tx := c.TxFromContext(ctx); tx != nil {
		return tx
	}
	return c.db
}

func (c *Client) TxFromContext(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(txCtxKey{}).(*sql.Tx); ok {
		return tx
	}
	return nil
}

func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// Nested WithTx joins the existing transaction.
	if tx := c.TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to begin transaction").
			Mark(ierr.ErrDatabase)
	}

	txCtx := context.WithValue(ctx, txCtxKey{}, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Errorw("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit transaction").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (c *Client) Close() error {
	return c.db.Close()
}
