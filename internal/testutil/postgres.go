package testutil

import (
	"context"
	"database/sql"

	"github.com/billflow/billflow/internal/postgres"
	"github.com/billflow/billflow/internal/types"
)

// MockPostgresClient satisfies postgres.IClient for service tests that run
// against in-memory stores. Transactions degrade to plain function calls
// and advisory locks are no-ops.
type MockPostgresClient struct{}

func NewMockPostgresClient() postgres.IClient {
	return &MockPostgresClient{}
}

func (c *MockPostgresClient) Querier(_ context.Context) postgres.Querier {
	return nil
}

func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (c *MockPostgresClient) TxFromContext(_ context.Context) *sql.Tx {
	return nil
}

func (c *MockPostgresClient) LockKey(_ context.Context, _ types.LockRequest) error {
	return nil
}

func (c *MockPostgresClient) Close() error {
	return nil
}
