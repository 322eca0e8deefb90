package types

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TableName represents a database table name
type TableName string

const (
	TableNameSubscriptions  TableName = "user_subscriptions"
	TableNameCreditPackages TableName = "credit_packages"
)

// LockScope represents the scope of a database advisory lock
type LockScope string

const (
	// LockScopePlanChange serializes concurrent plan changes per user so two
	// upgrade requests cannot both read and cancel the same active subscription.
	LockScopePlanChange LockScope = "plan_change"
)

// DefaultLockTimeout is applied when a lock request carries no timeout.
const DefaultLockTimeout = 30 * time.Second

// LockRequest describes an advisory lock acquisition.
type LockRequest struct {
	Key     string
	Timeout *time.Duration
}

func (r LockRequest) GetTimeout() time.Duration {
	if r.Timeout == nil {
		return DefaultLockTimeout
	}
	return *r.Timeout
}

// GenerateLockKey generates a deterministic lock key from a scope and
// parameters. The environment ID is folded in from the context when present.
// Postgres hashes the key internally via hashtext(), so no hashing here.
func GenerateLockKey(ctx context.Context, scope LockScope, params map[string]interface{}) string {
	merged := make(map[string]interface{})

	if environmentID := GetEnvironmentID(ctx); environmentID != "" {
		merged["environment_id"] = environmentID
	}

	for k, v := range params {
		merged[k] = v
	}

	// Sorted keys keep the generated key stable across calls.
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, merged[k]))
	}

	return b.String()
}
