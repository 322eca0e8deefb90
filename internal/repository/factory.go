package repository

import (
	"github.com/billflow/billflow/internal/domain/creditpackage"
	"github.com/billflow/billflow/internal/domain/subscription"
	"github.com/billflow/billflow/internal/logger"
	"github.com/billflow/billflow/internal/postgres"
	repoPostgres "github.com/billflow/billflow/internal/repository/postgres"
)

// Repositories bundles the persistence adapters behind their domain
// interfaces.
type Repositories struct {
	Subscription  subscription.Repository
	CreditPackage creditpackage.Repository
}

// NewRepositories wires the postgres implementations.
func NewRepositories(client postgres.IClient, log *logger.Logger) *Repositories {
	return &Repositories{
		Subscription:  repoPostgres.NewSubscriptionRepository(client, log),
		CreditPackage: repoPostgres.NewCreditPackageRepository(client, log),
	}
}
