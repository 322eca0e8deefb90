package service

import (
	"github.com/billflow/billflow/internal/config"
	"github.com/billflow/billflow/internal/domain/creditpackage"
	"github.com/billflow/billflow/internal/domain/subscription"
	"github.com/billflow/billflow/internal/logger"
	"github.com/billflow/billflow/internal/postgres"
)

// ServiceParams bundles the dependencies injected into services.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	SubRepo           subscription.Repository
	CreditPackageRepo creditpackage.Repository

	// CreditGrantor creates the replacement subscription and its credit
	// grant. It is an external collaborator; see credit_grantor.go.
	CreditGrantor CreditGrantor
}
