package testutil

import (
	"context"

	"github.com/billflow/billflow/internal/config"
	"github.com/billflow/billflow/internal/logger"
	"github.com/billflow/billflow/internal/postgres"
	"github.com/billflow/billflow/internal/types"
	"github.com/stretchr/testify/suite"
)

// Stores bundles the in-memory repositories used by service tests.
type Stores struct {
	SubscriptionRepo  *InMemorySubscriptionStore
	CreditPackageRepo *InMemoryCreditPackageStore
}

// BaseServiceTestSuite provides the shared fixture for service level test
// suites: context, logger, config and fresh in-memory stores per test.
type BaseServiceTestSuite struct {
	suite.Suite

	ctx    context.Context
	cfg    *config.Configuration
	logger *logger.Logger
	db     postgres.IClient
	stores *Stores
}

// SetupTest initializes a fresh fixture before each test.
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = types.SetUserID(context.Background(), "user_test")
	s.ctx = types.SetRequestID(s.ctx, types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST))
	s.cfg = config.GetDefaultConfig()
	s.logger = logger.GetLogger()
	s.db = NewMockPostgresClient()
	s.stores = &Stores{
		SubscriptionRepo:  NewInMemorySubscriptionStore(),
		CreditPackageRepo: NewInMemoryCreditPackageStore(),
	}
}

// TearDownTest clears the stores after each test.
func (s *BaseServiceTestSuite) TearDownTest() {
	if s.stores != nil {
		s.stores.SubscriptionRepo.Clear()
		s.stores.CreditPackageRepo.Clear()
	}
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.cfg
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetStores() *Stores {
	return s.stores
}
