//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bindirectory/internal/directory/models"
	"bindirectory/pkg/platform/sentinel"
	"bindirectory/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
	ctx   context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(EnsureSchema(s.ctx, s.pg.DB))
	s.store = New(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(s.ctx, `TRUNCATE institutions`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestSaveAssignsIDAndRoundTrips() {
	lastFailure := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	saved, err := s.store.Save(s.ctx, &models.Institution{
		BIC:               "BANKMX01",
		Name:              "Banco Uno",
		DestinationURL:    "https://banco-uno.example/iso",
		PublicKey:         "pk-1",
		OperationalStatus: models.StatusOnline,
		RoutingRules: []models.RoutingRule{
			{BINPrefix: "411111", Agent: "agent-a"},
			{BINPrefix: "422222", Agent: "agent-b"},
		},
		Breaker: models.BreakerState{
			Open:                true,
			ConsecutiveFailures: 5,
			LastFailureAt:       &lastFailure,
		},
	})
	s.Require().NoError(err)
	s.NotEmpty(saved.ID)

	found, err := s.store.FindByBIC(s.ctx, "BANKMX01")
	s.Require().NoError(err)
	s.Equal(saved.ID, found.ID)
	s.Equal("Banco Uno", found.Name)
	s.Equal(models.StatusOnline, found.OperationalStatus)
	s.Len(found.RoutingRules, 2)
	s.True(found.Breaker.Open)
	s.Equal(5, found.Breaker.ConsecutiveFailures)
	s.Require().NotNil(found.Breaker.LastFailureAt)
	s.True(found.Breaker.LastFailureAt.Equal(lastFailure))
}

func (s *PostgresStoreSuite) TestSaveUpsertsOnBIC() {
	first, err := s.store.Save(s.ctx, &models.Institution{BIC: "BANKMX02", Name: "before"})
	s.Require().NoError(err)

	_, err = s.store.Save(s.ctx, &models.Institution{
		ID:   first.ID,
		BIC:  "BANKMX02",
		Name: "after",
	})
	s.Require().NoError(err)

	found, err := s.store.FindByBIC(s.ctx, "BANKMX02")
	s.Require().NoError(err)
	s.Equal(first.ID, found.ID)
	s.Equal("after", found.Name)

	all, err := s.store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *PostgresStoreSuite) TestFindByBICNotFound() {
	_, err := s.store.FindByBIC(s.ctx, "NOPE")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindByRuleBINMatchesExactly() {
	_, err := s.store.Save(s.ctx, &models.Institution{
		BIC:          "BANKMX03",
		RoutingRules: []models.RoutingRule{{BINPrefix: "411111", Agent: "agent-a"}},
	})
	s.Require().NoError(err)

	found, err := s.store.FindByRuleBIN(s.ctx, "411111")
	s.Require().NoError(err)
	s.Equal("BANKMX03", found.BIC)

	// A shorter prefix of a stored BIN is not a match.
	_, err = s.store.FindByRuleBIN(s.ctx, "4111")
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByRuleBIN(s.ctx, "999999")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindAllEmptyRules() {
	_, err := s.store.Save(s.ctx, &models.Institution{BIC: "BANKMX04"})
	s.Require().NoError(err)

	all, err := s.store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.NotNil(all[0].RoutingRules)
	s.Empty(all[0].RoutingRules)
}
