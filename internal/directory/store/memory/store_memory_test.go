package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bindirectory/internal/directory/models"
	"bindirectory/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) newInstitution(bic string, bins ...string) *models.Institution {
	rules := make([]models.RoutingRule, 0, len(bins))
	for _, bin := range bins {
		rules = append(rules, models.RoutingRule{BINPrefix: bin, Agent: "agentA"})
	}
	return &models.Institution{
		BIC:               bic,
		Name:              "Bank " + bic,
		DestinationURL:    "https://" + bic + ".example.com",
		OperationalStatus: models.StatusOnline,
		RoutingRules:      rules,
	}
}

func (s *MemoryStoreSuite) TestSaveAndFind() {
	s.Run("save assigns an ID and finds by BIC", func() {
		saved, err := s.store.Save(s.ctx, s.newInstitution("BANKAAXX"))
		s.Require().NoError(err)
		s.NotEmpty(saved.ID)

		found, err := s.store.FindByBIC(s.ctx, "BANKAAXX")
		s.Require().NoError(err)
		s.Equal(saved.ID, found.ID)
		s.Equal("Bank BANKAAXX", found.Name)
	})

	s.Run("save keeps an existing ID", func() {
		inst := s.newInstitution("BANKBBXX")
		inst.ID = "fixed-id"
		saved, err := s.store.Save(s.ctx, inst)
		s.Require().NoError(err)
		s.Equal("fixed-id", saved.ID)
	})

	s.Run("unknown BIC returns ErrNotFound", func() {
		_, err := s.store.FindByBIC(s.ctx, "NOPE")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestFindByRuleBIN() {
	s.Run("matches a rule by exact BIN", func() {
		_, err := s.store.Save(s.ctx, s.newInstitution("BANKAAXX", "411111", "400123"))
		s.Require().NoError(err)

		found, err := s.store.FindByRuleBIN(s.ctx, "400123")
		s.Require().NoError(err)
		s.Equal("BANKAAXX", found.BIC)
	})

	s.Run("does not match by prefix containment", func() {
		_, err := s.store.Save(s.ctx, s.newInstitution("BANKCCXX", "411111"))
		s.Require().NoError(err)

		_, err = s.store.FindByRuleBIN(s.ctx, "4111")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByRuleBIN(s.ctx, "41111199")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestFindAll() {
	_, err := s.store.Save(s.ctx, s.newInstitution("BANKAAXX"))
	s.Require().NoError(err)
	_, err = s.store.Save(s.ctx, s.newInstitution("BANKBBXX"))
	s.Require().NoError(err)

	all, err := s.store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *MemoryStoreSuite) TestReturnsCopies() {
	now := time.Now().UTC()
	inst := s.newInstitution("BANKAAXX", "411111")
	inst.Breaker = models.BreakerState{Open: true, ConsecutiveFailures: 5, LastFailureAt: &now}
	_, err := s.store.Save(s.ctx, inst)
	s.Require().NoError(err)

	found, err := s.store.FindByBIC(s.ctx, "BANKAAXX")
	s.Require().NoError(err)

	// Mutating the returned record must not touch the stored one.
	found.RoutingRules[0].BINPrefix = "999999"
	*found.Breaker.LastFailureAt = now.Add(time.Hour)
	found.Breaker.Open = false

	again, err := s.store.FindByBIC(s.ctx, "BANKAAXX")
	s.Require().NoError(err)
	s.Equal("411111", again.RoutingRules[0].BINPrefix)
	s.True(again.Breaker.Open)
	s.Equal(now, *again.Breaker.LastFailureAt)
}
