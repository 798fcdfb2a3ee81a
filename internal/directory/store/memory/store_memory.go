// Package memory provides an in-memory Store. Suitable for dev and tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"bindirectory/internal/directory/models"
	"bindirectory/pkg/platform/sentinel"
)

// Store holds institutions in memory, keyed by BIC.
type Store struct {
	mu           sync.RWMutex
	institutions map[string]models.Institution
}

// New initializes an empty in-memory store.
func New() *Store {
	return &Store{institutions: make(map[string]models.Institution)}
}

// FindByBIC returns a copy of the institution with the given business key.
func (s *Store) FindByBIC(_ context.Context, bic string) (*models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.institutions[bic]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := copyInstitution(inst)
	return &cp, nil
}

// FindByRuleBIN returns the first institution owning a rule whose BIN equals
// bin. Map iteration order stands in for the scan order of a real backend:
// it is not guaranteed stable, which the engine's contract allows.
func (s *Store) FindByRuleBIN(_ context.Context, bin string) (*models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, inst := range s.institutions {
		for _, rule := range inst.RoutingRules {
			if rule.BINPrefix == bin {
				cp := copyInstitution(inst)
				return &cp, nil
			}
		}
	}
	return nil, sentinel.ErrNotFound
}

// FindAll returns copies of every stored institution, unordered.
func (s *Store) FindAll(_ context.Context) ([]models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.Institution, 0, len(s.institutions))
	for _, inst := range s.institutions {
		all = append(all, copyInstitution(inst))
	}
	return all, nil
}

// Save upserts the institution, assigning an ID when it has none.
func (s *Store) Save(_ context.Context, inst *models.Institution) (*models.Institution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := copyInstitution(*inst)
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	s.institutions[cp.BIC] = cp

	out := copyInstitution(cp)
	return &out, nil
}

// copyInstitution deep-copies the record so callers never share slices or
// pointers with the stored value.
func copyInstitution(inst models.Institution) models.Institution {
	cp := inst
	cp.RoutingRules = append([]models.RoutingRule(nil), inst.RoutingRules...)
	if inst.Breaker.LastFailureAt != nil {
		t := *inst.Breaker.LastFailureAt
		cp.Breaker.LastFailureAt = &t
	}
	return cp
}
