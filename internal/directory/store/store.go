// Package store defines the institution store contract the resolution
// engine depends on. Concrete backends live in the memory and postgres
// sub-packages and are injected behind this interface; the engine is
// implemented exactly once against it.
package store

import (
	"context"

	"bindirectory/internal/directory/models"
)

// Store is durable keyed storage for institution records.
//
// FindByBIC and FindByRuleBIN return sentinel.ErrNotFound (possibly wrapped)
// when nothing matches. FindByRuleBIN matches a routing rule's BIN by exact
// string equality, never by prefix containment.
//
// Save performs a full-record upsert and assigns a store-generated ID when
// the record has none. The engine's check-then-act sequences (registration
// uniqueness, failure-threshold counting) tolerate last-writer-wins races on
// top of this contract; eliminating them would require the backend to offer
// conditional (compare-and-swap) writes, which is an extension point of this
// interface, not a requirement.
type Store interface {
	FindByBIC(ctx context.Context, bic string) (*models.Institution, error)
	FindByRuleBIN(ctx context.Context, bin string) (*models.Institution, error)
	FindAll(ctx context.Context) ([]models.Institution, error)
	Save(ctx context.Context, inst *models.Institution) (*models.Institution, error)
}
