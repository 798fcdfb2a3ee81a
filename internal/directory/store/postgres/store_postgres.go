// Package postgres provides the PostgreSQL-backed institution store.
// Routing rules are stored denormalized as JSONB on the institution row,
// mirroring the document shape the rest of the engine works with.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"bindirectory/internal/directory/models"
	"bindirectory/pkg/platform/sentinel"
)

// Schema creates the institutions table. Applied at startup and by the
// integration test suite; there is no migration tooling in this service.
const Schema = `
CREATE TABLE IF NOT EXISTS institutions (
    id                   UUID PRIMARY KEY,
    bic                  TEXT NOT NULL UNIQUE,
    name                 TEXT NOT NULL DEFAULT '',
    destination_url      TEXT NOT NULL DEFAULT '',
    public_key           TEXT NOT NULL DEFAULT '',
    operational_status   TEXT NOT NULL DEFAULT 'ONLINE',
    routing_rules        JSONB NOT NULL DEFAULT '[]',
    breaker_open         BOOLEAN NOT NULL DEFAULT FALSE,
    breaker_failures     INT NOT NULL DEFAULT 0,
    breaker_last_failure TIMESTAMPTZ
)`

const selectColumns = `id, bic, name, destination_url, public_key, operational_status,
       routing_rules, breaker_open, breaker_failures, breaker_last_failure`

// Store persists institutions in PostgreSQL via database/sql.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema applies the institutions table schema.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure institutions schema: %w", err)
	}
	return nil
}

func (s *Store) FindByBIC(ctx context.Context, bic string) (*models.Institution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM institutions WHERE bic = $1`, bic)
	return scanInstitution(row)
}

// FindByRuleBIN matches a routing rule's BIN by exact equality inside the
// JSONB rule array. No ordering is imposed, so which row wins when two
// institutions claim the same BIN is backend-dependent, as the store
// contract allows.
func (s *Store) FindByRuleBIN(ctx context.Context, bin string) (*models.Institution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM institutions
		 WHERE EXISTS (
		     SELECT 1 FROM jsonb_array_elements(routing_rules) AS rule
		     WHERE rule->>'bin_prefix' = $1
		 )
		 LIMIT 1`, bin)
	return scanInstitution(row)
}

func (s *Store) FindAll(ctx context.Context) ([]models.Institution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM institutions`)
	if err != nil {
		return nil, fmt.Errorf("query institutions: %w", err)
	}
	defer rows.Close()

	var all []models.Institution
	for rows.Next() {
		inst, err := scanInstitution(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate institutions: %w", err)
	}
	return all, nil
}

func (s *Store) Save(ctx context.Context, inst *models.Institution) (*models.Institution, error) {
	cp := *inst
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}

	rules, err := json.Marshal(cp.RoutingRules)
	if err != nil {
		return nil, fmt.Errorf("marshal routing rules: %w", err)
	}

	var lastFailure sql.NullTime
	if cp.Breaker.LastFailureAt != nil {
		lastFailure = sql.NullTime{Time: *cp.Breaker.LastFailureAt, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO institutions
		     (id, bic, name, destination_url, public_key, operational_status,
		      routing_rules, breaker_open, breaker_failures, breaker_last_failure)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (bic) DO UPDATE SET
		     name = EXCLUDED.name,
		     destination_url = EXCLUDED.destination_url,
		     public_key = EXCLUDED.public_key,
		     operational_status = EXCLUDED.operational_status,
		     routing_rules = EXCLUDED.routing_rules,
		     breaker_open = EXCLUDED.breaker_open,
		     breaker_failures = EXCLUDED.breaker_failures,
		     breaker_last_failure = EXCLUDED.breaker_last_failure`,
		cp.ID, cp.BIC, cp.Name, cp.DestinationURL, cp.PublicKey, string(cp.OperationalStatus),
		rules, cp.Breaker.Open, cp.Breaker.ConsecutiveFailures, lastFailure)
	if err != nil {
		return nil, fmt.Errorf("save institution %s: %w", cp.BIC, err)
	}

	// Re-read so the caller observes the stored record, ID included.
	return s.FindByBIC(ctx, cp.BIC)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstitution(row rowScanner) (*models.Institution, error) {
	var (
		inst        models.Institution
		status      string
		rules       []byte
		lastFailure sql.NullTime
	)
	err := row.Scan(&inst.ID, &inst.BIC, &inst.Name, &inst.DestinationURL, &inst.PublicKey,
		&status, &rules, &inst.Breaker.Open, &inst.Breaker.ConsecutiveFailures, &lastFailure)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan institution: %w", err)
	}

	inst.OperationalStatus = models.OperationalStatus(status)
	if err := json.Unmarshal(rules, &inst.RoutingRules); err != nil {
		return nil, fmt.Errorf("unmarshal routing rules: %w", err)
	}
	if inst.RoutingRules == nil {
		inst.RoutingRules = []models.RoutingRule{}
	}
	if lastFailure.Valid {
		t := lastFailure.Time.UTC()
		inst.Breaker.LastFailureAt = &t
	}
	return &inst, nil
}
