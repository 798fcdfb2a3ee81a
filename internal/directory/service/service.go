// Package service implements the directory resolution engine: registry
// operations, BIN resolution through the cache-aside layer, and the
// circuit-breaker gate, composed over an injected Store and cache.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"bindirectory/internal/directory/breaker"
	"bindirectory/internal/directory/cache"
	"bindirectory/internal/directory/metrics"
	"bindirectory/internal/directory/models"
	"bindirectory/internal/directory/store"
	dErrors "bindirectory/pkg/domain-errors"
	"bindirectory/pkg/platform/sentinel"
	"bindirectory/pkg/requestcontext"
)

// Service orchestrates institution registration, BIN resolution, and
// failure reporting. It is stateless between requests: authoritative state
// lives in the store, transient state in the cache, and every mutation is a
// read-modify-write against the store.
type Service struct {
	store   store.Store
	cache   *cache.Lookup
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches engine metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the resolution service over its two collaborators.
func New(st store.Store, lookup *cache.Lookup, opts ...Option) *Service {
	s := &Service{
		store:  st,
		cache:  lookup,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new institution. The BIC is required and must not
// already exist. When omitted, breaker state defaults to closed with zero
// failures (the zero value) and the rule list to empty.
func (s *Service) Register(ctx context.Context, inst *models.Institution) (*models.Institution, error) {
	if strings.TrimSpace(inst.BIC) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "bic is required")
	}

	_, err := s.store.FindByBIC(ctx, inst.BIC)
	switch {
	case err == nil:
		return nil, dErrors.New(dErrors.CodeConflict, "institution with BIC "+inst.BIC+" already exists")
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check BIC uniqueness")
	}

	cp := *inst
	if cp.RoutingRules == nil {
		cp.RoutingRules = []models.RoutingRule{}
	}

	saved, err := s.store.Save(ctx, &cp)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save institution")
	}

	s.logger.InfoContext(ctx, "institution registered", "bic", saved.BIC)
	return saved, nil
}

// ListAll returns the full directory, unordered.
func (s *Service) ListAll(ctx context.Context) ([]models.Institution, error) {
	all, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list institutions")
	}
	return all, nil
}

// FindByBIC reads an institution directly from the store, gated through the
// breaker (persisting auto-recovery when it occurs). Returns (nil, nil) both
// when the BIC is unknown and when the institution is gated unavailable; the
// cache is neither consulted nor populated.
func (s *Service) FindByBIC(ctx context.Context, bic string) (*models.Institution, error) {
	if bic == "" {
		return nil, nil
	}

	inst, err := s.store.FindByBIC(ctx, bic)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read institution")
	}

	available, err := s.checkAvailability(ctx, inst)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, nil
	}
	return inst, nil
}

// AddRule appends a routing rule to an existing institution and invalidates
// the cache entry for the rule's BIN so the next resolution reads the store.
func (s *Service) AddRule(ctx context.Context, bic string, rule models.RoutingRule) (*models.Institution, error) {
	if strings.TrimSpace(rule.BINPrefix) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "bin_prefix is required")
	}

	inst, err := s.store.FindByBIC(ctx, bic)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "institution not found: "+bic)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read institution")
	}

	if inst.RoutingRules == nil {
		inst.RoutingRules = []models.RoutingRule{}
	}
	inst.RoutingRules = append(inst.RoutingRules, rule)

	s.cache.Invalidate(ctx, rule.BINPrefix)

	saved, err := s.store.Save(ctx, inst)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save institution")
	}
	return saved, nil
}

// ResolveByBIN answers "which institution owns this BIN and is it currently
// reachable".
//
// A cache hit is returned unchanged, embedded breaker state included,
// without re-running the gate. An institution that recovered after being
// cached open stays invisible until the TTL expires or an invalidation
// lands. On a miss the store is scanned for an exact rule match, the gate
// runs (persisting auto-recovery), and only a reachable result is written
// back to the cache.
//
// Returns (nil, nil) for an empty BIN, an unmatched BIN, and a matched but
// unavailable institution alike.
func (s *Service) ResolveByBIN(ctx context.Context, bin string) (*models.Institution, error) {
	if bin == "" {
		return nil, nil
	}

	if snapshot := s.cache.TryGet(ctx, bin); snapshot != nil {
		s.metrics.RecordLookup(metrics.OutcomeCacheHit)
		return snapshot, nil
	}

	inst, err := s.store.FindByRuleBIN(ctx, bin)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.metrics.RecordLookup(metrics.OutcomeMiss)
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve BIN")
	}

	available, err := s.checkAvailability(ctx, inst)
	if err != nil {
		return nil, err
	}
	if !available {
		s.metrics.RecordLookup(metrics.OutcomeUnavailable)
		return nil, nil
	}

	s.cache.Put(ctx, bin, inst)
	s.metrics.RecordLookup(metrics.OutcomeStoreHit)
	return inst, nil
}

// ReportFailure records a delivery failure against an institution's breaker.
// Unknown BICs are a silent no-op. When the report trips the breaker open,
// every cache entry for the institution's rules is invalidated before the
// state is persisted.
func (s *Service) ReportFailure(ctx context.Context, bic string) error {
	if bic == "" {
		return nil
	}

	inst, err := s.store.FindByBIC(ctx, bic)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read institution")
	}

	now := requestcontext.Now(ctx)
	updated, opened := breaker.RecordFailure(inst.Breaker, now)
	inst.Breaker = updated

	if opened {
		s.logger.ErrorContext(ctx, "circuit breaker opened", "bic", bic)
		s.metrics.RecordBreakerOpened()
		s.cache.Invalidate(ctx, inst.RuleBINs()...)
	}

	if _, err := s.store.Save(ctx, inst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist breaker state")
	}
	return nil
}

// UpdateRestricted applies the operator-restricted mutation: operational
// status (validated against the five canonical values, case-insensitively)
// and destination URL (replaced only when non-blank). The institution's
// cache entries are always invalidated, whether or not anything changed.
func (s *Service) UpdateRestricted(ctx context.Context, bic string, newStatus, newURL *string) (*models.Institution, error) {
	inst, err := s.store.FindByBIC(ctx, bic)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "institution not found: "+bic)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read institution")
	}

	if newStatus != nil {
		status, err := models.ParseOperationalStatus(*newStatus)
		if err != nil {
			return nil, err
		}
		inst.OperationalStatus = status
	}

	if newURL != nil && strings.TrimSpace(*newURL) != "" {
		inst.DestinationURL = *newURL
	}

	s.cache.Invalidate(ctx, inst.RuleBINs()...)

	saved, err := s.store.Save(ctx, inst)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save institution")
	}

	s.logger.InfoContext(ctx, "restricted parameters updated", "bic", bic)
	return saved, nil
}

// checkAvailability runs the breaker gate with the request-scoped clock and
// persists an auto-recovery transition immediately, before the result is
// used anywhere else.
func (s *Service) checkAvailability(ctx context.Context, inst *models.Institution) (bool, error) {
	now := requestcontext.Now(ctx)
	available, updated, recovered := breaker.Check(inst.Breaker, now)
	inst.Breaker = updated

	if recovered {
		if _, err := s.store.Save(ctx, inst); err != nil {
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist breaker recovery")
		}
		s.logger.InfoContext(ctx, "circuit breaker closed after cooldown", "bic", inst.BIC)
		s.metrics.RecordBreakerRecovered()
	}
	return available, nil
}
