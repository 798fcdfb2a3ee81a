// Package models defines the directory's domain records.
package models

import (
	"strings"
	"time"

	dErrors "bindirectory/pkg/domain-errors"
)

// Institution is a participating bank in the switch directory.
//
// Invariants:
//   - BIC is the unique business key, immutable after registration
//   - RoutingRules is never nil after registration (defaulted to empty)
//   - Breaker always holds a valid state (defaulted to closed, zero failures)
//
// The store exclusively owns durability; every mutation is read-modify-write
// against the store, and the engine holds no authoritative copy across
// requests.
type Institution struct {
	ID                string            `json:"id"`
	BIC               string            `json:"bic"`
	Name              string            `json:"name"`
	DestinationURL    string            `json:"destination_url"`
	PublicKey         string            `json:"public_key"`
	OperationalStatus OperationalStatus `json:"operational_status"`
	RoutingRules      []RoutingRule     `json:"routing_rules"`
	Breaker           BreakerState      `json:"breaker"`
}

// RoutingRule associates a BIN with the agent that handles it.
//
// The field is named "prefix" for historical reasons: matching is by
// full-string equality, never by prefix containment.
type RoutingRule struct {
	BINPrefix string `json:"bin_prefix"`
	Agent     string `json:"agent"`
}

// BreakerState is the per-institution circuit-breaker record persisted
// alongside the institution. The pure transition logic lives in the breaker
// package; this struct is only data.
type BreakerState struct {
	Open                bool       `json:"open"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
}

// RuleBINs returns the BIN of every routing rule the institution owns,
// used to invalidate all of its cache entries in one call.
func (i *Institution) RuleBINs() []string {
	bins := make([]string, 0, len(i.RoutingRules))
	for _, rule := range i.RoutingRules {
		bins = append(bins, rule.BINPrefix)
	}
	return bins
}

// OperationalStatus is the administrative state of an institution. It is
// orthogonal to the breaker: operators set it, the breaker trips on its own.
type OperationalStatus string

const (
	StatusOnline      OperationalStatus = "ONLINE"
	StatusOffline     OperationalStatus = "OFFLINE"
	StatusMaintenance OperationalStatus = "MAINTENANCE"
	StatusSuspended   OperationalStatus = "SUSPENDED"
	StatusReceiveOnly OperationalStatus = "RECEIVE_ONLY"
)

var validStatuses = map[OperationalStatus]struct{}{
	StatusOnline:      {},
	StatusOffline:     {},
	StatusMaintenance: {},
	StatusSuspended:   {},
	StatusReceiveOnly: {},
}

// ParseOperationalStatus validates a free-text status, case-insensitively.
// Only the five canonical values are accepted.
func ParseOperationalStatus(raw string) (OperationalStatus, error) {
	status := OperationalStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := validStatuses[status]; !ok {
		return "", dErrors.New(dErrors.CodeValidation,
			"invalid status, use: ONLINE, OFFLINE, MAINTENANCE, SUSPENDED or RECEIVE_ONLY")
	}
	return status, nil
}
