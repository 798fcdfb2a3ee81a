package handler

import (
	"time"

	"bindirectory/internal/directory/models"
)

// RegisterRequest is the body for POST /api/v1/institutions. Breaker state
// may be supplied by migration tooling; normal registrations omit it and get
// a closed breaker.
type RegisterRequest struct {
	BIC               string          `json:"bic"`
	Name              string          `json:"name"`
	DestinationURL    string          `json:"destination_url"`
	PublicKey         string          `json:"public_key"`
	OperationalStatus string          `json:"operational_status"`
	RoutingRules      []RuleRequest   `json:"routing_rules"`
	Breaker           *BreakerRequest `json:"breaker,omitempty"`
}

// RuleRequest is the body for POST /api/v1/institutions/{bic}/rules and the
// rule element inside RegisterRequest.
type RuleRequest struct {
	BINPrefix string `json:"bin_prefix"`
	Agent     string `json:"agent"`
}

// BreakerRequest mirrors the persisted breaker state on registration.
type BreakerRequest struct {
	Open                bool       `json:"open"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
}

// ToModel converts the registration body into a domain record.
func (r RegisterRequest) ToModel() *models.Institution {
	inst := &models.Institution{
		BIC:               r.BIC,
		Name:              r.Name,
		DestinationURL:    r.DestinationURL,
		PublicKey:         r.PublicKey,
		OperationalStatus: models.OperationalStatus(r.OperationalStatus),
	}
	if r.RoutingRules != nil {
		inst.RoutingRules = make([]models.RoutingRule, 0, len(r.RoutingRules))
		for _, rule := range r.RoutingRules {
			inst.RoutingRules = append(inst.RoutingRules, rule.ToModel())
		}
	}
	if r.Breaker != nil {
		inst.Breaker = models.BreakerState{
			Open:                r.Breaker.Open,
			ConsecutiveFailures: r.Breaker.ConsecutiveFailures,
			LastFailureAt:       r.Breaker.LastFailureAt,
		}
	}
	return inst
}

// ToModel converts a rule body into a domain rule.
func (r RuleRequest) ToModel() models.RoutingRule {
	return models.RoutingRule{BINPrefix: r.BINPrefix, Agent: r.Agent}
}
