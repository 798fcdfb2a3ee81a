package handler

import (
	"time"

	"bindirectory/internal/directory/models"
)

// InstitutionResponse is the wire projection of an institution.
type InstitutionResponse struct {
	ID                string          `json:"id"`
	BIC               string          `json:"bic"`
	Name              string          `json:"name"`
	DestinationURL    string          `json:"destination_url"`
	PublicKey         string          `json:"public_key,omitempty"`
	OperationalStatus string          `json:"operational_status"`
	RoutingRules      []RuleResponse  `json:"routing_rules"`
	Breaker           BreakerResponse `json:"breaker"`
}

// RuleResponse is the wire projection of a routing rule.
type RuleResponse struct {
	BINPrefix string `json:"bin_prefix"`
	Agent     string `json:"agent"`
}

// BreakerResponse is the wire projection of the breaker state; the caller
// re-derives "found but unavailable" from Open on lookup responses.
type BreakerResponse struct {
	Open                bool       `json:"open"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
}

// FromInstitution converts a domain record to its wire projection.
func FromInstitution(inst *models.Institution) InstitutionResponse {
	rules := make([]RuleResponse, 0, len(inst.RoutingRules))
	for _, rule := range inst.RoutingRules {
		rules = append(rules, RuleResponse{BINPrefix: rule.BINPrefix, Agent: rule.Agent})
	}
	return InstitutionResponse{
		ID:                inst.ID,
		BIC:               inst.BIC,
		Name:              inst.Name,
		DestinationURL:    inst.DestinationURL,
		PublicKey:         inst.PublicKey,
		OperationalStatus: string(inst.OperationalStatus),
		RoutingRules:      rules,
		Breaker: BreakerResponse{
			Open:                inst.Breaker.Open,
			ConsecutiveFailures: inst.Breaker.ConsecutiveFailures,
			LastFailureAt:       inst.Breaker.LastFailureAt,
		},
	}
}

// FromInstitutions converts a directory listing.
func FromInstitutions(insts []models.Institution) []InstitutionResponse {
	out := make([]InstitutionResponse, 0, len(insts))
	for i := range insts {
		out = append(out, FromInstitution(&insts[i]))
	}
	return out
}
