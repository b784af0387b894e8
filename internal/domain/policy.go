package domain

import "context"

// PolicyInput is the document handed to the optional policy engine for one
// authorization decision.
type PolicyInput struct {
	Subject     string   `json:"subject"`
	Tenant      string   `json:"tenant"`
	Authorities []string `json:"authorities"`
	Action      string   `json:"action"`
	Resource    string   `json:"resource"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PolicyDecision struct {
	Allowed bool
	Deny    []PolicyDeny
}

type PolicyEvaluator interface {
	Evaluate(ctx context.Context, input PolicyInput) (PolicyDecision, error)
}
