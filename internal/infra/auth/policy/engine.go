// Package policy evaluates an optional OPA bundle for authorization
// decisions layered on top of the role checks.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"palisade/internal/domain"

	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.palisade.authz.result"

type Engine struct {
	query    rego.PreparedEvalQuery
	bundleID string
}

type policyResult struct {
	Allow bool                `json:"allow"`
	Deny  []domain.PolicyDeny `json:"deny"`
}

// NewEngineFromBundlePath compiles the rego bundle at the given path and
// prepares the authorization query.
func NewEngineFromBundlePath(ctx context.Context, bundlePath string, bundleID string) (*Engine, error) {
	if bundlePath == "" {
		return nil, errors.New("bundle path is required")
	}
	r := rego.New(
		rego.Query(defaultQuery),
		rego.StrictBuiltinErrors(true),
		rego.Load([]string{bundlePath}, nil),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	return &Engine{
		query:    prepared,
		bundleID: bundleID,
	}, nil
}

func (e *Engine) BundleID() string {
	if e == nil {
		return ""
	}
	return e.bundleID
}

func (e *Engine) Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyDecision, error) {
	if e == nil {
		return domain.PolicyDecision{}, errors.New("policy engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.PolicyDecision{}, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.PolicyDecision{}, errors.New("empty policy result")
	}
	result, err := decodePolicyResult(results[0].Expressions[0].Value)
	if err != nil {
		return domain.PolicyDecision{}, err
	}
	sort.Slice(result.Deny, func(i, j int) bool {
		if result.Deny[i].Code == result.Deny[j].Code {
			return result.Deny[i].Message < result.Deny[j].Message
		}
		return result.Deny[i].Code < result.Deny[j].Code
	})
	return domain.PolicyDecision{
		Allowed: result.Allow && len(result.Deny) == 0,
		Deny:    result.Deny,
	}, nil
}

func decodePolicyResult(value any) (policyResult, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return policyResult{}, err
	}
	var result policyResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return policyResult{}, err
	}
	return result, nil
}
