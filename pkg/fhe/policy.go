package fhe

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownScenario is returned when a run names an unregistered decision
// scenario.
var ErrUnknownScenario = errors.New("fhe: unknown decision scenario")

// Decision categories. The set is closed; policies only vary thresholds.
const (
	DecisionApprove = "approve"
	DecisionReview  = "review"
	DecisionReject  = "reject"
)

// Policy is a named threshold table over the weighted signal. Decisions are
// identical on the encrypted and fallback paths because both feed the same
// decrypted scalar through Decide.
type Policy struct {
	Scenario string
	// ApproveAt and ReviewAt partition the signal axis:
	// signal >= ApproveAt -> approve; >= ReviewAt -> review; else reject.
	ApproveAt int64
	ReviewAt  int64

	ApproveReason string
	ReviewReason  string
	RejectReason  string
}

// Decide maps a weighted signal to a decision category and reason.
func (p Policy) Decide(signal int64) (decision, reason string) {
	switch {
	case signal >= p.ApproveAt:
		return DecisionApprove, p.ApproveReason
	case signal >= p.ReviewAt:
		return DecisionReview, p.ReviewReason
	default:
		return DecisionReject, p.RejectReason
	}
}

// policies is the closed set of registered decision scenarios.
var policies = map[string]Policy{
	"credit-risk": {
		Scenario:      "credit-risk",
		ApproveAt:     -220000,
		ReviewAt:      -320000,
		ApproveReason: "Strong credit and healthy debt-to-income profile",
		ReviewReason:  "Borderline profile; manual review recommended",
		RejectReason:  "Risk profile is above the current pre-approval threshold",
	},
	"private-loan-preapproval": {
		Scenario:      "private-loan-preapproval",
		ApproveAt:     -220000,
		ReviewAt:      -320000,
		ApproveReason: "Strong credit and healthy debt-to-income profile",
		ReviewReason:  "Borderline profile; manual review recommended",
		RejectReason:  "Risk profile is above the current pre-approval threshold",
	},
	"conservative-underwriting": {
		Scenario:      "conservative-underwriting",
		ApproveAt:     -120000,
		ReviewAt:      -260000,
		ApproveReason: "Profile clears the conservative approval threshold",
		ReviewReason:  "Profile requires underwriter review under conservative policy",
		RejectReason:  "Profile does not meet conservative underwriting limits",
	},
}

// PolicyFor resolves a scenario name to its registered policy.
func PolicyFor(scenario string) (Policy, error) {
	policiesMu.RLock()
	p, ok := policies[scenario]
	policiesMu.RUnlock()
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownScenario, scenario, Scenarios())
	}
	return p, nil
}

// Scenarios lists the registered scenario names, sorted.
func Scenarios() []string {
	policiesMu.RLock()
	defer policiesMu.RUnlock()
	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
