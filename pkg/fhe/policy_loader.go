package fhe

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

var policiesMu sync.RWMutex

// policyProfile is the YAML shape of an operator-supplied scenario policy.
type policyProfile struct {
	Scenario      string `yaml:"scenario"`
	ApproveAt     int64  `yaml:"approve_at"`
	ReviewAt      int64  `yaml:"review_at"`
	ApproveReason string `yaml:"approve_reason"`
	ReviewReason  string `yaml:"review_reason"`
	RejectReason  string `yaml:"reject_reason"`
}

// LoadPolicyProfiles registers additional scenario policies from a YAML
// file. Built-in scenarios cannot be overridden; thresholds must satisfy
// ReviewAt <= ApproveAt.
func LoadPolicyProfiles(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("policy profiles: %w", err)
	}

	var profiles []policyProfile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return fmt.Errorf("policy profiles: parse %s: %w", path, err)
	}

	policiesMu.Lock()
	defer policiesMu.Unlock()
	for _, prof := range profiles {
		if prof.Scenario == "" {
			return fmt.Errorf("policy profiles: scenario name must not be empty")
		}
		if _, exists := policies[prof.Scenario]; exists {
			return fmt.Errorf("policy profiles: scenario %q already registered", prof.Scenario)
		}
		if prof.ReviewAt > prof.ApproveAt {
			return fmt.Errorf("policy profiles: scenario %q: review threshold above approve threshold", prof.Scenario)
		}
		policies[prof.Scenario] = Policy{
			Scenario:      prof.Scenario,
			ApproveAt:     prof.ApproveAt,
			ReviewAt:      prof.ReviewAt,
			ApproveReason: prof.ApproveReason,
			ReviewReason:  prof.ReviewReason,
			RejectReason:  prof.RejectReason,
		}
	}
	return nil
}
