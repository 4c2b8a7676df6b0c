package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SafetyPolicy holds the operator-tunable safety rules. It ships with
// conservative defaults; a YAML file overrides individual fields.
type SafetyPolicy struct {
	// SafePaymentDomains are glob patterns for domains where payment
	// flows are allowed at all. Payment actions anywhere else are
	// blocked before execution.
	SafePaymentDomains []string `yaml:"safe_payment_domains"`

	// FailClosed escalates unverifiable domains to CAUTION instead of
	// leaving the fast assessment untouched.
	FailClosed bool `yaml:"fail_closed"`

	// RepromptLimit is how many non-matching confirmation replies are
	// tolerated before the pending action is abandoned.
	RepromptLimit int `yaml:"reprompt_limit"`

	// ConfirmationExpirySec is the wall-clock lifetime of a pending
	// confirmation, in seconds.
	ConfirmationExpirySec int `yaml:"confirmation_expiry_sec"`

	// Services maps service names to their canonical domains. Entries
	// feed the offline verification registry.
	Services map[string]string `yaml:"services"`
}

// DefaultPolicy returns the built-in safety policy.
func DefaultPolicy() *SafetyPolicy {
	return &SafetyPolicy{
		SafePaymentDomains:    []string{"pge.com", "google.com"},
		FailClosed:            false,
		RepromptLimit:         3,
		ConfirmationExpirySec: 120,
		Services: map[string]string{
			"PG&E":   "pge.com",
			"Google": "google.com",
		},
	}
}

// LoadPolicy reads a safety policy file, applying defaults for any field
// the file omits. A missing file yields the default policy without error;
// a malformed file is an error because silently running without the
// operator's rules is worse than failing to start.
func LoadPolicy(path string) (*SafetyPolicy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return policy, nil
		}
		return nil, fmt.Errorf("failed to read safety policy: %w", err)
	}

	var overlay SafetyPolicy
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse safety policy: %w", err)
	}

	if len(overlay.SafePaymentDomains) > 0 {
		policy.SafePaymentDomains = overlay.SafePaymentDomains
	}
	policy.FailClosed = overlay.FailClosed
	if overlay.RepromptLimit > 0 {
		policy.RepromptLimit = overlay.RepromptLimit
	}
	if overlay.ConfirmationExpirySec > 0 {
		policy.ConfirmationExpirySec = overlay.ConfirmationExpirySec
	}
	if len(overlay.Services) > 0 {
		policy.Services = overlay.Services
	}
	return policy, nil
}

// ConfirmationExpiry returns the pending confirmation lifetime.
func (p *SafetyPolicy) ConfirmationExpiry() time.Duration {
	return time.Duration(p.ConfirmationExpirySec) * time.Second
}
