package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	settings := Load()

	assert.Equal(t, "0.0.0.0", settings.AppHost)
	assert.Equal(t, 8000, settings.AppPort)
	assert.Equal(t, 2*time.Second, settings.FastRiskTimeout)
	assert.Equal(t, 10*time.Second, settings.DeepRiskTimeout)
	assert.Equal(t, 3*time.Second, settings.OracleTimeout)
	assert.False(t, settings.EnableModel)
	assert.True(t, settings.Headless)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("ENABLE_MODEL", "true")
	t.Setenv("FAST_RISK_TIMEOUT_SEC", "2.5")
	t.Setenv("MODEL_NAME", "gpt-4.1")

	settings := Load()

	assert.Equal(t, 9000, settings.AppPort)
	assert.True(t, settings.EnableModel)
	assert.Equal(t, 2500*time.Millisecond, settings.FastRiskTimeout)
	assert.Equal(t, "gpt-4.1", settings.ModelName)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("APP_PORT", "not-a-number")
	t.Setenv("DEEP_RISK_TIMEOUT_SEC", "soon")

	settings := Load()

	assert.Equal(t, 8000, settings.AppPort)
	assert.Equal(t, 10*time.Second, settings.DeepRiskTimeout)
}

func TestLoadPolicyMissingFileUsesDefaults(t *testing.T) {
	policy, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Contains(t, policy.SafePaymentDomains, "pge.com")
	assert.Equal(t, 3, policy.RepromptLimit)
	assert.Equal(t, 2*time.Minute, policy.ConfirmationExpiry())
	assert.False(t, policy.FailClosed)
}

func TestLoadPolicyOverridesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := `
safe_payment_domains:
  - "chase.com"
  - "*.bankofamerica.com"
fail_closed: true
reprompt_limit: 2
services:
  Chase: chase.com
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	policy, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"chase.com", "*.bankofamerica.com"}, policy.SafePaymentDomains)
	assert.True(t, policy.FailClosed)
	assert.Equal(t, 2, policy.RepromptLimit)
	assert.Equal(t, "chase.com", policy.Services["Chase"])
	// Omitted fields keep their defaults.
	assert.Equal(t, 120, policy.ConfirmationExpirySec)
}

func TestLoadPolicyMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("safe_payment_domains: {bad"), 0600))

	_, err := LoadPolicy(path)
	assert.Error(t, err)
}
