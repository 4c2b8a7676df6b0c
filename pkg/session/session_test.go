package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/aegis/pkg/types"
)

func TestBeginTurnResetsStepsAndBumpsGeneration(t *testing.T) {
	s := New()

	gen1 := s.BeginTurn("pay my bill")
	s.RecordStep()
	s.RecordStep()
	assert.Equal(t, 2, s.StepCount())
	assert.Equal(t, "pay my bill", s.Goal())

	gen2 := s.BeginTurn("go to google")
	assert.Equal(t, 0, s.StepCount())
	assert.Greater(t, gen2, gen1)
}

func TestStaleGenerationDetection(t *testing.T) {
	s := New()

	gen := s.BeginTurn("first")
	assert.False(t, s.IsStale(gen))

	s.BeginTurn("second")
	assert.True(t, s.IsStale(gen), "results from a superseded turn must be discarded")
}

func TestBumpGenerationInvalidatesWithoutResettingSteps(t *testing.T) {
	s := New()

	gen := s.BeginTurn("goal")
	s.RecordStep()
	s.BumpGeneration()

	assert.True(t, s.IsStale(gen))
	assert.Equal(t, 1, s.StepCount())
}

func TestEscalateRiskNeverLowers(t *testing.T) {
	s := New()

	s.EscalateRisk(types.RiskHighRisk)
	got := s.EscalateRisk(types.RiskCaution)

	assert.Equal(t, types.RiskHighRisk, got)
	assert.Equal(t, types.RiskHighRisk, s.RiskLevel())
}

func TestStableRiskRestore(t *testing.T) {
	s := New()

	s.SetRisk(types.RiskCaution)
	s.MarkStableRisk()
	s.EscalateRisk(types.RiskHighRisk)
	require.Equal(t, types.RiskHighRisk, s.RiskLevel())

	restored := s.RestoreStableRisk()
	assert.Equal(t, types.RiskCaution, restored)
	assert.Equal(t, types.RiskCaution, s.RiskLevel())
}

func TestVisitedDomainHistory(t *testing.T) {
	s := New()

	s.VisitDomain("https://www.google.com/search", "google.com")
	s.VisitDomain("https://www.google.com/maps", "google.com")
	s.VisitDomain("https://www.pge.com", "pge.com")

	assert.Equal(t, []string{"google.com", "pge.com"}, s.VisitedDomains())
	assert.Equal(t, "https://www.pge.com", s.LastURL())
}

func TestSafeDomainAllowlist(t *testing.T) {
	s := New(WithSafeDomains([]string{"pge.com", "*.google.com"}))

	assert.True(t, s.IsSafeDomain("pge.com"))
	assert.True(t, s.IsSafeDomain("accounts.google.com"))
	assert.False(t, s.IsSafeDomain("pge-billing-urgent.com"))
	assert.False(t, s.IsSafeDomain("google.com.evil.net"))
}

func TestSafeDomainAllowlistSkipsBadPatterns(t *testing.T) {
	s := New(WithSafeDomains([]string{"pge.com", "[", ""}))
	assert.Equal(t, []string{"pge.com"}, s.SafeDomains())
}
