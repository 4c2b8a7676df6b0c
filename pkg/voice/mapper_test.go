package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/aegis/pkg/types"
)

func TestProfileIsDeterministic(t *testing.T) {
	a := Profile(types.RiskHighRisk, PhaseResult)
	b := Profile(types.RiskHighRisk, PhaseResult)
	assert.Equal(t, a, b)
}

func TestProfilePaceDecreasesWithRisk(t *testing.T) {
	safe := Profile(types.RiskSafe, PhaseResult)
	caution := Profile(types.RiskCaution, PhaseResult)
	high := Profile(types.RiskHighRisk, PhaseResult)
	danger := Profile(types.RiskDanger, PhaseResult)

	assert.Greater(t, safe.Pace, caution.Pace)
	assert.Greater(t, caution.Pace, high.Pace)
	assert.Greater(t, high.Pace, danger.Pace)
}

func TestProfileIntensityRisesWithRisk(t *testing.T) {
	assert.Equal(t, "calm", Profile(types.RiskSafe, PhaseAck).Intensity)
	assert.Equal(t, "attentive", Profile(types.RiskCaution, PhaseAck).Intensity)
	assert.Equal(t, "concerned", Profile(types.RiskHighRisk, PhaseAck).Intensity)
	assert.Equal(t, "urgent", Profile(types.RiskDanger, PhaseAck).Intensity)
}

func TestProfileCarriesPhaseTag(t *testing.T) {
	for _, phase := range []Phase{PhaseListening, PhaseAck, PhaseWorking, PhaseSafetyCheck, PhaseResult} {
		got := Profile(types.RiskSafe, phase)
		assert.Equal(t, string(phase), got.Phase)
	}
}

func TestSafetyCheckSlowsEvenWhenSafe(t *testing.T) {
	normal := Profile(types.RiskSafe, PhaseResult)
	check := Profile(types.RiskSafe, PhaseSafetyCheck)
	assert.Less(t, check.Pace, normal.Pace)
}
