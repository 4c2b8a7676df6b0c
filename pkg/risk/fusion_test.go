package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/aegis/pkg/types"
)

func TestFuseEscalationMonotonicity(t *testing.T) {
	levels := []types.RiskLevel{types.RiskSafe, types.RiskCaution, types.RiskHighRisk, types.RiskDanger}

	for _, fastLevel := range levels {
		for _, deepLevel := range levels {
			fast := &types.RiskAssessment{Level: fastLevel}
			deep := &types.RiskAssessment{Level: deepLevel}

			fused := Fuse(fast, deep, nil, false)

			want := fastLevel.Max(deepLevel)
			assert.Equal(t, want, fused.Level, "fast=%v deep=%v", fastLevel, deepLevel)
			assert.GreaterOrEqual(t, fused.Level, fastLevel)
			assert.GreaterOrEqual(t, fused.Level, deepLevel)
		}
	}
}

func TestFuseRecommendationFromMaxContributor(t *testing.T) {
	fast := &types.RiskAssessment{Level: types.RiskCaution, RecommendedAction: types.ActionNarrate}
	deep := &types.RiskAssessment{Level: types.RiskHighRisk, RecommendedAction: types.ActionWarn}

	fused := Fuse(fast, deep, nil, false)

	assert.Equal(t, types.RiskHighRisk, fused.Level)
	assert.Equal(t, types.ActionWarn, fused.RecommendedAction)
}

func TestFuseTiePrefersMoreRestrictive(t *testing.T) {
	fast := &types.RiskAssessment{Level: types.RiskHighRisk, RecommendedAction: types.ActionWarn}
	deep := &types.RiskAssessment{Level: types.RiskHighRisk, RecommendedAction: types.ActionNarrate}

	fused := Fuse(fast, deep, nil, false)
	assert.Equal(t, types.ActionWarn, fused.RecommendedAction)

	fused = Fuse(
		&types.RiskAssessment{Level: types.RiskHighRisk, RecommendedAction: types.ActionNarrate},
		&types.RiskAssessment{Level: types.RiskHighRisk, RecommendedAction: types.ActionBlock},
		nil, false)
	assert.Equal(t, types.ActionBlock, fused.RecommendedAction)
}

func TestFuseMissingDeepDegradesConfidence(t *testing.T) {
	fast := &types.RiskAssessment{
		Level:             types.RiskCaution,
		RecommendedAction: types.ActionNarrate,
		Confidence:        types.Confidence{Fast: types.ConfidenceFull},
	}

	fused := Fuse(fast, nil, nil, false)

	assert.Equal(t, types.RiskCaution, fused.Level)
	assert.Equal(t, types.ConfidenceDegraded, fused.Confidence.Deep)
}

func TestFuseMissingDeepForbidsProceedWhenRisky(t *testing.T) {
	fast := &types.RiskAssessment{
		Level:             types.RiskHighRisk,
		RecommendedAction: types.ActionProceed,
	}

	fused := Fuse(fast, nil, nil, false)

	assert.Equal(t, types.ActionWarn, fused.RecommendedAction,
		"uncertain-and-risky must default to pause-and-ask")
}

func TestFuseDomainMismatchAbsoluteOverride(t *testing.T) {
	fast := &types.RiskAssessment{Level: types.RiskSafe, RecommendedAction: types.ActionProceed}
	deep := &types.RiskAssessment{Level: types.RiskSafe, RecommendedAction: types.ActionProceed}
	verification := &types.DomainVerificationResult{
		ClaimedServiceName: "PG&E",
		VerifiedDomain:     "pge.com",
		ObservedDomain:     "pge-billing-urgent.com",
		Matched:            false,
		Status:             types.VerificationMismatched,
	}

	fused := Fuse(fast, deep, verification, false)

	assert.Equal(t, types.RiskDanger, fused.Level,
		"mismatch forces DANGER even when classifiers said SAFE")
	assert.Equal(t, types.ActionBlock, fused.RecommendedAction)
	assert.Contains(t, fused.VoiceMessage, "pge.com")
	assert.Contains(t, fused.VoiceMessage, "pge-billing-urgent.com")
}

func TestFuseUnverifiedFailOpen(t *testing.T) {
	fast := &types.RiskAssessment{Level: types.RiskSafe, RecommendedAction: types.ActionProceed}
	verification := &types.DomainVerificationResult{
		ClaimedServiceName: "Google",
		ObservedDomain:     "google.com",
		Status:             types.VerificationUnverified,
	}

	fused := Fuse(fast, nil, verification, false)

	assert.Equal(t, types.RiskSafe, fused.Level, "unverified must not escalate by itself")
	assert.Contains(t, fused.Reasons, "I could not verify this site's identity.")
}

func TestFuseUnverifiedFailClosed(t *testing.T) {
	fast := &types.RiskAssessment{Level: types.RiskSafe, RecommendedAction: types.ActionProceed}
	verification := &types.DomainVerificationResult{
		Status: types.VerificationUnverified,
	}

	fused := Fuse(fast, nil, verification, true)

	assert.Equal(t, types.RiskCaution, fused.Level)
}

func TestFuseDeepAuthoritativeForNarration(t *testing.T) {
	fast := &types.RiskAssessment{Level: types.RiskCaution, VoiceMessage: "provisional"}
	deep := &types.RiskAssessment{
		Level:              types.RiskCaution,
		VoiceMessage:       "I'm on the PG&E login page.",
		ConfirmationPhrase: "yes, pay $142.50 to PG&E",
	}

	fused := Fuse(fast, deep, nil, false)

	assert.Equal(t, "I'm on the PG&E login page.", fused.VoiceMessage)
	assert.Equal(t, "yes, pay $142.50 to PG&E", fused.ConfirmationPhrase)
}
