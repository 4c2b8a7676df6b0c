package types

// ConfidenceLevel describes how much trust a classification pass deserves.
type ConfidenceLevel string

const (
	// ConfidenceFull means the pass completed normally.
	ConfidenceFull ConfidenceLevel = "full"

	// ConfidenceDegraded means the pass timed out or fell back to a
	// deterministic rule; its level is retained but treated cautiously.
	ConfidenceDegraded ConfidenceLevel = "degraded"

	// ConfidenceMissing means the pass never produced a result.
	ConfidenceMissing ConfidenceLevel = "missing"
)

// Confidence records per-pass confidence for a fused assessment.
type Confidence struct {
	// Fast is the confidence of the provisional pre-execution pass.
	Fast ConfidenceLevel `json:"fast"`

	// Deep is the confidence of the authoritative post-execution pass.
	Deep ConfidenceLevel `json:"deep"`
}

// RiskAssessment is the structured judgment of one classification pass, or
// of the fusion of several passes.
type RiskAssessment struct {
	// Level is the assessed risk level.
	Level RiskLevel `json:"level"`

	// Reasons lists the signals behind the level, in order of weight.
	Reasons []string `json:"reasons"`

	// RecommendedAction is the handling the assessment recommends.
	RecommendedAction RecommendedAction `json:"recommended_action"`

	// VoiceMessage is the narration to speak to the user.
	VoiceMessage string `json:"voice_message"`

	// ConfirmationPhrase is the phrase the user must speak before a
	// gated action proceeds. Empty when no confirmation is needed.
	ConfirmationPhrase string `json:"confirmation_phrase,omitempty"`

	// Confidence records how much trust each pass deserves.
	Confidence Confidence `json:"confidence"`
}

// VerificationStatus is the outcome category of a domain identity check.
type VerificationStatus string

const (
	// VerificationMatched means the observed domain belongs to the
	// claimed service.
	VerificationMatched VerificationStatus = "matched"

	// VerificationMismatched means the observed domain does not belong
	// to the claimed service. Forces DANGER, absolutely.
	VerificationMismatched VerificationStatus = "mismatched"

	// VerificationUnverified means the oracle timed out or failed. Does
	// not by itself raise risk (fail-open), but is surfaced as a caveat.
	VerificationUnverified VerificationStatus = "unverified"
)

// DomainVerificationResult is the outcome of checking an observed domain
// against the canonical domain of a claimed service.
type DomainVerificationResult struct {
	// ClaimedServiceName is the service the planner claimed.
	ClaimedServiceName string `json:"claimed_service_name"`

	// VerifiedDomain is the canonical domain the oracle returned, empty
	// when the lookup did not complete.
	VerifiedDomain string `json:"verified_domain,omitempty"`

	// ObservedDomain is the normalized domain the browser is on.
	ObservedDomain string `json:"observed_domain"`

	// Matched is true when the observed domain belongs to the verified
	// domain.
	Matched bool `json:"matched"`

	// Status categorizes the outcome.
	Status VerificationStatus `json:"verification_status"`
}
