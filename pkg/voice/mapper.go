// Package voice maps (risk level, loop phase) to the narration output
// profile consumed by the voice collaborator. The mapping is a pure,
// side-effect-free table: higher risk slows the pace and raises the
// delivery intensity so a listener who cannot see the page hears the
// difference between routine narration and a safety warning.
package voice

import (
	"time"

	"github.com/entrhq/aegis/pkg/types"
)

// Phase is the loop phase a narration belongs to.
type Phase string

const (
	// PhaseListening means the agent is waiting for an utterance.
	PhaseListening Phase = "LISTENING"

	// PhaseAck means the agent acknowledged an utterance.
	PhaseAck Phase = "ACK"

	// PhaseWorking means an action or classification is in flight.
	PhaseWorking Phase = "WORKING"

	// PhaseSafetyCheck means a risk decision is being made or spoken.
	PhaseSafetyCheck Phase = "SAFETY_CHECK"

	// PhaseResult means the agent is reporting an outcome.
	PhaseResult Phase = "RESULT"
)

// LivenessThreshold is how long a deep classification may run before the
// controller must emit a SAFETY_CHECK tick, so the user never sits in
// unexplained silence.
const LivenessThreshold = 2500 * time.Millisecond

// paceFor maps risk to the speech speed scalar. Values follow the voice
// profiles the synthesizer expects: 1.0 normal down to 0.75 slowest.
var paceFor = map[types.RiskLevel]float64{
	types.RiskSafe:     1.0,
	types.RiskCaution:  0.95,
	types.RiskHighRisk: 0.85,
	types.RiskDanger:   0.75,
}

// intensityFor maps risk to the delivery intensity label.
var intensityFor = map[types.RiskLevel]string{
	types.RiskSafe:     "calm",
	types.RiskCaution:  "attentive",
	types.RiskHighRisk: "concerned",
	types.RiskDanger:   "urgent",
}

// Profile returns the output profile for a risk level and loop phase.
func Profile(level types.RiskLevel, phase Phase) types.VoiceState {
	pace, ok := paceFor[level]
	if !ok {
		pace = paceFor[types.RiskDanger]
	}
	intensity, ok := intensityFor[level]
	if !ok {
		intensity = intensityFor[types.RiskDanger]
	}

	// Safety narration is always delivered deliberately, even at low
	// risk levels, so the check itself is audible as a distinct beat.
	if phase == PhaseSafetyCheck && pace > paceFor[types.RiskCaution] {
		pace = paceFor[types.RiskCaution]
	}

	return types.VoiceState{
		Pace:      pace,
		Intensity: intensity,
		Phase:     string(phase),
	}
}
