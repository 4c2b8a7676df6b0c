// Package types defines the shared data model for the Aegis copilot:
// risk levels, action plans, page snapshots, risk assessments, and the
// event surface exposed to clients.
//
// All values arriving from external collaborators (the reasoning provider,
// the domain oracle) are validated into the closed enums defined here before
// any control flow branches on them. Raw strings are never branched on.
package types

import "fmt"

// RiskLevel is the ordered danger classification for a proposed action.
// The ordering forms an escalation-only lattice: once a level is set for an
// action, contributing assessments may only raise the effective level.
type RiskLevel int

const (
	// RiskSafe indicates no risk signals were detected.
	RiskSafe RiskLevel = iota

	// RiskCaution indicates the page requests sensitive information
	// (logins, personal details) but shows no deception signals.
	RiskCaution

	// RiskHighRisk indicates a financially meaningful step such as a
	// payment or credential submission. Requires confirmation before
	// submission-class actions proceed.
	RiskHighRisk

	// RiskDanger indicates deception signals (scam patterns, domain
	// mismatch). Actions are blocked outright at this level.
	RiskDanger
)

// riskLevelNames is the canonical wire spelling for each level.
var riskLevelNames = map[RiskLevel]string{
	RiskSafe:     "SAFE",
	RiskCaution:  "CAUTION",
	RiskHighRisk: "HIGH_RISK",
	RiskDanger:   "DANGER",
}

// String returns the canonical wire spelling of the level.
func (l RiskLevel) String() string {
	if name, ok := riskLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("RiskLevel(%d)", int(l))
}

// MarshalJSON encodes the level using its canonical wire spelling.
func (l RiskLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// ParseRiskLevel validates a provider-supplied risk level string into the
// closed enum. The reasoning provider has historically emitted both
// "HIGH_RISK" and "High Risk"; both spellings are accepted, nothing else.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch s {
	case "SAFE":
		return RiskSafe, nil
	case "CAUTION":
		return RiskCaution, nil
	case "HIGH_RISK", "High Risk":
		return RiskHighRisk, nil
	case "DANGER":
		return RiskDanger, nil
	}
	return RiskSafe, fmt.Errorf("unknown risk level %q", s)
}

// Max returns the higher of two risk levels.
func (l RiskLevel) Max(other RiskLevel) RiskLevel {
	if other > l {
		return other
	}
	return l
}

// RecommendedAction is the handling a risk assessment recommends for the
// current action, ordered by restrictiveness.
type RecommendedAction int

const (
	// ActionProceed executes the action without comment.
	ActionProceed RecommendedAction = iota

	// ActionNarrate executes the action and describes it to the user.
	ActionNarrate

	// ActionWarn pauses for an explicit confirmation before executing.
	ActionWarn

	// ActionBlock refuses the action outright.
	ActionBlock
)

var recommendedActionNames = map[RecommendedAction]string{
	ActionProceed: "proceed",
	ActionNarrate: "narrate",
	ActionWarn:    "warn",
	ActionBlock:   "block",
}

// String returns the wire spelling of the recommended action.
func (a RecommendedAction) String() string {
	if name, ok := recommendedActionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("RecommendedAction(%d)", int(a))
}

// MarshalJSON encodes the action using its wire spelling.
func (a RecommendedAction) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// ParseRecommendedAction validates a provider-supplied recommendation into
// the closed enum.
func ParseRecommendedAction(s string) (RecommendedAction, error) {
	switch s {
	case "proceed":
		return ActionProceed, nil
	case "narrate":
		return ActionNarrate, nil
	case "warn":
		return ActionWarn, nil
	case "block":
		return ActionBlock, nil
	}
	return ActionProceed, fmt.Errorf("unknown recommended action %q", s)
}

// MoreRestrictive returns the more restrictive of two recommendations.
func (a RecommendedAction) MoreRestrictive(other RecommendedAction) RecommendedAction {
	if other > a {
		return other
	}
	return a
}
