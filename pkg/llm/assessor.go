package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/aegis/pkg/types"
)

const assessorSystemPrompt = `You are the safety half of a voice assistant that drives a web browser
for users who cannot see the screen. Classify the risk of what is in
front of you and answer with a JSON object, nothing else.

Fields:
  "risk_level": one of "SAFE", "CAUTION", "HIGH_RISK", "DANGER"
  "risk_reasons": array of short strings, at least one
  "recommended_action": one of "proceed", "narrate", "warn", "block"
  "voice_message": what to say aloud, conversational, one or two sentences
  "confirmation_phrase": exact phrase to read back for payments, else ""

Classification:
  SAFE      ordinary pages
  CAUTION   login pages and forms collecting personal information
  HIGH_RISK payment buttons and checkout surfaces
  DANGER    scam signals: urgency language, domain mismatch, pressure

For payments mention the visible amount in the voice message. For scam
signals warn plainly and say why.`

type assessmentPayload struct {
	RiskLevel          string   `json:"risk_level"`
	RiskReasons        []string `json:"risk_reasons"`
	RecommendedAction  string   `json:"recommended_action"`
	VoiceMessage       string   `json:"voice_message"`
	ConfirmationPhrase string   `json:"confirmation_phrase"`
}

// ModelAssessor is the LLM-backed risk assessor behind both classifier
// passes. The fast pass sends only the transcript and target URL; the deep
// pass sends the full page snapshot. Both parse into the closed risk
// enums; unparseable output is an error so the caller's fallback applies.
type ModelAssessor struct {
	fast Provider
	deep Provider
}

// NewModelAssessor creates an assessor. fast serves transcript triage and
// may point at a smaller model; deep serves full-page analysis. Either may
// be nil, in which case the other is used for both passes.
func NewModelAssessor(fast, deep Provider) *ModelAssessor {
	if fast == nil {
		fast = deep
	}
	if deep == nil {
		deep = fast
	}
	return &ModelAssessor{fast: fast, deep: deep}
}

// AssessTranscript performs the fast pre-execution pass.
func (a *ModelAssessor) AssessTranscript(ctx context.Context, transcript, targetURL string) (*types.RiskAssessment, error) {
	request := map[string]any{
		"user_request": transcript,
		"target_url":   targetURL,
	}
	return a.assess(ctx, a.fast, request)
}

// AssessSnapshot performs the deep post-execution pass.
func (a *ModelAssessor) AssessSnapshot(ctx context.Context, goal string, snapshot *types.PageSnapshot) (*types.RiskAssessment, error) {
	request := map[string]any{
		"user_request": goal,
		"snapshot":     snapshot,
	}
	return a.assess(ctx, a.deep, request)
}

func (a *ModelAssessor) assess(ctx context.Context, provider Provider, request map[string]any) (*types.RiskAssessment, error) {
	if provider == nil {
		return nil, fmt.Errorf("no provider configured")
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal assessment request: %w", err)
	}

	reply, err := provider.Complete(ctx, []*Message{
		NewSystemMessage(assessorSystemPrompt),
		NewUserMessage(string(body)),
	})
	if err != nil {
		return nil, fmt.Errorf("assessment completion failed: %w", err)
	}

	return ParseAssessment(reply.Content)
}

// ParseAssessment converts raw model output into a RiskAssessment with
// every enum validated. Unknown levels or actions are rejected rather than
// coerced; the caller falls back to the deterministic keyword pass.
func ParseAssessment(raw string) (*types.RiskAssessment, error) {
	payload := ExtractJSON(raw)
	if payload == "" {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var parsed assessmentPayload
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("malformed assessment payload: %w", err)
	}

	level, err := types.ParseRiskLevel(parsed.RiskLevel)
	if err != nil {
		return nil, err
	}
	action, err := types.ParseRecommendedAction(parsed.RecommendedAction)
	if err != nil {
		return nil, err
	}
	if len(parsed.RiskReasons) == 0 {
		return nil, fmt.Errorf("assessment carries no reasons")
	}

	return &types.RiskAssessment{
		Level:              level,
		Reasons:            parsed.RiskReasons,
		RecommendedAction:  action,
		VoiceMessage:       parsed.VoiceMessage,
		ConfirmationPhrase: parsed.ConfirmationPhrase,
	}, nil
}
