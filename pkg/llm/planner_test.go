package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/aegis/pkg/types"
)

// fakeProvider returns a canned reply.
type fakeProvider struct {
	reply string
	err   error
}

func (f *fakeProvider) Complete(ctx context.Context, messages []*Message) (*Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &Message{Role: RoleAssistant, Content: f.reply}, nil
}

func (f *fakeProvider) GetModel() string { return "fake" }

func TestExtractJSONPlainObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSON(`{"a":1}`))
}

func TestExtractJSONFromCodeFence(t *testing.T) {
	raw := "Here you go:\n```json\n{\"action_type\": \"stop\"}\n```\nDone."
	assert.Equal(t, `{"action_type": "stop"}`, ExtractJSON(raw))
}

func TestExtractJSONNestedBraces(t *testing.T) {
	raw := `prefix {"a": {"b": "c}"}} suffix`
	assert.Equal(t, `{"a": {"b": "c}"}}`, ExtractJSON(raw))
}

func TestExtractJSONNoObject(t *testing.T) {
	assert.Empty(t, ExtractJSON("no json here"))
}

func TestParsePlanValid(t *testing.T) {
	raw := `{
		"action_type": "navigate",
		"target": "https://www.pge.com",
		"claimed_service_name": "PG&E",
		"reason": "User asked to pay their bill.",
		"requires_confirmation": false
	}`
	plan, err := ParsePlan(raw)
	require.NoError(t, err)
	assert.Equal(t, types.ActionNavigate, plan.ActionType)
	assert.Equal(t, "https://www.pge.com", plan.Target)
	assert.Equal(t, "PG&E", plan.ClaimedServiceName)
}

func TestParsePlanUnknownActionType(t *testing.T) {
	_, err := ParsePlan(`{"action_type": "teleport", "reason": "x"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidPlanSchema)
}

func TestParsePlanNavigateWithoutTarget(t *testing.T) {
	_, err := ParsePlan(`{"action_type": "navigate", "reason": "x"}`)
	assert.ErrorIs(t, err, types.ErrInvalidPlanSchema)
}

func TestModelPlannerParsesProviderReply(t *testing.T) {
	provider := &fakeProvider{reply: "```json\n{\"action_type\": \"extract\", \"instruction\": \"read the page\", \"reason\": \"describe\"}\n```"}
	planner := NewModelPlanner(provider)

	plan, err := planner.Plan(context.Background(), "what does this page say", "https://pge.com", nil)
	require.NoError(t, err)
	assert.Equal(t, types.ActionExtract, plan.ActionType)
	assert.Equal(t, "read the page", plan.Instruction)
}

func TestParseAssessmentValid(t *testing.T) {
	raw := `{
		"risk_level": "HIGH_RISK",
		"risk_reasons": ["Payment button for $142.50 visible."],
		"recommended_action": "warn",
		"voice_message": "I see a payment button for $142.50.",
		"confirmation_phrase": "yes, pay $142.50 to PG&E"
	}`
	got, err := ParseAssessment(raw)
	require.NoError(t, err)
	assert.Equal(t, types.RiskHighRisk, got.Level)
	assert.Equal(t, types.ActionWarn, got.RecommendedAction)
	assert.NotEmpty(t, got.Reasons)
}

func TestParseAssessmentLegacyLevelSpelling(t *testing.T) {
	raw := `{"risk_level": "High Risk", "risk_reasons": ["x"], "recommended_action": "warn", "voice_message": "m"}`
	got, err := ParseAssessment(raw)
	require.NoError(t, err)
	assert.Equal(t, types.RiskHighRisk, got.Level)
}

func TestParseAssessmentRejectsUnknownLevel(t *testing.T) {
	raw := `{"risk_level": "MEDIUM", "risk_reasons": ["x"], "recommended_action": "warn", "voice_message": "m"}`
	_, err := ParseAssessment(raw)
	assert.Error(t, err)
}

func TestParseAssessmentRejectsEmptyReasons(t *testing.T) {
	raw := `{"risk_level": "SAFE", "risk_reasons": [], "recommended_action": "proceed", "voice_message": "m"}`
	_, err := ParseAssessment(raw)
	assert.Error(t, err)
}

func TestFallbackPlannerStop(t *testing.T) {
	plan, err := NewFallbackPlanner().Plan(context.Background(), "stop please", "", nil)
	require.NoError(t, err)
	assert.Equal(t, types.ActionStop, plan.ActionType)
}

func TestFallbackPlannerKnownDestination(t *testing.T) {
	plan, err := NewFallbackPlanner().Plan(context.Background(), "help me pay my electric bill", "", nil)
	require.NoError(t, err)
	assert.Equal(t, types.ActionNavigate, plan.ActionType)
	assert.Equal(t, "https://www.pge.com", plan.Target)
	assert.Equal(t, "PG&E", plan.ClaimedServiceName)
	assert.True(t, plan.RequiresConfirmation)
}

func TestFallbackPlannerContinuesOnUtilitySite(t *testing.T) {
	plan, err := NewFallbackPlanner().Plan(context.Background(), "pay my pge bill", "https://www.pge.com/billing", nil)
	require.NoError(t, err)
	assert.Equal(t, types.ActionAct, plan.ActionType)
	assert.NotEmpty(t, plan.Instruction)
}

func TestFallbackPlannerPaymentIntentHolds(t *testing.T) {
	plan, err := NewFallbackPlanner().Plan(context.Background(), "pay this invoice", "https://example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, types.ActionConfirm, plan.ActionType)
	assert.True(t, plan.RequiresConfirmation)
}

func TestFallbackPlannerUnknownGoalStops(t *testing.T) {
	plan, err := NewFallbackPlanner().Plan(context.Background(), "sing me a song", "", nil)
	require.NoError(t, err)
	assert.Equal(t, types.ActionStop, plan.ActionType)
}
