package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/entrhq/aegis/pkg/types"
)

// Planner proposes exactly one next browser action for the user's goal
// and the current page state.
type Planner interface {
	Plan(ctx context.Context, goal, currentURL string, history []string) (*types.ActionPlan, error)
}

const plannerSystemPrompt = `You are the planning half of a voice assistant that drives a web browser
for users who cannot see the screen. Propose exactly ONE next action as a
JSON object, nothing else.

Fields:
  "action_type": one of "navigate", "act", "extract", "confirm", "stop"
  "target": URL, required for navigate
  "instruction": what to do on the page, required for act and extract
  "claimed_service_name": the company the user believes they are dealing
      with, e.g. "PG&E" or "Google" (set it whenever you can infer one)
  "reason": one short sentence for the user
  "requires_confirmation": true only for payments or other irreversible
      submissions
  "confirmation_phrase": the exact phrase to read back when
      requires_confirmation is true

Guidance:
- Use "extract" to read or describe a page. Do not ask permission for
  ordinary clicks and typing.
- Use "stop" when the goal is done, when you are stuck, or when you need
  the user to decide something.
- Never invent a URL; only navigate to sites the user named or sites you
  are certain serve their goal.`

type planPayload struct {
	ActionType           string `json:"action_type"`
	Target               string `json:"target"`
	Instruction          string `json:"instruction"`
	ClaimedServiceName   string `json:"claimed_service_name"`
	Reason               string `json:"reason"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
	ConfirmationPhrase   string `json:"confirmation_phrase"`
}

// ModelPlanner is the LLM-backed planner. Model output is parsed into a
// validated ActionPlan; anything that does not survive validation is
// reported as a wrapped ErrInvalidPlanSchema so the loop can re-request.
type ModelPlanner struct {
	provider Provider
}

// NewModelPlanner creates a planner backed by the given provider.
func NewModelPlanner(provider Provider) *ModelPlanner {
	return &ModelPlanner{provider: provider}
}

// Plan asks the model for the next action.
func (p *ModelPlanner) Plan(ctx context.Context, goal, currentURL string, history []string) (*types.ActionPlan, error) {
	if p.provider == nil {
		return nil, fmt.Errorf("%w: no provider configured", types.ErrInvalidPlanSchema)
	}

	request := map[string]any{
		"goal":        goal,
		"current_url": currentURL,
		"history":     history,
	}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan request: %w", err)
	}

	reply, err := p.provider.Complete(ctx, []*Message{
		NewSystemMessage(plannerSystemPrompt),
		NewUserMessage(string(body)),
	})
	if err != nil {
		return nil, fmt.Errorf("plan completion failed: %w", err)
	}

	return ParsePlan(reply.Content)
}

// ParsePlan converts raw model output into a validated ActionPlan.
func ParsePlan(raw string) (*types.ActionPlan, error) {
	payload := ExtractJSON(raw)
	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON object in model output", types.ErrInvalidPlanSchema)
	}

	var parsed planPayload
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidPlanSchema, err)
	}

	plan := &types.ActionPlan{
		ActionType:           types.ActionType(strings.ToLower(strings.TrimSpace(parsed.ActionType))),
		Target:               strings.TrimSpace(parsed.Target),
		Instruction:          strings.TrimSpace(parsed.Instruction),
		ClaimedServiceName:   strings.TrimSpace(parsed.ClaimedServiceName),
		Reason:               strings.TrimSpace(parsed.Reason),
		RequiresConfirmation: parsed.RequiresConfirmation,
		ConfirmationPhrase:   strings.TrimSpace(parsed.ConfirmationPhrase),
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}
