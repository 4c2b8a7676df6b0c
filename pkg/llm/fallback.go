package llm

import (
	"context"
	"strings"

	"github.com/entrhq/aegis/pkg/types"
)

// FallbackPlanner produces deterministic plans from keyword intent when no
// model is available or the model-backed planner fails. It covers the small
// set of flows the assistant must still handle offline: stopping, a couple
// of well-known destinations, and holding payment intent for confirmation.
type FallbackPlanner struct{}

// NewFallbackPlanner creates the deterministic planner.
func NewFallbackPlanner() *FallbackPlanner {
	return &FallbackPlanner{}
}

// Plan maps the goal onto a fixed intent table.
func (p *FallbackPlanner) Plan(ctx context.Context, goal, currentURL string, history []string) (*types.ActionPlan, error) {
	lower := strings.ToLower(strings.TrimSpace(goal))
	url := strings.ToLower(currentURL)

	if strings.Contains(lower, "stop") || strings.Contains(lower, "cancel") {
		return &types.ActionPlan{
			ActionType: types.ActionStop,
			Reason:     "User asked to stop.",
		}, nil
	}

	if len(history) > 0 && containsAny(lower, "done", "finished", "thank you") {
		return &types.ActionPlan{
			ActionType: types.ActionStop,
			Reason:     "User indicated completion.",
		}, nil
	}

	// One inferred action per turn: without a model there is no basis for
	// chaining further steps, so a turn that already acted stops here.
	if len(history) > 0 {
		return &types.ActionPlan{
			ActionType: types.ActionStop,
			Reason:     "Completed the requested step.",
		}, nil
	}

	if strings.Contains(lower, "google") {
		return &types.ActionPlan{
			ActionType:         types.ActionNavigate,
			Target:             "https://www.google.com",
			ClaimedServiceName: "Google",
			Reason:             "User asked for Google.",
		}, nil
	}

	if strings.Contains(lower, "pge") || strings.Contains(lower, "electric bill") {
		if strings.Contains(url, "pge.com") {
			return &types.ActionPlan{
				ActionType:  types.ActionAct,
				Instruction: "Click the bill payment or login action that continues the payment flow.",
				Reason:      "Continue bill-pay flow on the utility site.",
			}, nil
		}
		return &types.ActionPlan{
			ActionType:           types.ActionNavigate,
			Target:               "https://www.pge.com",
			ClaimedServiceName:   "PG&E",
			Reason:               "User asked to pay their electricity bill.",
			RequiresConfirmation: true,
			ConfirmationPhrase:   "yes, proceed safely",
		}, nil
	}

	if strings.Contains(lower, "pay") {
		return &types.ActionPlan{
			ActionType:           types.ActionConfirm,
			Reason:               "Detected payment intent.",
			RequiresConfirmation: true,
			ConfirmationPhrase:   "yes, proceed safely",
		}, nil
	}

	return &types.ActionPlan{
		ActionType: types.ActionStop,
		Reason:     "No direct browser action inferred; asking the user to rephrase.",
	}, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
