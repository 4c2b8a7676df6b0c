package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    *ActionPlan
		wantErr bool
	}{
		{
			name: "valid navigate",
			plan: &ActionPlan{ActionType: ActionNavigate, Target: "https://www.google.com"},
		},
		{
			name: "valid act",
			plan: &ActionPlan{ActionType: ActionAct, Instruction: "Click the Sign In button"},
		},
		{
			name: "valid extract",
			plan: &ActionPlan{ActionType: ActionExtract, Instruction: "Read the page"},
		},
		{
			name: "valid stop",
			plan: &ActionPlan{ActionType: ActionStop},
		},
		{
			name: "valid confirm",
			plan: &ActionPlan{ActionType: ActionConfirm},
		},
		{
			name:    "navigate without target",
			plan:    &ActionPlan{ActionType: ActionNavigate},
			wantErr: true,
		},
		{
			name:    "act without instruction",
			plan:    &ActionPlan{ActionType: ActionAct},
			wantErr: true,
		},
		{
			name:    "unknown action type",
			plan:    &ActionPlan{ActionType: "noop"},
			wantErr: true,
		},
		{
			name:    "empty action type",
			plan:    &ActionPlan{},
			wantErr: true,
		},
		{
			name:    "nil plan",
			plan:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPlanSchema), "error should wrap ErrInvalidPlanSchema")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
