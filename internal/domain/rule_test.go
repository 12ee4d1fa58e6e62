package domain_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migrakit/migrakit/internal/domain"
)

func noCheck(context.Context, *domain.ExecutionContext) (domain.Result, error) { return nil, nil }

func noApply(context.Context, *domain.ExecutionContext, domain.Result, bool) error { return nil }

func noPrompt(domain.Result) string { return "" }

func validRule(id string, mode domain.InteractionMode) domain.Rule {
	r := domain.Rule{ID: id, Mode: mode, Check: noCheck, Prompt: noPrompt}
	if mode != domain.ModeNotification {
		r.Apply = noApply
	}
	return r
}

func TestRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    domain.Rule
		wantErr bool
	}{
		{"automatic", validRule("a", domain.ModeAutomatic), false},
		{"manual", validRule("m", domain.ModeManual), false},
		{"notification without apply", validRule("n", domain.ModeNotification), false},
		{"command-only", validRule("c", domain.ModeCommandOnly), false},
		{"missing id", domain.Rule{Mode: domain.ModeAutomatic, Check: noCheck, Prompt: noPrompt, Apply: noApply}, true},
		{"missing check", domain.Rule{ID: "x", Mode: domain.ModeAutomatic, Prompt: noPrompt, Apply: noApply}, true},
		{"missing prompt", domain.Rule{ID: "x", Mode: domain.ModeAutomatic, Check: noCheck, Apply: noApply}, true},
		{"missing mode", domain.Rule{ID: "x", Check: noCheck, Prompt: noPrompt, Apply: noApply}, true},
		{"unknown mode", domain.Rule{ID: "x", Mode: "sometimes", Check: noCheck, Prompt: noPrompt, Apply: noApply}, true},
		{"automatic without apply", domain.Rule{ID: "x", Mode: domain.ModeAutomatic, Check: noCheck, Prompt: noPrompt}, true},
		{"mode func without apply", domain.Rule{
			ID: "x", Check: noCheck, Prompt: noPrompt,
			ModeFor: func(domain.Result) domain.InteractionMode { return domain.ModeNotification },
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidRule)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRuleResolveMode(t *testing.T) {
	r := validRule("a", domain.ModeAutomatic)
	assert.Equal(t, domain.ModeAutomatic, r.ResolveMode(nil))
	assert.Equal(t, domain.ModeAutomatic, r.DeclaredMode())

	r.Mode = ""
	r.ModeFor = func(res domain.Result) domain.InteractionMode {
		if res == true {
			return domain.ModeManual
		}
		return domain.ModeAutomatic
	}
	assert.Equal(t, domain.ModeManual, r.ResolveMode(true))
	assert.Equal(t, domain.ModeAutomatic, r.ResolveMode(false))
	assert.Equal(t, domain.ModeManual, r.DeclaredMode())
}

func TestNewRuleSet_KeepsDeclarationOrder(t *testing.T) {
	rs := domain.NewRuleSet(
		validRule("b", domain.ModeAutomatic),
		validRule("a", domain.ModeManual),
		validRule("c", domain.ModeNotification),
	)
	assert.Equal(t, []string{"b", "a", "c"}, rs.IDs())
	assert.Equal(t, 3, rs.Len())

	r, ok := rs.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, domain.ModeManual, r.Mode)

	_, ok = rs.Lookup("z")
	assert.False(t, ok)
}

func TestNewRuleSet_RulesReturnsCopy(t *testing.T) {
	rs := domain.NewRuleSet(validRule("a", domain.ModeAutomatic))
	rules := rs.Rules()
	rules[0].ID = "mutated"
	assert.Equal(t, []string{"a"}, rs.IDs())
}

func TestNewRuleSet_PanicsOnInvalidRules(t *testing.T) {
	assert.Panics(t, func() {
		domain.NewRuleSet(validRule("a", domain.ModeAutomatic), validRule("a", domain.ModeManual))
	})
	assert.Panics(t, func() {
		domain.NewRuleSet(domain.Rule{ID: "broken"})
	})
}
