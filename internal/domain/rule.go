package domain

import (
	"context"
	"fmt"
)

// InteractionMode decides how a rule's remediation reaches the project.
type InteractionMode string

const (
	ModeAutomatic    InteractionMode = "automatic"
	ModeManual       InteractionMode = "manual"
	ModeNotification InteractionMode = "notification"
	// ModeCommandOnly rules never run in a regular pass; they must be
	// selected explicitly by id.
	ModeCommandOnly InteractionMode = "command-only"
)

// ValidModes enumerates all interaction modes.
var ValidModes = []InteractionMode{ModeAutomatic, ModeManual, ModeNotification, ModeCommandOnly}

// Result is whatever a rule's check found. A nil Result means the rule does
// not apply to the project.
type Result any

// VersionRange scopes a rule to upgrades from a version in Before to a
// version in After. Both are npm-style range expressions.
type VersionRange struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// CheckFunc inspects the project without mutating anything.
type CheckFunc func(ctx context.Context, ec *ExecutionContext) (Result, error)

// ApplyFunc performs the remediation. It must not persist anything when dryRun is set.
type ApplyFunc func(ctx context.Context, ec *ExecutionContext, result Result, dryRun bool) error

// PromptFunc describes what the rule will do, built from the check result.
type PromptFunc func(result Result) string

// ModeFunc resolves the interaction mode from the check result.
type ModeFunc func(result Result) InteractionMode

// Rule is an immutable migration step.
type Rule struct {
	ID          string
	Description string
	Range       *VersionRange
	Mode        InteractionMode
	ModeFor     ModeFunc
	Check       CheckFunc
	Prompt      PromptFunc
	Apply       ApplyFunc
}

// ResolveMode returns the rule's interaction mode for the given check result.
// ModeFor wins over the constant Mode when both are set.
func (r Rule) ResolveMode(result Result) InteractionMode {
	if r.ModeFor != nil {
		return r.ModeFor(result)
	}
	return r.Mode
}

// DeclaredMode is the mode advertised before any check has run.
func (r Rule) DeclaredMode() InteractionMode {
	if r.ModeFor != nil && r.Mode == "" {
		return ModeManual
	}
	return r.Mode
}

// Validate enforces the descriptor contract: every variant except
// notification carries an Apply.
func (r Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRule)
	}
	if r.Check == nil {
		return fmt.Errorf("%w: rule %s has no check", ErrInvalidRule, r.ID)
	}
	if r.Prompt == nil {
		return fmt.Errorf("%w: rule %s has no prompt", ErrInvalidRule, r.ID)
	}
	if r.Mode == "" && r.ModeFor == nil {
		return fmt.Errorf("%w: rule %s has no interaction mode", ErrInvalidRule, r.ID)
	}
	if r.Mode != "" && !isValidMode(r.Mode) {
		return fmt.Errorf("%w: rule %s has unknown mode %q", ErrInvalidRule, r.ID, r.Mode)
	}
	// A ModeFor may resolve to anything but notification, so it always needs Apply.
	if (r.ModeFor != nil || r.Mode != ModeNotification) && r.Apply == nil {
		return fmt.Errorf("%w: rule %s is %s but has no apply", ErrInvalidRule, r.ID, r.DeclaredMode())
	}
	return nil
}

func isValidMode(m InteractionMode) bool {
	for _, v := range ValidModes {
		if v == m {
			return true
		}
	}
	return false
}

// RuleSet is the ordered, immutable list of rules for one process.
type RuleSet struct {
	rules []Rule
	index map[string]int
}

// NewRuleSet validates every rule and freezes their order. Invalid or
// duplicate rules are programming errors and panic.
func NewRuleSet(rules ...Rule) *RuleSet {
	rs := &RuleSet{
		rules: make([]Rule, len(rules)),
		index: make(map[string]int, len(rules)),
	}
	copy(rs.rules, rules)
	for i, r := range rs.rules {
		if err := r.Validate(); err != nil {
			panic(err)
		}
		if _, dup := rs.index[r.ID]; dup {
			panic(fmt.Errorf("%w: duplicate rule id %s", ErrInvalidRule, r.ID))
		}
		rs.index[r.ID] = i
	}
	return rs
}

// Rules returns a copy of the rules in declaration order.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Lookup finds a rule by id.
func (rs *RuleSet) Lookup(id string) (Rule, bool) {
	i, ok := rs.index[id]
	if !ok {
		return Rule{}, false
	}
	return rs.rules[i], true
}

// IDs lists rule ids in declaration order.
func (rs *RuleSet) IDs() []string {
	ids := make([]string, len(rs.rules))
	for i, r := range rs.rules {
		ids[i] = r.ID
	}
	return ids
}

func (rs *RuleSet) Len() int { return len(rs.rules) }
