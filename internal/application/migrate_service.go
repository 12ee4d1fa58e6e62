package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/migrakit/migrakit/internal/domain"
	"github.com/migrakit/migrakit/internal/domain/gate"
)

// WriterFactory builds the write capability for one run.
type WriterFactory func(dryRun bool) domain.FileWriter

// MigrateService runs the rule set against a project, one rule at a time in
// declaration order, and classifies every rule into exactly one outcome.
type MigrateService struct {
	rules    *domain.RuleSet
	locator  domain.ConfigLocator
	codec    domain.ConfigCodec
	packages domain.PackageManager
	prompter domain.Prompter
	writers  WriterFactory
	logger   *zap.Logger
}

func NewMigrateService(
	rules *domain.RuleSet,
	locator domain.ConfigLocator,
	codec domain.ConfigCodec,
	packages domain.PackageManager,
	prompter domain.Prompter,
	writers WriterFactory,
	logger *zap.Logger,
) *MigrateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MigrateService{
		rules:    rules,
		locator:  locator,
		codec:    codec,
		packages: packages,
		prompter: prompter,
		writers:  writers,
		logger:   logger,
	}
}

// Rules exposes the rule set the service runs.
func (s *MigrateService) Rules() *domain.RuleSet { return s.rules }

// Run executes the rules selected by opts. Rule faults never abort the run;
// an error is returned only when the run cannot start.
func (s *MigrateService) Run(ctx context.Context, opts domain.RunOptions) (*domain.RunReport, error) {
	rules, err := s.selectRules(opts)
	if err != nil {
		return nil, err
	}

	loc, err := s.locator.Locate(opts.ProjectPath, opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("locating config files: %w", err)
	}

	before := opts.BeforeVersion
	if before == "" {
		before = loc.ToolVersion
	}

	files := s.writers(opts.DryRun)
	ec := &domain.ExecutionContext{
		ProjectPath:       opts.ProjectPath,
		ConfigDir:         loc.ConfigDir,
		MainConfigPath:    loc.MainConfigPath,
		PreviewConfigPath: loc.PreviewConfigPath,
		ToolVersion:       loc.ToolVersion,
		BeforeVersion:     before,
		AfterVersion:      opts.AfterVersion,
		Features:          opts.Features,
		DryRun:            opts.DryRun,
		SkipInstall:       opts.SkipInstall,
		Packages:          s.packages,
		Configs:           s.codec,
		Files:             files,
		Logger:            s.logger,
	}

	s.logger.Info("migration started",
		zap.String("project", opts.ProjectPath),
		zap.String("from", before),
		zap.String("to", opts.AfterVersion),
		zap.Bool("upgrade", opts.IsUpgrade),
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("rules", len(rules)),
	)

	skip := make(map[string]bool, len(opts.Skip))
	for _, id := range opts.Skip {
		skip[id] = true
	}

	results := make([]domain.RuleResult, 0, len(rules))
	for _, rule := range rules {
		res := s.runRule(ctx, ec, rule, opts, skip[rule.ID])
		s.logResult(res)
		results = append(results, res)
	}

	summary := domain.Aggregate(results)
	report := &domain.RunReport{
		Results:        results,
		Summary:        summary,
		Classification: domain.Classify(summary),
		DryRun:         opts.DryRun,
		From:           before,
		To:             opts.AfterVersion,
		PendingWrites:  files.Pending(),
	}
	s.logger.Info("migration finished",
		zap.String("classification", string(report.Classification)),
		zap.Int("succeeded", len(summary.Succeeded)),
		zap.Int("failed", len(summary.Failed)),
		zap.Int("manual", len(summary.Manual)),
		zap.Int("skipped", len(summary.Skipped)),
		zap.Int("unnecessary", len(summary.Unnecessary)),
	)
	return report, nil
}

// Check runs every selected rule's check without applying anything.
func (s *MigrateService) Check(ctx context.Context, opts domain.RunOptions) (*domain.RunReport, error) {
	opts.DryRun = true
	opts.AutoOnly = true
	return s.Run(ctx, opts)
}

// selectRules narrows the rule set to what this run considers. A rule picked
// by id runs alone; command-only rules run only that way.
func (s *MigrateService) selectRules(opts domain.RunOptions) ([]domain.Rule, error) {
	if opts.RuleID != "" {
		r, ok := s.rules.Lookup(opts.RuleID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownRule, opts.RuleID)
		}
		return []domain.Rule{r}, nil
	}

	var out []domain.Rule
	for _, r := range s.rules.Rules() {
		if r.DeclaredMode() == domain.ModeCommandOnly {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *MigrateService) runRule(ctx context.Context, ec *domain.ExecutionContext, rule domain.Rule, opts domain.RunOptions, skipped bool) domain.RuleResult {
	res := domain.RuleResult{RuleID: rule.ID}
	selected := opts.RuleID == rule.ID

	if skipped || (!selected && !gate.ShouldRun(rule, ec.BeforeVersion, ec.AfterVersion, opts.IsUpgrade)) {
		res.Outcome = domain.OutcomeSkipped
		return res
	}

	result, err := guard(func() (domain.Result, error) { return rule.Check(ctx, ec) })
	if err != nil {
		res.Outcome = domain.OutcomeCheckFailed
		res.Error = err.Error()
		return res
	}
	if result == nil {
		res.Outcome = domain.OutcomeUnnecessary
		return res
	}

	var prompt string
	_, err = guard(func() (domain.Result, error) {
		res.Mode = rule.ResolveMode(result)
		prompt = rule.Prompt(result)
		return nil, nil
	})
	if err != nil {
		res.Outcome = domain.OutcomeCheckFailed
		res.Error = err.Error()
		return res
	}
	res.Prompt = prompt

	switch res.Mode {
	case domain.ModeNotification:
		s.prompter.Notify(prompt)
		res.Outcome = domain.OutcomeNotified
		return res

	case domain.ModeManual:
		if opts.AutoOnly {
			res.Outcome = domain.OutcomeManualSkipped
			return res
		}
		ok := opts.Yes
		if !ok {
			ok, err = s.prompter.Confirm(ctx, prompt)
			if err != nil {
				res.Outcome = domain.OutcomeFailed
				res.Error = fmt.Sprintf("confirming: %v", err)
				return res
			}
		}
		if !ok {
			res.Outcome = domain.OutcomeManualSkipped
			return res
		}
		if err := s.apply(ctx, ec, rule, result, opts.DryRun); err != nil {
			res.Outcome = domain.OutcomeFailed
			res.Error = err.Error()
			return res
		}
		res.Outcome = domain.OutcomeManualSucceeded
		return res

	case domain.ModeCommandOnly:
		if !selected {
			res.Outcome = domain.OutcomeSkipped
			return res
		}
	}

	if err := s.apply(ctx, ec, rule, result, opts.DryRun); err != nil {
		res.Outcome = domain.OutcomeFailed
		res.Error = err.Error()
		return res
	}
	res.Outcome = domain.OutcomeSucceeded
	return res
}

func (s *MigrateService) apply(ctx context.Context, ec *domain.ExecutionContext, rule domain.Rule, result domain.Result, dryRun bool) error {
	if rule.Apply == nil {
		return fmt.Errorf("%w: rule %s has no apply", domain.ErrInvalidRule, rule.ID)
	}
	_, err := guard(func() (domain.Result, error) {
		return nil, rule.Apply(ctx, ec, result, dryRun)
	})
	return err
}

func (s *MigrateService) logResult(res domain.RuleResult) {
	fields := []zap.Field{
		zap.String("rule", res.RuleID),
		zap.String("outcome", string(res.Outcome)),
	}
	if res.Mode != "" {
		fields = append(fields, zap.String("mode", string(res.Mode)))
	}
	if res.Outcome.IsFailure() {
		s.logger.Error("rule failed", append(fields, zap.String("error", res.Error))...)
		return
	}
	s.logger.Info("rule finished", fields...)
}

// errRulePanic wraps a panic recovered from rule code.
var errRulePanic = errors.New("rule panicked")

// guard runs fn, converting a panic into an error.
func guard(fn func() (domain.Result, error)) (res domain.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: %v", errRulePanic, r)
		}
	}()
	return fn()
}
