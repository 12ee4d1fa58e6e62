package domain

// RunSummary groups rule ids by how their run ended.
// CHECK_FAILED rules are reported in Failed and additionally in CheckFailed.
type RunSummary struct {
	Succeeded   []string          `json:"succeeded"`
	Failed      map[string]string `json:"failed"`
	Manual      []string          `json:"manual"`
	Skipped     []string          `json:"skipped"`
	Unnecessary []string          `json:"unnecessary"`
	CheckFailed []string          `json:"check_failed,omitempty"`

	// ManualOutcomes keeps the per-id manual outcome so reporters can tell
	// applied, declined and notification-only rules apart.
	ManualOutcomes map[string]Outcome `json:"manual_outcomes,omitempty"`
}

// Classification is the top-line message of a run.
type Classification string

const (
	ClassNoMigrations Classification = "no migrations applicable"
	ClassFailures     Classification = "ran with failures"
	ClassSuccess      Classification = "ran successfully"
)

// Aggregate folds per-rule results into a summary. Order follows the
// results slice; a repeated id keeps only its first result.
func Aggregate(results []RuleResult) RunSummary {
	s := RunSummary{
		Succeeded:      []string{},
		Failed:         map[string]string{},
		Manual:         []string{},
		Skipped:        []string{},
		Unnecessary:    []string{},
		ManualOutcomes: map[string]Outcome{},
	}
	seen := make(map[string]bool, len(results))

	for _, r := range results {
		if seen[r.RuleID] {
			continue
		}
		seen[r.RuleID] = true

		switch r.Outcome {
		case OutcomeSucceeded:
			s.Succeeded = append(s.Succeeded, r.RuleID)
		case OutcomeFailed:
			s.Failed[r.RuleID] = r.Error
		case OutcomeCheckFailed:
			s.Failed[r.RuleID] = r.Error
			s.CheckFailed = append(s.CheckFailed, r.RuleID)
		case OutcomeManualSucceeded, OutcomeManualSkipped, OutcomeNotified:
			s.Manual = append(s.Manual, r.RuleID)
			s.ManualOutcomes[r.RuleID] = r.Outcome
		case OutcomeSkipped:
			s.Skipped = append(s.Skipped, r.RuleID)
		case OutcomeUnnecessary:
			s.Unnecessary = append(s.Unnecessary, r.RuleID)
		}
	}
	return s
}

// Total is the number of distinct rules accounted for.
func (s RunSummary) Total() int {
	return len(s.Succeeded) + len(s.Failed) + len(s.Manual) + len(s.Skipped) + len(s.Unnecessary)
}

// HasFailures reports whether any rule failed to check or apply.
func (s RunSummary) HasFailures() bool { return len(s.Failed) > 0 }

// HasCheckFailures reports whether a rule's check itself errored, as opposed
// to a rule that ran and failed.
func (s RunSummary) HasCheckFailures() bool { return len(s.CheckFailed) > 0 }

// Classify picks the top-line message for a summary.
func Classify(s RunSummary) Classification {
	switch {
	case s.Total() == len(s.Unnecessary):
		return ClassNoMigrations
	case s.HasFailures():
		return ClassFailures
	default:
		return ClassSuccess
	}
}
