package domain

// Outcome is the terminal classification of one rule in one run.
type Outcome string

const (
	OutcomeCheckFailed     Outcome = "CHECK_FAILED"
	OutcomeUnnecessary     Outcome = "UNNECESSARY"
	OutcomeManualSucceeded Outcome = "MANUAL_SUCCEEDED"
	OutcomeManualSkipped   Outcome = "MANUAL_SKIPPED"
	OutcomeNotified        Outcome = "NOTIFIED"
	OutcomeSkipped         Outcome = "SKIPPED"
	OutcomeSucceeded       Outcome = "SUCCEEDED"
	OutcomeFailed          Outcome = "FAILED"
)

// IsFailure reports whether the outcome counts toward "ran with failures".
func (o Outcome) IsFailure() bool {
	return o == OutcomeFailed || o == OutcomeCheckFailed
}

// IsManual reports whether the outcome needs user follow-up.
func (o Outcome) IsManual() bool {
	return o == OutcomeManualSucceeded || o == OutcomeManualSkipped || o == OutcomeNotified
}

// RuleResult records what happened to one rule.
type RuleResult struct {
	RuleID  string          `json:"rule_id"`
	Outcome Outcome         `json:"outcome"`
	Mode    InteractionMode `json:"mode,omitempty"`
	Prompt  string          `json:"prompt,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// RunOptions control one orchestrator invocation.
type RunOptions struct {
	ProjectPath   string   `json:"project_path"`
	ConfigDir     string   `json:"config_dir,omitempty"`
	BeforeVersion string   `json:"before_version,omitempty"`
	AfterVersion  string   `json:"after_version,omitempty"`
	IsUpgrade     bool     `json:"is_upgrade"`
	DryRun        bool     `json:"dry_run"`
	RuleID        string   `json:"rule_id,omitempty"`
	AutoOnly      bool     `json:"auto_only"`
	Yes           bool     `json:"yes"`
	SkipInstall   bool     `json:"skip_install"`
	Skip          []string `json:"skip,omitempty"`

	Features map[string]bool `json:"features,omitempty"`
}

// RunReport is what the orchestrator hands back to callers.
type RunReport struct {
	Results        []RuleResult   `json:"results"`
	Summary        RunSummary     `json:"summary"`
	Classification Classification `json:"classification"`
	DryRun         bool           `json:"dry_run"`
	From           string         `json:"from,omitempty"`
	To             string         `json:"to,omitempty"`
	LogFile        string         `json:"log_file,omitempty"`
	PendingWrites  []string       `json:"pending_writes,omitempty"`
}
