package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/migrakit/migrakit/internal/adapters/outbound/config"
	"github.com/migrakit/migrakit/internal/adapters/outbound/configdoc"
	"github.com/migrakit/migrakit/internal/adapters/outbound/fsio"
	"github.com/migrakit/migrakit/internal/adapters/outbound/gitinfo"
	"github.com/migrakit/migrakit/internal/adapters/outbound/history"
	"github.com/migrakit/migrakit/internal/adapters/outbound/locator"
	"github.com/migrakit/migrakit/internal/adapters/outbound/logging"
	"github.com/migrakit/migrakit/internal/adapters/outbound/pkgmanager"
	"github.com/migrakit/migrakit/internal/adapters/outbound/prompt"
	"github.com/migrakit/migrakit/internal/adapters/outbound/tui"
	"github.com/migrakit/migrakit/internal/application"
	"github.com/migrakit/migrakit/internal/domain"
	"github.com/migrakit/migrakit/internal/domain/fixes"
)

type automigrateFlags struct {
	path           string
	configDir      string
	from           string
	to             string
	fixID          string
	packageManager string
	skip           []string
	dryRun         bool
	autoOnly       bool
	yes            bool
	skipInstall    bool
	noFail         bool
	jsonOutput     bool
	showHistory    bool
}

func newAutomigrateCmd() *cobra.Command {
	var f automigrateFlags

	cmd := &cobra.Command{
		Use:   "automigrate [fixId]",
		Short: "Check the project for migrations and apply them",
		Long: "Run every migration rule against the project in order. Automatic fixes are applied, " +
			"manual fixes ask for confirmation and notifications are printed. Pass a fix id to run a single rule.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				if f.fixID != "" && f.fixID != args[0] {
					return fmt.Errorf("fix id given twice: %q and --fix-id %q", args[0], f.fixID)
				}
				f.fixID = args[0]
			}
			return runAutomigrate(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.path, "path", ".", "Project path")
	cmd.Flags().StringVarP(&f.configDir, "config-dir", "c", "", "Directory of the main and preview config files")
	cmd.Flags().StringVar(&f.from, "from", "", "Version being upgraded from (defaults to the installed version)")
	cmd.Flags().StringVar(&f.to, "to", "", "Version being upgraded to; enables version gating")
	cmd.Flags().StringVar(&f.fixID, "fix-id", "", "Run only this fix")
	cmd.Flags().StringVar(&f.packageManager, "package-manager", "", "Force a package manager (npm, yarn, pnpm, bun)")
	cmd.Flags().StringSliceVar(&f.skip, "skip", nil, "Fix ids to skip")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Report what would change without writing anything")
	cmd.Flags().BoolVar(&f.autoOnly, "auto-only", false, "Only run automatic fixes")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "Accept every manual fix without prompting")
	cmd.Flags().BoolVar(&f.skipInstall, "skip-install", false, "Edit package.json instead of running the package manager")
	cmd.Flags().BoolVar(&f.noFail, "no-fail", false, "Exit 0 even when a fix failed")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "Output the run report as JSON")
	cmd.Flags().BoolVar(&f.showHistory, "history", false, "Show past migration runs")

	cmd.AddCommand(newAutomigrateListCmd())
	return cmd
}

func runAutomigrate(cmd *cobra.Command, f automigrateFlags) error {
	absPath, err := filepath.Abs(f.path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	hist := history.New()
	if f.showHistory {
		entries, err := hist.Load(absPath)
		if err != nil {
			return fmt.Errorf("loading history: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), tui.RenderHistory(entries, history.Applied(entries)))
		return nil
	}

	rules := fixes.All()
	cfg, err := config.New(rules.IDs()...).Load(absPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if f.configDir != "" {
		cfg.ConfigDir = f.configDir
	}
	if f.packageManager != "" {
		cfg.PackageManager = domain.PackageManagerKind(f.packageManager)
		if err := cfg.Validate(rules.IDs()); err != nil {
			return err
		}
	}
	for _, id := range f.skip {
		if _, ok := rules.Lookup(id); !ok {
			return fmt.Errorf("--skip: %w: %s", domain.ErrUnknownRule, id)
		}
	}

	logPath := cfg.LogFile
	if !filepath.IsAbs(logPath) {
		logPath = filepath.Join(absPath, logPath)
	}
	logger, err := logging.New(logPath)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gi := gitinfo.New()
	if !f.dryRun {
		warnUncommitted(cmd, gi, absPath, logger)
	}

	svc := application.NewMigrateService(
		rules,
		locator.New(),
		configdoc.New(),
		pkgmanager.New(absPath, cfg.PackageManager, nil),
		prompt.NewTerminal(cmd.InOrStdin(), cmd.ErrOrStderr()),
		func(dryRun bool) domain.FileWriter { return fsio.New(dryRun) },
		logger,
	)

	report, err := svc.Run(cmd.Context(), domain.RunOptions{
		ProjectPath:   absPath,
		ConfigDir:     cfg.ConfigDir,
		BeforeVersion: f.from,
		AfterVersion:  f.to,
		IsUpgrade:     f.to != "",
		DryRun:        f.dryRun,
		RuleID:        f.fixID,
		AutoOnly:      f.autoOnly || cfg.AutoOnly,
		Yes:           f.yes,
		SkipInstall:   f.skipInstall,
		Skip:          append(append([]string{}, cfg.SkipFixes...), f.skip...),
		Features:      cfg.Features,
	})
	if err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	report.LogFile = logPath

	if !f.dryRun {
		entry := domain.RunEntry{
			Timestamp: time.Now().Format(time.RFC3339),
			From:      report.From,
			To:        report.To,
			Summary:   report.Summary,
		}
		if hash, err := gi.CommitHash(absPath); err == nil {
			entry.CommitHash = hash
		}
		if err := hist.Save(absPath, entry); err != nil {
			logger.Warn("saving history", zap.Error(err)) // best-effort
		}
	}

	if f.jsonOutput {
		if err := renderJSON(cmd, report); err != nil {
			return err
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), tui.RenderSummary(report))
	}

	if report.Summary.HasFailures() && !f.noFail {
		return fmt.Errorf("automigration ran with failures: %s", strings.Join(sortedKeys(report.Summary.Failed), ", "))
	}
	return nil
}

// warnUncommitted tells the user when the migration's edits would mix with
// uncommitted work.
func warnUncommitted(cmd *cobra.Command, gi *gitinfo.GitInfoAdapter, path string, logger *zap.Logger) {
	if !gi.IsGitRepo(path) {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: not a git repository; review the changes carefully")
		return
	}
	clean, err := gi.IsClean(path)
	if err != nil {
		logger.Warn("reading git status", zap.Error(err))
		return
	}
	if !clean {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: the working tree has uncommitted changes")
	}
}

func newAutomigrateListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the available fixes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules := fixes.All().Rules()
			if jsonOutput {
				return renderJSON(cmd, fixInfos(rules))
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderFixList(rules))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the fix list as JSON")
	return cmd
}

// FixInfo is the machine-readable description of one rule.
type FixInfo struct {
	ID          string               `json:"id"`
	Description string               `json:"description,omitempty"`
	Mode        string               `json:"mode"`
	Range       *domain.VersionRange `json:"range,omitempty"`
}

func fixInfos(rules []domain.Rule) []FixInfo {
	out := make([]FixInfo, 0, len(rules))
	for _, r := range rules {
		out = append(out, FixInfo{
			ID:          r.ID,
			Description: r.Description,
			Mode:        string(r.DeclaredMode()),
			Range:       r.Range,
		})
	}
	return out
}

func renderJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
