package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/camelcase"

	"github.com/migrakit/migrakit/internal/domain"
)

// ── Warm palette ──
var (
	accent    = lipgloss.Color("#D97706") // amber
	fg        = lipgloss.Color("#E8E6E3") // warm light gray
	dim       = lipgloss.Color("#6B7280") // muted gray
	faint     = lipgloss.Color("#3F3F46") // very dim
	success   = lipgloss.Color("#22C55E") // green
	danger    = lipgloss.Color("#EF4444") // red
	warning   = lipgloss.Color("#F59E0B") // amber-yellow
	info      = lipgloss.Color("#8B949E") // soft blue-gray
	skipColor = lipgloss.Color("#4B5563") // dark gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	classColors = map[domain.Classification]lipgloss.Color{
		domain.ClassSuccess:      success,
		domain.ClassFailures:     danger,
		domain.ClassNoMigrations: info,
	}

	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	failStyle     = lipgloss.NewStyle().Foreground(danger)
	warnStyle     = lipgloss.NewStyle().Foreground(warning)
	skipStyle     = lipgloss.NewStyle().Foreground(skipColor)
	errorTagStyle = lipgloss.NewStyle().Foreground(danger).Bold(true)
	infoTagStyle  = lipgloss.NewStyle().Foreground(info)
	fileStyle     = lipgloss.NewStyle().Foreground(dim)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	separatorLine = faintStyle.Render(strings.Repeat("─", 64))
)

// RenderSummary formats a run report for terminal output.
func RenderSummary(report *domain.RunReport) string {
	var b strings.Builder
	s := report.Summary

	// ── Header ──
	title := headerStyle.Render("migrakit")
	subtitle := dimStyle.Render("Automigrate")
	if report.From != "" || report.To != "" {
		subtitle = dimStyle.Render(fmt.Sprintf("Automigrate %s → %s", orUnknown(report.From), orUnknown(report.To)))
	}
	classStyled := lipgloss.NewStyle().
		Bold(true).
		Foreground(classColor(report.Classification)).
		Render(headline(report))

	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + classStyled))
	b.WriteString("\n\n")

	if report.Classification == domain.ClassNoMigrations {
		b.WriteString("  " + dimStyle.Render("Your project is already up to date.") + "\n")
		return b.String()
	}

	// ── Sections ──
	if len(s.Succeeded) > 0 {
		renderSection(&b, "Succeeded", len(s.Succeeded))
		for _, id := range s.Succeeded {
			fmt.Fprintf(&b, "    %s %s\n", passStyle.Render("✔"), Humanize(id))
		}
		b.WriteString("\n")
	}

	if len(s.Failed) > 0 {
		renderSection(&b, "Failed", len(s.Failed))
		checkFailed := make(map[string]bool, len(s.CheckFailed))
		for _, id := range s.CheckFailed {
			checkFailed[id] = true
		}
		for _, id := range failedIDs(report) {
			tag := errorTagStyle.Render("failed ")
			if checkFailed[id] {
				tag = errorTagStyle.Render("check  ")
			}
			fmt.Fprintf(&b, "    %s %s %s\n", failStyle.Render("✘"), tag, Humanize(id))
			if msg := s.Failed[id]; msg != "" {
				fmt.Fprintf(&b, "              %s\n", dimStyle.Render(msg))
			}
		}
		b.WriteString("\n")
	}

	if len(s.Manual) > 0 {
		renderSection(&b, "Manual", len(s.Manual))
		for _, id := range s.Manual {
			icon, label := manualTag(s.ManualOutcomes[id])
			fmt.Fprintf(&b, "    %s %s %s\n", icon, label, Humanize(id))
		}
		b.WriteString("\n")
	}

	if len(s.Skipped) > 0 {
		renderSection(&b, "Skipped", len(s.Skipped))
		for _, id := range s.Skipped {
			fmt.Fprintf(&b, "    %s %s\n", skipStyle.Render("○"), skipStyle.Render(Humanize(id)))
		}
		b.WriteString("\n")
	}

	b.WriteString("  " + separatorLine)
	b.WriteString("\n\n")

	// ── Footer ──
	fmt.Fprintf(&b, "  %s\n", dimStyle.Render(fmt.Sprintf(
		"%d succeeded · %d failed · %d manual · %d skipped · %d not needed",
		len(s.Succeeded), len(s.Failed), len(s.Manual), len(s.Skipped), len(s.Unnecessary),
	)))

	if s.HasCheckFailures() {
		b.WriteString("  " + warnStyle.Render("Some checks could not run; the project was not fully inspected.") + "\n")
	}
	if s.HasFailures() && report.LogFile != "" {
		fmt.Fprintf(&b, "  %s %s\n", dimStyle.Render("Details in"), fileStyle.Render(report.LogFile))
	}
	if report.DryRun {
		b.WriteString("\n  " + infoTagStyle.Render("Dry run: no files were changed.") + "\n")
		for _, p := range report.PendingWrites {
			fmt.Fprintf(&b, "    %s %s\n", infoTagStyle.Render("would write"), fileStyle.Render(p))
		}
	}

	b.WriteString("\n")
	return b.String()
}

func renderSection(b *strings.Builder, name string, count int) {
	fmt.Fprintf(b, "  %s %s\n", titleStyle.Render(name), dimStyle.Render(fmt.Sprintf("(%d)", count)))
}

func headline(report *domain.RunReport) string {
	switch report.Classification {
	case domain.ClassNoMigrations:
		return "No migrations were applicable to your project"
	case domain.ClassFailures:
		return "The automigration ran with failures"
	default:
		return "The automigration ran successfully"
	}
}

func manualTag(o domain.Outcome) (string, string) {
	switch o {
	case domain.OutcomeManualSucceeded:
		return passStyle.Render("✔"), dimStyle.Render("applied ")
	case domain.OutcomeNotified:
		return warnStyle.Render("!"), warnStyle.Render("review  ")
	default:
		return warnStyle.Render("○"), warnStyle.Render("declined")
	}
}

// failedIDs keeps results order; Failed is a map.
func failedIDs(report *domain.RunReport) []string {
	var ids []string
	seen := map[string]bool{}
	for _, r := range report.Results {
		if _, ok := report.Summary.Failed[r.RuleID]; ok && !seen[r.RuleID] {
			seen[r.RuleID] = true
			ids = append(ids, r.RuleID)
		}
	}
	if len(ids) == len(report.Summary.Failed) {
		return ids
	}
	for id := range report.Summary.Failed {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids[len(seen):])
	return ids
}

func classColor(c domain.Classification) lipgloss.Color {
	if col, ok := classColors[c]; ok {
		return col
	}
	return fg
}

func orUnknown(v string) string {
	if v == "" {
		return "?"
	}
	return v
}

// Humanize turns a rule id such as "removeAddonInteractions" into
// "Remove addon interactions".
func Humanize(id string) string {
	parts := camelcase.Split(id)
	if len(parts) == 0 {
		return id
	}
	for i := range parts {
		if i > 0 && !isAcronym(parts[i]) {
			parts[i] = strings.ToLower(parts[i])
		}
	}
	parts[0] = strings.ToUpper(parts[0][:1]) + parts[0][1:]
	return strings.Join(parts, " ")
}

func isAcronym(s string) bool {
	return len(s) > 1 && strings.ToUpper(s) == s
}

// RenderFixList formats the available rules for `automigrate list`.
func RenderFixList(rules []domain.Rule) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Available fixes") + "\n")
	b.WriteString("  " + separatorLine + "\n\n")

	for _, r := range rules {
		mode := string(r.DeclaredMode())
		scope := "any version"
		if r.Range != nil {
			scope = fmt.Sprintf("%s → %s", r.Range.Before, r.Range.After)
		}
		fmt.Fprintf(&b, "  %s %s\n", titleStyle.Render(padRight(r.ID, 28)), dimStyle.Render(padRight(mode, 14)+scope))
		if r.Description != "" {
			fmt.Fprintf(&b, "    %s\n", faintStyle.Render(r.Description))
		}
	}
	b.WriteString("\n")
	return b.String()
}

// RenderHistory formats past runs for terminal output, followed by the fixes
// that have succeeded in any of them.
func RenderHistory(entries []domain.RunEntry, applied []string) string {
	if len(entries) == 0 {
		return "  " + dimStyle.Render("No migration history found.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Migration History") + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 50)) + "\n\n")

	for _, e := range entries {
		hash := e.CommitHash
		if len(hash) > 7 {
			hash = hash[:7]
		}
		if hash == "" {
			hash = "·······"
		}
		date := e.Timestamp
		if len(date) > 10 {
			date = date[:10]
		}

		c := domain.Classify(e.Summary)
		status := lipgloss.NewStyle().Foreground(classColor(c)).Render(string(c))

		fmt.Fprintf(&b, "  %s  %s  %s  %s\n",
			dimStyle.Render(date),
			faintStyle.Render(hash),
			padRight(fmt.Sprintf("%s → %s", orUnknown(e.From), orUnknown(e.To)), 18),
			status,
		)
	}

	if len(applied) > 0 {
		b.WriteString("\n  " + titleStyle.Render("Applied fixes") + "\n")
		for _, id := range applied {
			fmt.Fprintf(&b, "  %s %s\n", passStyle.Render("✔"), id)
		}
	}

	return b.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
