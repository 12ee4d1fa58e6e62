package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/migrakit/migrakit/internal/adapters/outbound/config"
	"github.com/migrakit/migrakit/internal/adapters/outbound/configdoc"
	"github.com/migrakit/migrakit/internal/adapters/outbound/fsio"
	"github.com/migrakit/migrakit/internal/adapters/outbound/locator"
	"github.com/migrakit/migrakit/internal/adapters/outbound/pkgmanager"
	"github.com/migrakit/migrakit/internal/adapters/outbound/prompt"
	"github.com/migrakit/migrakit/internal/application"
	"github.com/migrakit/migrakit/internal/domain"
	"github.com/migrakit/migrakit/internal/domain/fixes"
)

// registerTools registers all migrakit MCP tools on the given server.
func registerTools(s *server.MCPServer, projectPath string) {
	// 1. migrakit_list_fixes
	s.AddTool(
		mcplib.NewTool("migrakit_list_fixes",
			mcplib.WithDescription("Lists every migration fix in run order with its interaction mode and version range"),
		),
		handleListFixes(),
	)

	// 2. migrakit_check
	s.AddTool(
		mcplib.NewTool("migrakit_check",
			mcplib.WithDescription("Runs every fix's check without changing the project and reports which fixes apply"),
			mcplib.WithString("fix_id", mcplib.Description("Check only this fix")),
			mcplib.WithString("from", mcplib.Description("Version being upgraded from")),
			mcplib.WithString("to", mcplib.Description("Version being upgraded to; enables version gating")),
		),
		handleCheck(projectPath),
	)

	// 3. migrakit_run
	s.AddTool(
		mcplib.NewTool("migrakit_run",
			mcplib.WithDescription("Applies migration fixes. Manual fixes are declined unless yes is set; notifications are returned in the report."),
			mcplib.WithString("fix_id", mcplib.Description("Run only this fix")),
			mcplib.WithString("from", mcplib.Description("Version being upgraded from")),
			mcplib.WithString("to", mcplib.Description("Version being upgraded to; enables version gating")),
			mcplib.WithBoolean("dry_run", mcplib.Description("Report what would change without writing anything")),
			mcplib.WithBoolean("yes", mcplib.Description("Accept every manual fix")),
			mcplib.WithBoolean("skip_install", mcplib.Description("Edit package.json instead of running the package manager")),
		),
		handleRun(projectPath),
	)
}

// fixInfo is the machine-readable description of one rule.
type fixInfo struct {
	ID          string               `json:"id"`
	Description string               `json:"description,omitempty"`
	Mode        string               `json:"mode"`
	Range       *domain.VersionRange `json:"range,omitempty"`
}

// runResult pairs a report with the notifications nobody could be shown.
type runResult struct {
	*domain.RunReport
	Notifications []string `json:"notifications,omitempty"`
}

// newService wires the migration service for one tool call. Prompts never
// reach a terminal here, so manual fixes are only applied with yes.
func newService(projectPath string, cfg domain.ProjectConfig, prompter domain.Prompter) *application.MigrateService {
	return application.NewMigrateService(
		fixes.All(),
		locator.New(),
		configdoc.New(),
		pkgmanager.New(projectPath, cfg.PackageManager, nil),
		prompter,
		func(dryRun bool) domain.FileWriter { return fsio.New(dryRun) },
		zap.NewNop(),
	)
}

func loadConfig(projectPath string) (domain.ProjectConfig, error) {
	return config.New(fixes.All().IDs()...).Load(projectPath)
}

func runOptions(projectPath string, cfg domain.ProjectConfig, request mcplib.CallToolRequest) domain.RunOptions {
	args := request.GetArguments()
	fixID, _ := args["fix_id"].(string)
	from, _ := args["from"].(string)
	to, _ := args["to"].(string)
	dryRun, _ := args["dry_run"].(bool)
	yes, _ := args["yes"].(bool)
	skipInstall, _ := args["skip_install"].(bool)

	return domain.RunOptions{
		ProjectPath:   projectPath,
		ConfigDir:     cfg.ConfigDir,
		BeforeVersion: strings.TrimSpace(from),
		AfterVersion:  strings.TrimSpace(to),
		IsUpgrade:     strings.TrimSpace(to) != "",
		DryRun:        dryRun,
		RuleID:        strings.TrimSpace(fixID),
		AutoOnly:      cfg.AutoOnly,
		Yes:           yes,
		SkipInstall:   skipInstall,
		Skip:          cfg.SkipFixes,
		Features:      cfg.Features,
	}
}

func handleListFixes() server.ToolHandlerFunc {
	return func(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		rules := fixes.All().Rules()
		out := make([]fixInfo, 0, len(rules))
		for _, r := range rules {
			out = append(out, fixInfo{
				ID:          r.ID,
				Description: r.Description,
				Mode:        string(r.DeclaredMode()),
				Range:       r.Range,
			})
		}
		return jsonResult(out)
	}
}

func handleCheck(projectPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		cfg, err := loadConfig(projectPath)
		if err != nil {
			return errorResult(fmt.Sprintf("loading config: %v", err)), nil
		}

		silent := prompt.NewSilent()
		report, err := newService(projectPath, cfg, silent).Check(ctx, runOptions(projectPath, cfg, request))
		if err != nil {
			return errorResult(fmt.Sprintf("check failed: %v", err)), nil
		}
		return jsonResult(runResult{RunReport: report, Notifications: silent.Notes()})
	}
}

func handleRun(projectPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		cfg, err := loadConfig(projectPath)
		if err != nil {
			return errorResult(fmt.Sprintf("loading config: %v", err)), nil
		}

		silent := prompt.NewSilent()
		report, err := newService(projectPath, cfg, silent).Run(ctx, runOptions(projectPath, cfg, request))
		if err != nil {
			return errorResult(fmt.Sprintf("run failed: %v", err)), nil
		}
		return jsonResult(runResult{RunReport: report, Notifications: silent.Notes()})
	}
}

// jsonResult marshals v as indented JSON into a text content result.
func jsonResult(v interface{}) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
