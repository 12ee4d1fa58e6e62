package domain

import (
	"context"
	"os"
)

// PackageManager is the narrow view of the project's package manager that
// rules use to detect and remediate dependency conditions.
type PackageManager interface {
	Name() string
	AllDependencies() (map[string]string, error)
	IsDependencyInstalled(name string) (bool, error)
	PackageJSON() ([]byte, error)
	// PackageJSONPaths lists every package.json in the project, root first.
	PackageJSONPaths() ([]string, error)
	AddDependencies(ctx context.Context, opts DependencyOptions, packages []string) error
	RemoveDependencies(ctx context.Context, opts DependencyOptions, packages []string) error
	RunCommand(ctx context.Context, command string, args []string) (string, error)
}

// DependencyOptions tune Add/RemoveDependencies.
type DependencyOptions struct {
	Dev         bool `json:"dev"`
	SkipInstall bool `json:"skip_install"`
}

// ConfigLocation is what the configuration-file locator found. An empty path
// means the file does not exist.
type ConfigLocation struct {
	ConfigDir         string `json:"config_dir"`
	MainConfigPath    string `json:"main_config_path,omitempty"`
	PreviewConfigPath string `json:"preview_config_path,omitempty"`
	ToolVersion       string `json:"tool_version,omitempty"`
}

// ConfigLocator finds the main and preview configuration files.
type ConfigLocator interface {
	Locate(projectPath, configDir string) (ConfigLocation, error)
}

// ConfigDocument is a parsed configuration source file that can be mutated
// along dotted field paths and serialized back to text.
type ConfigDocument interface {
	Filename() string
	GetField(path []string) (any, bool)
	SetField(path []string, value any) error
	AppendToArrayField(path []string, value any) error
	RemoveField(path []string) error
	RemoveFromArrayField(path []string, match func(any) bool) (int, error)
	Serialize() []byte
}

// ConfigCodec parses configuration source text into documents.
type ConfigCodec interface {
	Parse(filename string, src []byte) (ConfigDocument, error)
}

// ConfigExpression is a non-literal value inside a config document, carried
// as its source text.
type ConfigExpression struct {
	Source string
}

// FileWriter is the single write capability rules get. Implementations are
// no-ops in dry-run mode.
type FileWriter interface {
	WriteFile(path string, data []byte, perm os.FileMode) error
	DryRun() bool
	// Pending lists the files a dry run skipped writing.
	Pending() []string
}

// Prompter asks the user to confirm manual rules and shows notifications.
type Prompter interface {
	Confirm(ctx context.Context, message string) (bool, error)
	Notify(message string)
}

// GitInfo provides git metadata for a project.
type GitInfo interface {
	IsGitRepo(projectPath string) bool
	CommitHash(projectPath string) (string, error)
	IsClean(projectPath string) (bool, error)
}

// RunHistory persists a record of every non-dry run.
type RunHistory interface {
	Save(projectPath string, entry RunEntry) error
	Load(projectPath string) ([]RunEntry, error)
}

// RunEntry is one persisted migration run.
type RunEntry struct {
	Timestamp  string     `json:"timestamp"`
	CommitHash string     `json:"commit_hash,omitempty"`
	From       string     `json:"from,omitempty"`
	To         string     `json:"to,omitempty"`
	Summary    RunSummary `json:"summary"`
}

// ConfigLoader loads project-level migrakit configuration.
type ConfigLoader interface {
	Load(projectPath string) (ProjectConfig, error)
}
