package domain

import (
	"os"

	"go.uber.org/zap"
)

// ExecutionContext is the read-only bag handed to every check and apply.
// It is built once per run and never mutated by rules.
type ExecutionContext struct {
	ProjectPath       string
	ConfigDir         string
	MainConfigPath    string
	PreviewConfigPath string
	// ToolVersion is the installed tool version detected before the run.
	ToolVersion   string
	BeforeVersion string
	AfterVersion  string
	Features      map[string]bool
	DryRun        bool
	// SkipInstall asks package-manager edits to touch package.json only.
	SkipInstall bool

	Packages PackageManager
	Configs  ConfigCodec
	Files    FileWriter
	Logger   *zap.Logger
}

// Feature reports whether a feature flag is enabled.
func (ec *ExecutionContext) Feature(name string) bool {
	return ec.Features[name]
}

// Log returns the context logger, never nil.
func (ec *ExecutionContext) Log() *zap.Logger {
	if ec.Logger == nil {
		return zap.NewNop()
	}
	return ec.Logger
}

// LoadConfig reads and parses a configuration file.
func (ec *ExecutionContext) LoadConfig(path string) (ConfigDocument, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ec.Configs.Parse(path, src)
}

// SaveConfig writes a document back through the dry-run aware writer. The
// file is left alone when nothing changed.
func (ec *ExecutionContext) SaveConfig(doc ConfigDocument, dryRun bool) error {
	original, err := os.ReadFile(doc.Filename())
	if err == nil && string(original) == string(doc.Serialize()) {
		return nil
	}
	return ec.WriteFile(doc.Filename(), doc.Serialize(), dryRun)
}

// WriteFile writes data to path unless the apply is a dry run. A dry-run
// writer still records the pending write.
func (ec *ExecutionContext) WriteFile(path string, data []byte, dryRun bool) error {
	if dryRun || ec.Files.DryRun() {
		ec.Log().Info("dry run: file not written", zap.String("file", path))
	}
	if dryRun && !ec.Files.DryRun() {
		return nil
	}
	return ec.Files.WriteFile(path, data, 0644)
}
