package domain

import "fmt"

// PackageManagerKind identifies the package manager driving installs.
type PackageManagerKind string

const (
	PackageManagerNPM  PackageManagerKind = "npm"
	PackageManagerYarn PackageManagerKind = "yarn"
	PackageManagerPNPM PackageManagerKind = "pnpm"
	PackageManagerBun  PackageManagerKind = "bun"
)

// ValidPackageManagers enumerates all recognized package managers.
var ValidPackageManagers = []PackageManagerKind{
	PackageManagerNPM,
	PackageManagerYarn,
	PackageManagerPNPM,
	PackageManagerBun,
}

const (
	DefaultConfigDir = ".storybook"
	DefaultLogFile   = "migration-migrakit.log"
)

// ProjectConfig holds project-level configuration loaded from .migrakit.yaml.
type ProjectConfig struct {
	ConfigDir      string             `yaml:"config_dir"      json:"config_dir,omitempty"`
	PackageManager PackageManagerKind `yaml:"package_manager" json:"package_manager,omitempty"`
	SkipFixes      []string           `yaml:"skip_fixes"      json:"skip_fixes,omitempty"`
	AutoOnly       bool               `yaml:"auto_only"       json:"auto_only,omitempty"`
	LogFile        string             `yaml:"log_file"        json:"log_file,omitempty"`
	Features       map[string]bool    `yaml:"features"        json:"features,omitempty"`
}

// DefaultConfig returns the configuration used when no .migrakit.yaml exists.
func DefaultConfig() ProjectConfig {
	return ProjectConfig{
		ConfigDir: DefaultConfigDir,
		LogFile:   DefaultLogFile,
	}
}

// WithDefaults fills unset fields from DefaultConfig.
func (c ProjectConfig) WithDefaults() ProjectConfig {
	d := DefaultConfig()
	if c.ConfigDir == "" {
		c.ConfigDir = d.ConfigDir
	}
	if c.LogFile == "" {
		c.LogFile = d.LogFile
	}
	return c
}

// IsSkipped reports whether the rule id is listed in skip_fixes.
func (c ProjectConfig) IsSkipped(id string) bool {
	for _, s := range c.SkipFixes {
		if s == id {
			return true
		}
	}
	return false
}

// Validate checks the config against the known package managers and rule ids.
func (c ProjectConfig) Validate(knownRules []string) error {
	if c.PackageManager != "" {
		valid := false
		for _, pm := range ValidPackageManagers {
			if c.PackageManager == pm {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("unknown package_manager %q (valid: npm, yarn, pnpm, bun)", c.PackageManager)
		}
	}

	known := make(map[string]bool, len(knownRules))
	for _, id := range knownRules {
		known[id] = true
	}
	for _, id := range c.SkipFixes {
		if !known[id] {
			return fmt.Errorf("unknown fix %q in skip_fixes", id)
		}
	}
	return nil
}
