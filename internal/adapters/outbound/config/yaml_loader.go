package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/migrakit/migrakit/internal/domain"
)

// fileNames are tried in order; the first one present is loaded.
var fileNames = []string{".migrakit.yaml", ".migrakit.yml"}

// YAMLLoader implements domain.ConfigLoader by reading .migrakit.yaml.
type YAMLLoader struct {
	knownRules []string
}

// New creates a YAMLLoader that accepts the given rule ids in skip_fixes.
func New(knownRules ...string) *YAMLLoader {
	return &YAMLLoader{knownRules: knownRules}
}

// Load reads .migrakit.yaml from projectPath.
// Returns DefaultConfig if the file does not exist.
func (l *YAMLLoader) Load(projectPath string) (domain.ProjectConfig, error) {
	for _, name := range fileNames {
		data, err := os.ReadFile(filepath.Join(projectPath, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return domain.ProjectConfig{}, err
		}
		return l.parse(name, data)
	}
	return domain.DefaultConfig(), nil
}

func (l *YAMLLoader) parse(name string, data []byte) (domain.ProjectConfig, error) {
	var cfg domain.ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.ProjectConfig{}, fmt.Errorf("parsing %s: %w", name, err)
	}

	// Validate before defaults so typos in the raw input are reported.
	if err := cfg.Validate(l.knownRules); err != nil {
		return domain.ProjectConfig{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return cfg.WithDefaults(), nil
}
