// Package locator finds the tool's configuration files and installed version
// inside a project.
package locator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/buger/jsonparser"

	"github.com/migrakit/migrakit/internal/domain"
	"github.com/migrakit/migrakit/internal/domain/gate"
)

var (
	mainNames    = []string{"main.ts", "main.mts", "main.cts", "main.js", "main.mjs", "main.cjs"}
	previewNames = []string{"preview.ts", "preview.tsx", "preview.mts", "preview.js", "preview.jsx", "preview.mjs"}
)

// versionSources are the packages whose version stands for the tool version,
// in order of preference.
var versionSources = []string{"storybook", "@storybook/core", "@storybook/react", "@storybook/vue3", "@storybook/angular"}

// Locator implements domain.ConfigLocator on the local file system.
type Locator struct{}

func New() *Locator { return &Locator{} }

func (l *Locator) Locate(projectPath, configDir string) (domain.ConfigLocation, error) {
	info, err := os.Stat(projectPath)
	if err != nil {
		return domain.ConfigLocation{}, fmt.Errorf("reading project: %w", err)
	}
	if !info.IsDir() {
		return domain.ConfigLocation{}, fmt.Errorf("project path %s is not a directory", projectPath)
	}

	if configDir == "" {
		configDir = domain.DefaultConfigDir
	}
	if !filepath.IsAbs(configDir) {
		configDir = filepath.Join(projectPath, configDir)
	}

	loc := domain.ConfigLocation{
		ConfigDir:         configDir,
		MainConfigPath:    firstExisting(configDir, mainNames),
		PreviewConfigPath: firstExisting(configDir, previewNames),
		ToolVersion:       DetectVersion(projectPath),
	}
	return loc, nil
}

func firstExisting(dir string, names []string) string {
	for _, n := range names {
		p := filepath.Join(dir, n)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// DetectVersion returns the installed tool version. The version in
// node_modules wins over the range declared in package.json. It returns ""
// when neither is known.
func DetectVersion(projectPath string) string {
	for _, name := range versionSources {
		data, err := os.ReadFile(filepath.Join(projectPath, "node_modules", filepath.FromSlash(name), "package.json"))
		if err != nil {
			continue
		}
		if v, err := jsonparser.GetString(data, "version"); err == nil {
			if c := gate.Coerce(v); c != "" {
				return c
			}
		}
	}

	data, err := os.ReadFile(filepath.Join(projectPath, "package.json"))
	if err != nil {
		return ""
	}
	for _, name := range versionSources {
		for _, field := range []string{"dependencies", "devDependencies"} {
			if spec, err := jsonparser.GetString(data, field, name); err == nil {
				if c := gate.Coerce(spec); c != "" {
					return c
				}
			}
		}
	}
	return ""
}
