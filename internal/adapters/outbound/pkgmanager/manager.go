// Package pkgmanager drives the project's JavaScript package manager and
// reads and edits its package.json files.
package pkgmanager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/buger/jsonparser"

	"github.com/migrakit/migrakit/internal/domain"
)

// dependencyFields are read in order; the first declaration of a name wins.
var dependencyFields = []string{"dependencies", "devDependencies", "peerDependencies"}

// lockfiles maps lockfile names to the package manager that writes them.
var lockfiles = []struct {
	file string
	kind domain.PackageManagerKind
}{
	{"pnpm-lock.yaml", domain.PackageManagerPNPM},
	{"yarn.lock", domain.PackageManagerYarn},
	{"bun.lockb", domain.PackageManagerBun},
	{"bun.lock", domain.PackageManagerBun},
	{"package-lock.json", domain.PackageManagerNPM},
}

// Runner executes a package manager binary inside dir.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return string(out), nil
}

// Manager implements domain.PackageManager for one project root.
type Manager struct {
	root   string
	kind   domain.PackageManagerKind
	runner Runner
}

// New creates a Manager. An empty kind is detected from the project; a nil
// runner uses os/exec.
func New(root string, kind domain.PackageManagerKind, runner Runner) *Manager {
	if kind == "" {
		kind = Detect(root)
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Manager{root: root, kind: kind, runner: runner}
}

// Detect picks the package manager from the packageManager field of
// package.json, then from lockfiles, defaulting to npm.
func Detect(root string) domain.PackageManagerKind {
	if data, err := os.ReadFile(filepath.Join(root, "package.json")); err == nil {
		if pm, err := jsonparser.GetString(data, "packageManager"); err == nil {
			name, _, _ := strings.Cut(pm, "@")
			for _, k := range domain.ValidPackageManagers {
				if string(k) == name {
					return k
				}
			}
		}
	}
	for _, lf := range lockfiles {
		if _, err := os.Stat(filepath.Join(root, lf.file)); err == nil {
			return lf.kind
		}
	}
	return domain.PackageManagerNPM
}

func (m *Manager) Name() string { return string(m.kind) }

func (m *Manager) packageJSONPath() string { return filepath.Join(m.root, "package.json") }

func (m *Manager) PackageJSON() ([]byte, error) {
	data, err := os.ReadFile(m.packageJSONPath())
	if err != nil {
		return nil, fmt.Errorf("reading package.json: %w", err)
	}
	return data, nil
}

func (m *Manager) AllDependencies() (map[string]string, error) {
	data, err := m.PackageJSON()
	if err != nil {
		return nil, err
	}
	deps := map[string]string{}
	for _, field := range dependencyFields {
		err := jsonparser.ObjectEach(data, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
			name := string(key)
			if _, ok := deps[name]; ok || dt != jsonparser.String {
				return nil
			}
			v, err := jsonparser.ParseString(value)
			if err != nil {
				return err
			}
			deps[name] = v
			return nil
		}, field)
		if err != nil && !errors.Is(err, jsonparser.KeyPathNotFoundError) {
			return nil, fmt.Errorf("parsing %s in package.json: %w", field, err)
		}
	}
	return deps, nil
}

func (m *Manager) IsDependencyInstalled(name string) (bool, error) {
	deps, err := m.AllDependencies()
	if err != nil {
		return false, err
	}
	_, ok := deps[name]
	return ok, nil
}

// PackageJSONPaths lists the root package.json followed by every workspace
// package.json. Without a workspaces field the whole tree is searched.
// node_modules is never entered.
func (m *Manager) PackageJSONPaths() ([]string, error) {
	data, err := m.PackageJSON()
	if err != nil {
		return nil, err
	}

	patterns := workspacePatterns(data)
	if len(patterns) == 0 {
		patterns = []string{"**/package.json"}
	}

	paths := []string{m.packageJSONPath()}
	err = filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); path != m.root && (name == "node_modules" || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != "package.json" || path == m.packageJSONPath() {
			return nil
		}
		rel, err := filepath.Rel(m.root, path)
		if err != nil {
			return err
		}
		if matchesAny(patterns, rel) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching package.json files: %w", err)
	}
	return paths, nil
}

// workspacePatterns reads workspaces as an array or as {packages: [...]}.
func workspacePatterns(data []byte) []string {
	var out []string
	collect := func(value []byte, dt jsonparser.ValueType, _ int, _ error) {
		if dt != jsonparser.String {
			return
		}
		if s, err := jsonparser.ParseString(value); err == nil {
			out = append(out, strings.TrimSuffix(filepath.ToSlash(s), "/")+"/package.json")
		}
	}
	if _, err := jsonparser.ArrayEach(data, collect, "workspaces"); err != nil {
		_, _ = jsonparser.ArrayEach(data, collect, "workspaces", "packages")
	}
	return out
}

func matchesAny(patterns []string, rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func (m *Manager) AddDependencies(ctx context.Context, opts domain.DependencyOptions, packages []string) error {
	if len(packages) == 0 {
		return nil
	}
	if opts.SkipInstall {
		return m.editPackageJSON(func(data []byte) ([]byte, error) {
			field := "dependencies"
			if opts.Dev {
				field = "devDependencies"
			}
			for _, spec := range packages {
				name, version := SplitSpec(spec)
				if version == "" {
					version = "latest"
				}
				var err error
				data, err = jsonparser.Set(data, []byte(strconv.Quote(version)), field, name)
				if err != nil {
					return nil, fmt.Errorf("setting %s: %w", name, err)
				}
			}
			return data, nil
		})
	}

	args := m.addArgs(opts.Dev)
	_, err := m.runner.Run(ctx, m.root, m.Name(), append(args, packages...)...)
	return err
}

func (m *Manager) RemoveDependencies(ctx context.Context, opts domain.DependencyOptions, packages []string) error {
	if len(packages) == 0 {
		return nil
	}
	if opts.SkipInstall {
		return m.editPackageJSON(func(data []byte) ([]byte, error) {
			for _, name := range packages {
				for _, field := range dependencyFields {
					data = jsonparser.Delete(data, field, name)
				}
			}
			return data, nil
		})
	}

	verb := "remove"
	if m.kind == domain.PackageManagerNPM {
		verb = "uninstall"
	}
	_, err := m.runner.Run(ctx, m.root, m.Name(), append([]string{verb}, packages...)...)
	return err
}

// RunCommand runs a package manager subcommand, e.g. ("dedupe", nil).
func (m *Manager) RunCommand(ctx context.Context, command string, args []string) (string, error) {
	return m.runner.Run(ctx, m.root, m.Name(), append([]string{command}, args...)...)
}

func (m *Manager) addArgs(dev bool) []string {
	switch m.kind {
	case domain.PackageManagerNPM:
		if dev {
			return []string{"install", "--save-dev"}
		}
		return []string{"install"}
	case domain.PackageManagerBun:
		if dev {
			return []string{"add", "--dev"}
		}
		return []string{"add"}
	default:
		if dev {
			return []string{"add", "-D"}
		}
		return []string{"add"}
	}
}

func (m *Manager) editPackageJSON(edit func([]byte) ([]byte, error)) error {
	data, err := m.PackageJSON()
	if err != nil {
		return err
	}
	info, err := os.Stat(m.packageJSONPath())
	if err != nil {
		return err
	}
	out, err := edit(data)
	if err != nil {
		return err
	}
	return os.WriteFile(m.packageJSONPath(), out, info.Mode().Perm())
}

// SplitSpec splits "name@version" into its parts, keeping a leading scope
// such as "@storybook/react".
func SplitSpec(spec string) (name, version string) {
	if i := strings.LastIndex(spec, "@"); i > 0 {
		return spec[:i], spec[i+1:]
	}
	return spec, ""
}
