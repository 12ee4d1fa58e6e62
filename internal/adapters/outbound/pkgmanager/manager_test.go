package pkgmanager_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migrakit/migrakit/internal/adapters/outbound/pkgmanager"
	"github.com/migrakit/migrakit/internal/domain"
)

type call struct {
	dir  string
	name string
	args []string
}

type fakeRunner struct {
	calls []call
	out   string
}

func (r *fakeRunner) Run(_ context.Context, dir, name string, args ...string) (string, error) {
	r.calls = append(r.calls, call{dir: dir, name: name, args: args})
	return r.out, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

const rootPackage = `{
  "name": "app",
  "dependencies": {
    "react": "^18.2.0"
  },
  "devDependencies": {
    "storybook": "^8.6.0",
    "@storybook/addon-interactions": "^8.6.0",
    "react": "^17.0.0"
  }
}
`

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  domain.PackageManagerKind
	}{
		{"default npm", map[string]string{"package.json": "{}"}, domain.PackageManagerNPM},
		{"pnpm lockfile", map[string]string{"package.json": "{}", "pnpm-lock.yaml": ""}, domain.PackageManagerPNPM},
		{"yarn lockfile", map[string]string{"package.json": "{}", "yarn.lock": ""}, domain.PackageManagerYarn},
		{"bun lockfile", map[string]string{"package.json": "{}", "bun.lockb": ""}, domain.PackageManagerBun},
		{"packageManager field wins", map[string]string{"package.json": `{"packageManager": "yarn@4.1.0"}`, "package-lock.json": "{}"}, domain.PackageManagerYarn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, filepath.Join(dir, name), content)
			}
			assert.Equal(t, tt.want, pkgmanager.Detect(dir))
		})
	}
}

func TestAllDependencies_FirstDeclarationWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), rootPackage)
	m := pkgmanager.New(dir, "", &fakeRunner{})

	deps, err := m.AllDependencies()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"react":                         "^18.2.0",
		"storybook":                     "^8.6.0",
		"@storybook/addon-interactions": "^8.6.0",
	}, deps)

	ok, err := m.IsDependencyInstalled("storybook")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.IsDependencyInstalled("vue")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllDependencies_MissingPackageJSON(t *testing.T) {
	m := pkgmanager.New(t.TempDir(), domain.PackageManagerNPM, &fakeRunner{})
	_, err := m.AllDependencies()
	assert.Error(t, err)
}

func TestPackageJSONPaths_Workspaces(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{"workspaces": ["packages/*"]}`)
	writeFile(t, filepath.Join(dir, "packages", "ui", "package.json"), "{}")
	writeFile(t, filepath.Join(dir, "packages", "ui", "node_modules", "dep", "package.json"), "{}")
	writeFile(t, filepath.Join(dir, "tools", "package.json"), "{}")

	paths, err := pkgmanager.New(dir, "", &fakeRunner{}).PackageJSONPaths()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "package.json"),
		filepath.Join(dir, "packages", "ui", "package.json"),
	}, paths)
}

func TestPackageJSONPaths_YarnWorkspacesObject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{"workspaces": {"packages": ["apps/**"]}}`)
	writeFile(t, filepath.Join(dir, "apps", "web", "docs", "package.json"), "{}")

	paths, err := pkgmanager.New(dir, "", &fakeRunner{}).PackageJSONPaths()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "package.json"),
		filepath.Join(dir, "apps", "web", "docs", "package.json"),
	}, paths)
}

func TestPackageJSONPaths_NoWorkspacesSearchesTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), "{}")
	writeFile(t, filepath.Join(dir, "sub", "package.json"), "{}")
	writeFile(t, filepath.Join(dir, "node_modules", "x", "package.json"), "{}")
	writeFile(t, filepath.Join(dir, ".git", "package.json"), "{}")

	paths, err := pkgmanager.New(dir, "", &fakeRunner{}).PackageJSONPaths()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "package.json"), filepath.Join(dir, "sub", "package.json")}, paths)
}

func TestAddDependencies_RunsPackageManager(t *testing.T) {
	tests := []struct {
		kind domain.PackageManagerKind
		dev  bool
		want []string
	}{
		{domain.PackageManagerNPM, true, []string{"install", "--save-dev", "eslint-plugin-storybook"}},
		{domain.PackageManagerNPM, false, []string{"install", "eslint-plugin-storybook"}},
		{domain.PackageManagerYarn, true, []string{"add", "-D", "eslint-plugin-storybook"}},
		{domain.PackageManagerPNPM, true, []string{"add", "-D", "eslint-plugin-storybook"}},
		{domain.PackageManagerBun, true, []string{"add", "--dev", "eslint-plugin-storybook"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			dir := t.TempDir()
			r := &fakeRunner{}
			m := pkgmanager.New(dir, tt.kind, r)

			err := m.AddDependencies(context.Background(), domain.DependencyOptions{Dev: tt.dev}, []string{"eslint-plugin-storybook"})
			require.NoError(t, err)
			require.Len(t, r.calls, 1)
			assert.Equal(t, call{dir: dir, name: string(tt.kind), args: tt.want}, r.calls[0])
		})
	}
}

func TestAddDependencies_SkipInstallEditsPackageJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), rootPackage)
	r := &fakeRunner{}
	m := pkgmanager.New(dir, "", r)

	err := m.AddDependencies(context.Background(), domain.DependencyOptions{Dev: true, SkipInstall: true},
		[]string{"storybook@^9.0.0", "eslint-plugin-storybook"})
	require.NoError(t, err)
	assert.Empty(t, r.calls)

	pkg := readJSON(t, filepath.Join(dir, "package.json"))
	dev := pkg["devDependencies"].(map[string]any)
	assert.Equal(t, "^9.0.0", dev["storybook"])
	assert.Equal(t, "latest", dev["eslint-plugin-storybook"])
	assert.Equal(t, "^8.6.0", dev["@storybook/addon-interactions"])
}

func TestRemoveDependencies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), rootPackage)

	r := &fakeRunner{}
	m := pkgmanager.New(dir, domain.PackageManagerNPM, r)
	require.NoError(t, m.RemoveDependencies(context.Background(), domain.DependencyOptions{}, []string{"@storybook/addon-interactions"}))
	assert.Equal(t, []string{"uninstall", "@storybook/addon-interactions"}, r.calls[0].args)

	m = pkgmanager.New(dir, domain.PackageManagerPNPM, r)
	require.NoError(t, m.RemoveDependencies(context.Background(), domain.DependencyOptions{SkipInstall: true}, []string{"@storybook/addon-interactions"}))
	assert.Len(t, r.calls, 1)

	ok, err := m.IsDependencyInstalled("@storybook/addon-interactions")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = m.IsDependencyInstalled("storybook")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunCommand(t *testing.T) {
	r := &fakeRunner{out: "done"}
	m := pkgmanager.New(t.TempDir(), domain.PackageManagerYarn, r)

	out, err := m.RunCommand(context.Background(), "dedupe", []string{"--check"})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, []string{"dedupe", "--check"}, r.calls[0].args)
	assert.Equal(t, "yarn", m.Name())
}

func TestSplitSpec(t *testing.T) {
	tests := []struct{ spec, name, version string }{
		{"storybook@^9.0.0", "storybook", "^9.0.0"},
		{"@storybook/react@9.0.0", "@storybook/react", "9.0.0"},
		{"@storybook/react", "@storybook/react", ""},
		{"react", "react", ""},
	}
	for _, tt := range tests {
		name, version := pkgmanager.SplitSpec(tt.spec)
		assert.Equal(t, tt.name, name, tt.spec)
		assert.Equal(t, tt.version, version, tt.spec)
	}
}
