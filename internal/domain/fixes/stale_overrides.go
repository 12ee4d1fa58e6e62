package fixes

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/migrakit/migrakit/internal/domain"
	"github.com/migrakit/migrakit/internal/domain/gate"
)

// overrideFields are the package.json objects that pin transitive versions
// for npm, yarn and pnpm.
var overrideFields = [][]string{
	{"overrides"},
	{"resolutions"},
	{"pnpm", "overrides"},
}

type staleEntry struct {
	File  string
	Field []string
	Key   string
	Value string
}

type staleResult struct {
	Target  string
	Entries []staleEntry
}

// StaleOverrides removes overrides and resolutions that would pin the tool's
// packages to versions outside the upgrade target.
func StaleOverrides() domain.Rule {
	return domain.Rule{
		ID:          "staleOverrides",
		Description: "Remove stale version overrides",
		Mode:        domain.ModeAutomatic,
		Check: func(_ context.Context, ec *domain.ExecutionContext) (domain.Result, error) {
			target := targetVersion(ec)
			if target == "" {
				return nil, nil
			}
			paths, err := ec.Packages.PackageJSONPaths()
			if err != nil {
				return nil, fmt.Errorf("listing package.json files: %w", err)
			}

			res := staleResult{Target: target}
			for _, p := range paths {
				data, err := os.ReadFile(p)
				if err != nil {
					return nil, fmt.Errorf("reading %s: %w", p, err)
				}
				entries, err := staleOverridesIn(p, data, target)
				if err != nil {
					return nil, err
				}
				res.Entries = append(res.Entries, entries...)
			}
			if len(res.Entries) == 0 {
				return nil, nil
			}
			return res, nil
		},
		Prompt: func(r domain.Result) string {
			res := r.(staleResult)
			var b strings.Builder
			fmt.Fprintf(&b, "These overrides pin packages away from %s and will be removed:\n", res.Target)
			for _, e := range res.Entries {
				fmt.Fprintf(&b, "  %s: %s[%q] = %s\n", e.File, strings.Join(e.Field, "."), e.Key, e.Value)
			}
			return strings.TrimRight(b.String(), "\n")
		},
		Apply: func(_ context.Context, ec *domain.ExecutionContext, r domain.Result, dryRun bool) error {
			res := r.(staleResult)

			var files []string
			byFile := map[string][]staleEntry{}
			for _, e := range res.Entries {
				if _, ok := byFile[e.File]; !ok {
					files = append(files, e.File)
				}
				byFile[e.File] = append(byFile[e.File], e)
			}

			for _, f := range files {
				data, err := os.ReadFile(f)
				if err != nil {
					return fmt.Errorf("reading %s: %w", f, err)
				}
				for _, e := range byFile[f] {
					data = jsonparser.Delete(data, append(append([]string{}, e.Field...), e.Key)...)
					if isEmptyObject(data, e.Field...) {
						data = jsonparser.Delete(data, e.Field...)
					}
				}
				if err := ec.WriteFile(f, data, dryRun); err != nil {
					return fmt.Errorf("writing %s: %w", f, err)
				}
			}
			return nil
		},
	}
}

func staleOverridesIn(file string, data []byte, target string) ([]staleEntry, error) {
	var out []staleEntry
	for _, field := range overrideFields {
		_, typ, _, err := jsonparser.Get(data, field...)
		if err != nil || typ != jsonparser.Object {
			continue
		}
		err = jsonparser.ObjectEach(data, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
			if dt != jsonparser.String {
				return nil
			}
			k := string(key)
			if !isToolPackage(overridePackage(k)) {
				return nil
			}
			v, err := jsonparser.ParseString(value)
			if err != nil {
				return err
			}
			if gate.IsRange(v) && !gate.Satisfies(target, v) {
				out = append(out, staleEntry{File: file, Field: field, Key: k, Value: v})
			}
			return nil
		}, field...)
		if err != nil {
			return nil, fmt.Errorf("parsing %s in %s: %w", strings.Join(field, "."), file, err)
		}
	}
	return out, nil
}

// overridePackage reduces an override key such as "**/@storybook/react",
// "foo>storybook" or "storybook@8" to the package it targets.
func overridePackage(key string) string {
	key = strings.TrimPrefix(key, "**/")
	if i := strings.LastIndex(key, ">"); i >= 0 {
		key = key[i+1:]
	}
	if i := strings.LastIndex(key, "@"); i > 0 {
		key = key[:i]
	}
	return key
}

func isToolPackage(name string) bool {
	return name == "storybook" || strings.HasPrefix(name, "@storybook/")
}

func isEmptyObject(data []byte, keys ...string) bool {
	empty := true
	err := jsonparser.ObjectEach(data, func(_, _ []byte, _ jsonparser.ValueType, _ int) error {
		empty = false
		return nil
	}, keys...)
	return err == nil && empty
}
