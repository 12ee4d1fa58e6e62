// Package fixes holds the migration rules shipped with migrakit, in the
// order they run.
package fixes

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/migrakit/migrakit/internal/domain"
)

// All returns the rule set in declaration order. Order matters: rules are
// applied strictly one after another and later rules see earlier edits.
func All() *domain.RuleSet {
	return domain.NewRuleSet(
		CJSMainConfig(),
		RemoveAddonInteractions(),
		AutodocsTrue(),
		ESLintPlugin(),
		StaleOverrides(),
		AddonStoryshotsRemoved(),
		UpgradeRelatedDependencies(),
	)
}

// loadMainConfig parses the main config. A missing file or one the document
// model cannot rewrite yields a nil document; the cjsMainConfig notification
// covers the latter.
func loadMainConfig(ec *domain.ExecutionContext) (domain.ConfigDocument, error) {
	if ec.MainConfigPath == "" {
		return nil, nil
	}
	doc, err := ec.LoadConfig(ec.MainConfigPath)
	if errors.Is(err, domain.ErrUnsupportedConfigShape) {
		ec.Log().Warn("main config not rewritable", zap.String("file", ec.MainConfigPath), zap.Error(err))
		return nil, nil
	}
	return doc, err
}

var quotedRe = regexp.MustCompile(`['"]([^'"]+)['"]`)

// addonName extracts the package name from an addons entry: a plain string,
// an object with a name field, or an expression wrapping a string literal
// such as getAbsolutePath('@storybook/addon-docs').
func addonName(entry any) string {
	switch v := entry.(type) {
	case string:
		return v
	case map[string]any:
		return addonName(v["name"])
	case domain.ConfigExpression:
		if m := quotedRe.FindStringSubmatch(v.Source); m != nil {
			return m[1]
		}
	}
	return ""
}

// matchesAddon reports whether entry refers to pkg, directly or through a
// resolved path ending in the package name.
func matchesAddon(pkg string) func(any) bool {
	return func(entry any) bool {
		name := strings.TrimSuffix(addonName(entry), "/")
		return name == pkg || strings.HasSuffix(name, "/"+pkg)
	}
}

func hasAddon(doc domain.ConfigDocument, pkg string) bool {
	addons, ok := doc.GetField([]string{"addons"})
	if !ok {
		return false
	}
	list, ok := addons.([]any)
	if !ok {
		return false
	}
	match := matchesAddon(pkg)
	for _, a := range list {
		if match(a) {
			return true
		}
	}
	return false
}

// targetVersion is the version the project is moving to, falling back to the
// installed one outside an upgrade.
func targetVersion(ec *domain.ExecutionContext) string {
	if ec.AfterVersion != "" {
		return ec.AfterVersion
	}
	return ec.ToolVersion
}
