package fixes

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/migrakit/migrakit/internal/domain"
)

const eslintPluginPkg = "eslint-plugin-storybook"

type eslintResult struct {
	ESLintVersion string
}

// ESLintPlugin installs eslint-plugin-storybook in projects that lint with
// ESLint but lack the plugin.
func ESLintPlugin() domain.Rule {
	return domain.Rule{
		ID:          "eslintPlugin",
		Description: "Install eslint-plugin-storybook",
		Mode:        domain.ModeAutomatic,
		Check: func(_ context.Context, ec *domain.ExecutionContext) (domain.Result, error) {
			deps, err := ec.Packages.AllDependencies()
			if err != nil {
				return nil, fmt.Errorf("reading dependencies: %w", err)
			}
			eslint, ok := deps["eslint"]
			if !ok {
				return nil, nil
			}
			if _, ok := deps[eslintPluginPkg]; ok {
				return nil, nil
			}
			return eslintResult{ESLintVersion: eslint}, nil
		},
		Prompt: func(r domain.Result) string {
			return fmt.Sprintf("ESLint %s is installed without %s. migrakit will add it as a dev dependency.",
				r.(eslintResult).ESLintVersion, eslintPluginPkg)
		},
		Apply: func(ctx context.Context, ec *domain.ExecutionContext, _ domain.Result, dryRun bool) error {
			if dryRun {
				ec.Log().Info("dry run: would install", zap.String("package", eslintPluginPkg))
				return nil
			}
			opts := domain.DependencyOptions{Dev: true, SkipInstall: ec.SkipInstall}
			return ec.Packages.AddDependencies(ctx, opts, []string{eslintPluginPkg})
		},
	}
}
