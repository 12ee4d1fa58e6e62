package fixes

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/migrakit/migrakit/internal/domain"
	"github.com/migrakit/migrakit/internal/domain/gate"
)

type outdatedDep struct {
	Name    string
	Current string
}

type relatedDepsResult struct {
	Target   string
	Outdated []outdatedDep
}

// UpgradeRelatedDependencies bumps the tool's own packages that lag behind
// the target version. It only runs when requested by id.
func UpgradeRelatedDependencies() domain.Rule {
	return domain.Rule{
		ID:          "upgradeRelatedDependencies",
		Description: "Align @storybook/* package versions",
		Mode:        domain.ModeCommandOnly,
		Check: func(_ context.Context, ec *domain.ExecutionContext) (domain.Result, error) {
			target := targetVersion(ec)
			if target == "" {
				return nil, nil
			}
			deps, err := ec.Packages.AllDependencies()
			if err != nil {
				return nil, fmt.Errorf("reading dependencies: %w", err)
			}

			res := relatedDepsResult{Target: target}
			for name, spec := range deps {
				if !isToolPackage(name) || name == addonStoryshots {
					continue
				}
				if cur := gate.Coerce(spec); cur != "" && gate.Older(cur, target) {
					res.Outdated = append(res.Outdated, outdatedDep{Name: name, Current: spec})
				}
			}
			if len(res.Outdated) == 0 {
				return nil, nil
			}
			sort.Slice(res.Outdated, func(i, j int) bool { return res.Outdated[i].Name < res.Outdated[j].Name })
			return res, nil
		},
		Prompt: func(r domain.Result) string {
			res := r.(relatedDepsResult)
			var b strings.Builder
			fmt.Fprintf(&b, "These packages will be upgraded to ^%s:\n", res.Target)
			for _, d := range res.Outdated {
				fmt.Fprintf(&b, "  %s (%s)\n", d.Name, d.Current)
			}
			return strings.TrimRight(b.String(), "\n")
		},
		Apply: func(ctx context.Context, ec *domain.ExecutionContext, r domain.Result, dryRun bool) error {
			res := r.(relatedDepsResult)
			specs := make([]string, 0, len(res.Outdated))
			for _, d := range res.Outdated {
				specs = append(specs, d.Name+"@^"+res.Target)
			}
			if dryRun {
				ec.Log().Info("dry run: would upgrade", zap.Strings("packages", specs))
				return nil
			}
			opts := domain.DependencyOptions{Dev: true, SkipInstall: ec.SkipInstall}
			return ec.Packages.AddDependencies(ctx, opts, specs)
		},
	}
}
