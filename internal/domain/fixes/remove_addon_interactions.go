package fixes

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/migrakit/migrakit/internal/domain"
)

const addonInteractions = "@storybook/addon-interactions"

type interactionsResult struct {
	InAddons  bool
	Installed bool
}

// RemoveAddonInteractions drops the interactions addon, which was folded into
// the core in 9.0.
func RemoveAddonInteractions() domain.Rule {
	return domain.Rule{
		ID:          "removeAddonInteractions",
		Description: "Remove @storybook/addon-interactions",
		Range:       &domain.VersionRange{Before: "<9.0.0", After: "^9.0.0-0 || ^9.0.0"},
		Mode:        domain.ModeAutomatic,
		Check: func(_ context.Context, ec *domain.ExecutionContext) (domain.Result, error) {
			doc, err := loadMainConfig(ec)
			if err != nil {
				return nil, err
			}
			res := interactionsResult{}
			if doc != nil {
				res.InAddons = hasAddon(doc, addonInteractions)
			}
			res.Installed, err = ec.Packages.IsDependencyInstalled(addonInteractions)
			if err != nil {
				return nil, fmt.Errorf("reading dependencies: %w", err)
			}
			if !res.InAddons && !res.Installed {
				return nil, nil
			}
			return res, nil
		},
		Prompt: func(r domain.Result) string {
			res := r.(interactionsResult)
			var steps []string
			if res.InAddons {
				steps = append(steps, "remove it from the addons list")
			}
			if res.Installed {
				steps = append(steps, "uninstall it")
			}
			return fmt.Sprintf("%s is part of the core now. migrakit will %s.",
				addonInteractions, strings.Join(steps, " and "))
		},
		Apply: func(ctx context.Context, ec *domain.ExecutionContext, r domain.Result, dryRun bool) error {
			res := r.(interactionsResult)
			if res.InAddons {
				doc, err := loadMainConfig(ec)
				if err != nil {
					return err
				}
				if doc != nil {
					if _, err := doc.RemoveFromArrayField([]string{"addons"}, matchesAddon(addonInteractions)); err != nil {
						return fmt.Errorf("removing addon entry: %w", err)
					}
					if err := ec.SaveConfig(doc, dryRun); err != nil {
						return fmt.Errorf("writing main config: %w", err)
					}
				}
			}
			if res.Installed {
				if dryRun {
					ec.Log().Info("dry run: would uninstall", zap.String("package", addonInteractions))
					return nil
				}
				opts := domain.DependencyOptions{SkipInstall: ec.SkipInstall}
				if err := ec.Packages.RemoveDependencies(ctx, opts, []string{addonInteractions}); err != nil {
					return fmt.Errorf("uninstalling %s: %w", addonInteractions, err)
				}
			}
			return nil
		},
	}
}
