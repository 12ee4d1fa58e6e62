package fixes

import (
	"context"
	"fmt"

	"github.com/migrakit/migrakit/internal/domain"
)

const addonStoryshots = "@storybook/addon-storyshots"

func AddonStoryshotsRemoved() domain.Rule {
	return domain.Rule{
		ID:          "addonStoryshotsRemoved",
		Description: "Storyshots is no longer supported",
		Mode:        domain.ModeNotification,
		Check: func(_ context.Context, ec *domain.ExecutionContext) (domain.Result, error) {
			installed, err := ec.Packages.IsDependencyInstalled(addonStoryshots)
			if err != nil {
				return nil, fmt.Errorf("reading dependencies: %w", err)
			}
			if !installed {
				return nil, nil
			}
			return addonStoryshots, nil
		},
		Prompt: func(domain.Result) string {
			return addonStoryshots + " was removed. Move snapshot tests to the test runner or to portable " +
				"stories in your own test framework, then uninstall the addon."
		},
	}
}
