package fixes

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/migrakit/migrakit/internal/domain"
)

type cjsResult struct {
	Path string
}

// CJSMainConfig tells the user that a CommonJS main config blocks every rule
// that needs to edit it.
func CJSMainConfig() domain.Rule {
	return domain.Rule{
		ID:          "cjsMainConfig",
		Description: "Main config uses module.exports",
		Mode:        domain.ModeNotification,
		Check: func(_ context.Context, ec *domain.ExecutionContext) (domain.Result, error) {
			if ec.MainConfigPath == "" {
				return nil, nil
			}
			src, err := os.ReadFile(ec.MainConfigPath)
			if err != nil {
				return nil, fmt.Errorf("reading main config: %w", err)
			}
			_, err = ec.Configs.Parse(ec.MainConfigPath, src)
			switch {
			case errors.Is(err, domain.ErrUnsupportedConfigShape):
				return cjsResult{Path: ec.MainConfigPath}, nil
			case err != nil:
				return nil, err
			}
			return nil, nil
		},
		Prompt: func(r domain.Result) string {
			res := r.(cjsResult)
			return fmt.Sprintf(
				"%s is written with module.exports. Automatic migrations that edit it were skipped.\n"+
					"Convert it to an ES module (export default { ... }) and run automigrate again.", res.Path)
		},
	}
}
