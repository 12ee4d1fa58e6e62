package fixes

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/migrakit/migrakit/internal/domain"
)

type autodocsResult struct {
	Value any
}

// AutodocsTrue retires the docs.autodocs option. A value of true becomes the
// 'autodocs' tag in the preview config and needs the user's consent; any
// other value is dropped automatically.
func AutodocsTrue() domain.Rule {
	return domain.Rule{
		ID:          "autodocsTrue",
		Description: "Move docs.autodocs to the autodocs tag",
		ModeFor: func(r domain.Result) domain.InteractionMode {
			if r.(autodocsResult).Value == true {
				return domain.ModeManual
			}
			return domain.ModeAutomatic
		},
		Check: func(_ context.Context, ec *domain.ExecutionContext) (domain.Result, error) {
			doc, err := loadMainConfig(ec)
			if err != nil || doc == nil {
				return nil, err
			}
			v, ok := doc.GetField([]string{"docs", "autodocs"})
			if !ok {
				return nil, nil
			}
			return autodocsResult{Value: v}, nil
		},
		Prompt: func(r domain.Result) string {
			res := r.(autodocsResult)
			if res.Value == true {
				return "docs.autodocs: true is no longer supported. migrakit will remove it from the main config " +
					"and add the 'autodocs' tag to the preview config so every component keeps its docs page."
			}
			return fmt.Sprintf("docs.autodocs: %s is no longer supported and will be removed from the main config.", describe(res.Value))
		},
		Apply: func(_ context.Context, ec *domain.ExecutionContext, r domain.Result, dryRun bool) error {
			res := r.(autodocsResult)
			if res.Value == true {
				if err := addAutodocsTag(ec, dryRun); err != nil {
					return err
				}
			}

			doc, err := loadMainConfig(ec)
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("main config %s is not rewritable", ec.MainConfigPath)
			}
			if err := doc.RemoveField([]string{"docs", "autodocs"}); err != nil {
				return fmt.Errorf("removing docs.autodocs: %w", err)
			}
			return ec.SaveConfig(doc, dryRun)
		},
	}
}

// addAutodocsTag appends 'autodocs' to the preview tags, creating the
// preview config when the project has none.
func addAutodocsTag(ec *domain.ExecutionContext, dryRun bool) error {
	if ec.PreviewConfigPath == "" {
		return ec.WriteFile(newPreviewPath(ec), []byte(defaultPreview), dryRun)
	}

	doc, err := ec.LoadConfig(ec.PreviewConfigPath)
	if err != nil {
		return fmt.Errorf("loading preview config: %w", err)
	}
	if tags, ok := doc.GetField([]string{"tags"}); ok {
		if list, ok := tags.([]any); ok {
			for _, t := range list {
				if t == "autodocs" {
					return nil
				}
			}
		}
	}
	if err := doc.AppendToArrayField([]string{"tags"}, "autodocs"); err != nil {
		return fmt.Errorf("adding autodocs tag: %w", err)
	}
	return ec.SaveConfig(doc, dryRun)
}

const defaultPreview = `const preview = {
  tags: ['autodocs'],
};

export default preview;
`

func newPreviewPath(ec *domain.ExecutionContext) string {
	ext := ".js"
	if strings.HasSuffix(ec.MainConfigPath, "ts") {
		ext = ".ts"
	}
	dir := ec.ConfigDir
	if ec.MainConfigPath != "" {
		dir = filepath.Dir(ec.MainConfigPath)
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(ec.ProjectPath, dir)
	}
	return filepath.Join(dir, "preview"+ext)
}

func describe(v any) string {
	switch val := v.(type) {
	case string:
		return "'" + val + "'"
	case domain.ConfigExpression:
		return val.Source
	}
	return fmt.Sprint(v)
}
