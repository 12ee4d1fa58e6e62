package history

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/migrakit/migrakit/internal/domain"
)

const historyFile = ".migrakit/history.json"

// FileHistory implements domain.RunHistory using JSON file storage.
type FileHistory struct{}

func New() *FileHistory {
	return &FileHistory{}
}

// Save appends entry to the project's run history.
func (h *FileHistory) Save(projectPath string, entry domain.RunEntry) error {
	entries, err := h.Load(projectPath)
	if err != nil {
		return err
	}

	entries = append(entries, entry)

	fp := filepath.Join(projectPath, historyFile)
	if err := os.MkdirAll(filepath.Dir(fp), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(fp, data, 0644)
}

func (h *FileHistory) Load(projectPath string) ([]domain.RunEntry, error) {
	fp := filepath.Join(projectPath, historyFile)

	data, err := os.ReadFile(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []domain.RunEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

// Applied lists the rule ids that succeeded in any recorded run, in first
// success order.
func Applied(entries []domain.RunEntry) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range entries {
		ids := append(append([]string{}, e.Summary.Succeeded...), manualSucceeded(e.Summary)...)
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func manualSucceeded(s domain.RunSummary) []string {
	var out []string
	for _, id := range s.Manual {
		if s.ManualOutcomes[id] == domain.OutcomeManualSucceeded {
			out = append(out, id)
		}
	}
	return out
}
