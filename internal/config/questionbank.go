package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
)

// QuestionBankYAML is the on-disk shape of a question bank override.
type QuestionBankYAML struct {
	Questions []string `yaml:"questions"`
}

// LoadQuestionBank returns the question bank for the process. With an empty path it
// returns a copy of domain.DefaultQuestionBank. Blank and duplicate entries are dropped.
func LoadQuestionBank(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return append([]string(nil), domain.DefaultQuestionBank...), nil
	}
	// #nosec G304 -- operator-provided config path
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("op=config.LoadQuestionBank: %w", err)
	}
	var qb QuestionBankYAML
	if err := yaml.Unmarshal(content, &qb); err != nil {
		return nil, fmt.Errorf("op=config.LoadQuestionBank: parse %s: %w", path, err)
	}
	seen := make(map[string]struct{}, len(qb.Questions))
	out := make([]string, 0, len(qb.Questions))
	for _, q := range qb.Questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("op=config.LoadQuestionBank: %s has no questions", path)
	}
	return out, nil
}
