package cli

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"promo-quiz/internal/domain"
)

//go:embed questions/*.yaml
var builtinFS embed.FS

// builtinQuestionSets parses the question sets compiled into the binary,
// keyed by file name.
func builtinQuestionSets() (map[string]domain.QuestionSet, error) {
	entries, err := fs.ReadDir(builtinFS, "questions")
	if err != nil {
		return nil, err
	}
	sets := make(map[string]domain.QuestionSet, len(entries))
	for _, e := range entries {
		data, err := builtinFS.ReadFile(path.Join("questions", e.Name()))
		if err != nil {
			return nil, err
		}
		var set domain.QuestionSet
		if err := yaml.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		id := strings.TrimSuffix(e.Name(), ".yaml")
		if set.ID == "" {
			set.ID = id
		}
		sets[id] = set
	}
	return sets, nil
}
