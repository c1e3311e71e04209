package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"promo-quiz/internal/domain"
	"promo-quiz/internal/infra/memory"
)

// QuestionLoader reads question sets from <dir>/<setID>.yaml. Sets missing on
// disk are delegated to fallback when one is configured.
type QuestionLoader struct {
	dir      string
	fallback memory.QuestionLoader
}

func NewQuestionLoader(dir string, fallback memory.QuestionLoader) *QuestionLoader {
	return &QuestionLoader{dir: dir, fallback: fallback}
}

func (l *QuestionLoader) LoadQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	if setID == "" || setID != filepath.Base(setID) {
		return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
	}

	data, err := os.ReadFile(filepath.Join(l.dir, setID+".yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		if l.fallback != nil {
			return l.fallback.LoadQuestionSet(ctx, setID)
		}
		return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
	}
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("read question set: %w", err)
	}

	var set domain.QuestionSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("parse question set %s: %w", setID, err)
	}
	if set.ID == "" {
		set.ID = setID
	}
	return set, nil
}
