package app_test

import (
	"errors"
	"testing"

	"promo-quiz/internal/app"
	"promo-quiz/internal/domain"
)

func threeQuestions() domain.QuestionSet {
	return domain.QuestionSet{
		ID: "default",
		Questions: []domain.Question{
			{ID: 1, Text: "q1", Options: []string{"a", "b", "c"}, Correct: 0},
			{ID: 2, Text: "q2", Options: []string{"a", "b"}, Correct: 1},
			{ID: 3, Text: "q3", Options: []string{"a", "b", "c", "d"}, Correct: 2},
		},
	}
}

func TestEngineScoresCorrectCorrectWrong(t *testing.T) {
	e, err := app.NewEngine(threeQuestions(), 5)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	var completion *app.Completion
	for _, option := range []int{0, 1, 0} {
		if _, err := e.Answer(option); err != nil {
			t.Fatalf("answer %d: %v", option, err)
		}
		completion, err = e.Advance()
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if completion == nil {
		t.Fatalf("expected completion after last question")
	}
	if completion.Score != 2 || completion.TotalQuestions != 3 {
		t.Fatalf("expected 2/3, got %d/%d", completion.Score, completion.TotalQuestions)
	}
	if e.Advances() != 3 {
		t.Fatalf("expected exactly 3 advances, got %d", e.Advances())
	}
	if got := completion.Answers; len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 0 {
		t.Fatalf("unexpected answers %v", got)
	}
}

func TestEngineTimeoutLocksQuestion(t *testing.T) {
	e, err := app.NewEngine(threeQuestions(), 3)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	gen := e.Generation()

	for i := 0; i < 2; i++ {
		res, ok := e.Tick(gen)
		if !ok || res.Expired {
			t.Fatalf("tick %d: ok=%v expired=%v", i, ok, res.Expired)
		}
	}
	res, ok := e.Tick(gen)
	if !ok || !res.Expired || res.Remaining != 0 {
		t.Fatalf("expected expiry on third tick, got %+v ok=%v", res, ok)
	}
	if e.Phase() != app.PhaseReveal || !e.Answered() {
		t.Fatalf("expected reveal phase after timeout, got %s", e.Phase())
	}

	if _, err := e.Answer(0); !errors.Is(err, domain.ErrAnswerLocked) {
		t.Fatalf("expected answer locked, got %v", err)
	}
	if _, ok := e.Tick(gen); ok {
		t.Fatalf("expected no ticks during reveal")
	}
	if e.Score() != 0 {
		t.Fatalf("timeout must not score, got %d", e.Score())
	}
}

func TestEngineDropsStaleTicks(t *testing.T) {
	e, err := app.NewEngine(threeQuestions(), 4)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	first := e.Generation()
	if _, err := e.Answer(0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := e.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}

	if _, ok := e.Tick(first); ok {
		t.Fatalf("tick from the previous question must be dropped")
	}
	if e.Remaining() != 4 || e.Index() != 1 {
		t.Fatalf("stale tick changed state: index=%d remaining=%d", e.Index(), e.Remaining())
	}
	if _, ok := e.Tick(e.Generation()); !ok || e.Remaining() != 3 {
		t.Fatalf("current tick should count down, remaining=%d", e.Remaining())
	}
}

func TestEngineAcceptsOnlyFirstAnswer(t *testing.T) {
	e, _ := app.NewEngine(threeQuestions(), 5)

	fb, err := e.Answer(0)
	if err != nil || !fb.Correct || fb.CorrectOption != 0 || fb.Score != 1 {
		t.Fatalf("unexpected feedback %+v err=%v", fb, err)
	}
	if _, err := e.Answer(1); !errors.Is(err, domain.ErrAnswerLocked) {
		t.Fatalf("expected second answer to be locked, got %v", err)
	}
	if e.Score() != 1 {
		t.Fatalf("score changed by locked answer: %d", e.Score())
	}
}

func TestEngineRejectsInvalidOption(t *testing.T) {
	e, _ := app.NewEngine(threeQuestions(), 5)
	for _, option := range []int{-1, 3} {
		if _, err := e.Answer(option); !errors.Is(err, domain.ErrInvalidOption) {
			t.Fatalf("option %d: expected invalid option, got %v", option, err)
		}
	}
	if e.Phase() != app.PhaseAsking {
		t.Fatalf("invalid option must not lock the question")
	}
}

func TestEngineAdvanceRules(t *testing.T) {
	e, _ := app.NewEngine(threeQuestions(), 5)
	if _, err := e.Advance(); err == nil {
		t.Fatalf("expected advance to fail before reveal")
	}

	for i := 0; i < 3; i++ {
		gen := e.Generation()
		for {
			if res, _ := e.Tick(gen); res.Expired {
				break
			}
		}
		if _, err := e.Advance(); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	if e.Phase() != app.PhaseCompleted {
		t.Fatalf("expected completed, got %s", e.Phase())
	}
	if _, err := e.Answer(0); !errors.Is(err, domain.ErrQuizCompleted) {
		t.Fatalf("expected quiz completed, got %v", err)
	}
	if _, err := e.Advance(); !errors.Is(err, domain.ErrQuizCompleted) {
		t.Fatalf("expected quiz completed, got %v", err)
	}
	c, ok := e.Completion()
	if !ok || c.Score != 0 {
		t.Fatalf("unexpected completion %+v ok=%v", c, ok)
	}
	for i, a := range c.Answers {
		if a != app.NoAnswer {
			t.Fatalf("answer %d should be unanswered, got %d", i, a)
		}
	}
}

func TestNewEngineValidates(t *testing.T) {
	if _, err := app.NewEngine(domain.QuestionSet{ID: "empty"}, 5); !errors.Is(err, domain.ErrEmptyQuestionSet) {
		t.Fatalf("expected empty set error, got %v", err)
	}
	var cfgErr *domain.ConfigError
	bad := domain.QuestionSet{ID: "bad", Questions: []domain.Question{{ID: 1, Options: []string{"a", "b"}, Correct: 2}}}
	if _, err := app.NewEngine(bad, 5); !errors.As(err, &cfgErr) {
		t.Fatalf("expected config error, got %v", err)
	}

	e, err := app.NewEngine(threeQuestions(), 0)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if e.Remaining() != app.DefaultTimeBudget {
		t.Fatalf("expected default budget, got %d", e.Remaining())
	}
}
