package app

import (
	"errors"

	"promo-quiz/internal/domain"
)

// DefaultTimeBudget is the number of ticks a player has per question.
const DefaultTimeBudget = 30

// NoAnswer marks a question that timed out.
const NoAnswer = -1

var errNotRevealed = errors.New("question is still open")

// Phase is the lifecycle stage of the current question.
type Phase int

const (
	PhaseAsking Phase = iota
	PhaseReveal
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseAsking:
		return "asking"
	case PhaseReveal:
		return "reveal"
	case PhaseCompleted:
		return "completed"
	}
	return "unknown"
}

// Feedback is returned for an accepted answer.
type Feedback struct {
	QuestionIndex int  `json:"questionIndex"`
	Option        int  `json:"option"`
	Correct       bool `json:"correct"`
	CorrectOption int  `json:"correctOption"`
	Score         int  `json:"score"`
}

// TickResult is returned for every tick the engine consumed.
type TickResult struct {
	QuestionIndex int  `json:"questionIndex"`
	Remaining     int  `json:"remaining"`
	Expired       bool `json:"expired"`
}

// Completion is the terminal report of a quiz.
type Completion struct {
	Score          int   `json:"score"`
	TotalQuestions int   `json:"totalQuestions"`
	Answers        []int `json:"answers"`
}

// Engine is the per-attempt quiz state machine. It has no clock of its own:
// time advances only through Tick, and every Advance bumps the generation so
// ticks issued for an earlier question are dropped.
//
// Engine is not safe for concurrent use; Runner serializes access to it.
type Engine struct {
	questions []domain.Question
	budget    int

	index      int
	score      int
	remaining  int
	answered   bool
	phase      Phase
	generation uint64
	advances   int
	answers    []int
}

// NewEngine validates the question set and starts at the first question.
func NewEngine(set domain.QuestionSet, budget int) (*Engine, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if budget <= 0 {
		budget = DefaultTimeBudget
	}
	answers := make([]int, len(set.Questions))
	for i := range answers {
		answers[i] = NoAnswer
	}
	return &Engine{
		questions: set.Questions,
		budget:    budget,
		remaining: budget,
		phase:     PhaseAsking,
		answers:   answers,
	}, nil
}

func (e *Engine) Index() int { return e.index }
func (e *Engine) Score() int { return e.score }
func (e *Engine) Remaining() int { return e.remaining }
func (e *Engine) Phase() Phase { return e.phase }
func (e *Engine) Answered() bool { return e.answered }
func (e *Engine) Generation() uint64 { return e.generation }
func (e *Engine) Advances() int { return e.advances }
func (e *Engine) TotalQuestions() int { return len(e.questions) }
func (e *Engine) Current() domain.Question { return e.questions[e.index] }

// Answer records the first selection for the current question.
func (e *Engine) Answer(option int) (Feedback, error) {
	switch e.phase {
	case PhaseCompleted:
		return Feedback{}, domain.ErrQuizCompleted
	case PhaseReveal:
		return Feedback{}, domain.ErrAnswerLocked
	}
	q := e.questions[e.index]
	if option < 0 || option >= len(q.Options) {
		return Feedback{}, domain.ErrInvalidOption
	}

	correct := option == q.Correct
	if correct {
		e.score++
	}
	e.answers[e.index] = option
	e.answered = true
	e.phase = PhaseReveal

	return Feedback{
		QuestionIndex: e.index,
		Option:        option,
		Correct:       correct,
		CorrectOption: q.Correct,
		Score:         e.score,
	}, nil
}

// Tick consumes one time unit for the question identified by generation.
// It reports ok=false when the tick is stale or the question is not accepting input.
func (e *Engine) Tick(generation uint64) (TickResult, bool) {
	if generation != e.generation || e.phase != PhaseAsking {
		return TickResult{}, false
	}
	e.remaining--
	res := TickResult{QuestionIndex: e.index, Remaining: e.remaining}
	if e.remaining <= 0 {
		e.remaining = 0
		e.answered = true
		e.phase = PhaseReveal
		res.Expired = true
	}
	return res, true
}

// Advance moves past a revealed question. On the last question the engine
// completes and returns the final report.
func (e *Engine) Advance() (*Completion, error) {
	switch e.phase {
	case PhaseCompleted:
		return nil, domain.ErrQuizCompleted
	case PhaseAsking:
		return nil, errNotRevealed
	}

	e.advances++
	if e.index == len(e.questions)-1 {
		e.phase = PhaseCompleted
		return e.completion(), nil
	}

	// countdown, lock and generation move together
	e.index++
	e.remaining = e.budget
	e.answered = false
	e.generation++
	e.phase = PhaseAsking
	return nil, nil
}

// Completion returns the final report once the engine has completed.
func (e *Engine) Completion() (*Completion, bool) {
	if e.phase != PhaseCompleted {
		return nil, false
	}
	return e.completion(), true
}

func (e *Engine) completion() *Completion {
	answers := make([]int, len(e.answers))
	copy(answers, e.answers)
	return &Completion{
		Score:          e.score,
		TotalQuestions: len(e.questions),
		Answers:        answers,
	}
}
