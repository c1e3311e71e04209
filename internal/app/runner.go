package app

import (
	"context"
	"time"

	"promo-quiz/internal/domain"
)

// EventType names a Runner event.
type EventType string

const (
	EventQuestion  EventType = "question"
	EventTick      EventType = "tick"
	EventAnswered  EventType = "answered"
	EventTimeUp    EventType = "timeUp"
	EventRejected  EventType = "rejected"
	EventCompleted EventType = "completed"
)

// QuestionView is a question without its answer key.
type QuestionView struct {
	Index    int      `json:"index"`
	Total    int      `json:"total"`
	ID       int      `json:"id"`
	Text     string   `json:"text"`
	Options  []string `json:"options"`
	TimeLeft int      `json:"timeLeft"`
}

// Event is emitted by Runner as the quiz progresses.
type Event struct {
	Type       EventType     `json:"type"`
	Question   *QuestionView `json:"question,omitempty"`
	Tick       *TickResult   `json:"tick,omitempty"`
	Feedback   *Feedback     `json:"feedback,omitempty"`
	Completion *Completion   `json:"completion,omitempty"`
	Error      string        `json:"error,omitempty"`
}

type submission struct {
	questionIndex int
	option        int
}

// Runner drives an Engine in real time. Run owns the engine; callers only
// Submit answers and read Events.
type Runner struct {
	engine      *Engine
	tick        time.Duration
	revealDelay time.Duration

	submissions chan submission
	events      chan Event
	done        chan struct{}
}

// NewRunner wires an engine to a ticker of period tick. After an answer or a
// timeout the runner waits revealDelay before moving on.
func NewRunner(engine *Engine, tick, revealDelay time.Duration) *Runner {
	if tick <= 0 {
		tick = time.Second
	}
	return &Runner{
		engine:      engine,
		tick:        tick,
		revealDelay: revealDelay,
		submissions: make(chan submission, 4),
		events:      make(chan Event, 16),
		done:        make(chan struct{}),
	}
}

// Events is closed when Run returns.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// Submit offers an answer for the question at questionIndex. Answers for any
// other question are discarded by the run loop, and anything submitted during
// the reveal pause is drained without effect. Submit reports false when the
// runner is done or its buffer is momentarily full.
func (r *Runner) Submit(questionIndex, option int) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.submissions <- submission{questionIndex: questionIndex, option: option}:
		return true
	default:
		return false
	}
}

// Run blocks until the quiz completes or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (*Completion, error) {
	defer close(r.events)
	defer close(r.done)

	for {
		if !r.emit(ctx, Event{Type: EventQuestion, Question: r.view()}) {
			return nil, ctx.Err()
		}

		if err := r.awaitReveal(ctx); err != nil {
			return nil, err
		}

		if !r.revealPause(ctx, r.revealDelay) {
			return nil, ctx.Err()
		}

		completion, err := r.engine.Advance()
		if err != nil {
			return nil, err
		}
		if completion != nil {
			r.emit(ctx, Event{Type: EventCompleted, Completion: completion})
			return completion, nil
		}
	}
}

// awaitReveal runs the countdown for the current question until it is
// answered or expires. The ticker never outlives the question.
func (r *Runner) awaitReveal(ctx context.Context) error {
	generation := r.engine.Generation()
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			res, ok := r.engine.Tick(generation)
			if !ok {
				continue
			}
			if !r.emit(ctx, Event{Type: EventTick, Tick: &res}) {
				return ctx.Err()
			}
			if res.Expired {
				if !r.emit(ctx, Event{Type: EventTimeUp, Tick: &res}) {
					return ctx.Err()
				}
				return nil
			}

		case s := <-r.submissions:
			if s.questionIndex != r.engine.Index() {
				continue
			}
			fb, err := r.engine.Answer(s.option)
			if err != nil {
				if !r.emit(ctx, Event{Type: EventRejected, Error: err.Error()}) {
					return ctx.Err()
				}
				continue
			}
			if !r.emit(ctx, Event{Type: EventAnswered, Feedback: &fb}) {
				return ctx.Err()
			}
			return nil
		}
	}
}

func (r *Runner) view() *QuestionView {
	q := r.engine.Current()
	return questionView(q, r.engine.Index(), r.engine.TotalQuestions(), r.engine.Remaining())
}

func questionView(q domain.Question, index, total, timeLeft int) *QuestionView {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return &QuestionView{
		Index:    index,
		Total:    total,
		ID:       q.ID,
		Text:     q.Text,
		Options:  options,
		TimeLeft: timeLeft,
	}
}

func (r *Runner) emit(ctx context.Context, ev Event) bool {
	select {
	case r.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// revealPause waits d while discarding submissions, so late answers for the
// revealed question cannot fill the buffer ahead of the next one.
func (r *Runner) revealPause(ctx context.Context, d time.Duration) bool {
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
	wait:
		for {
			select {
			case <-t.C:
				break wait
			case <-r.submissions:
			case <-ctx.Done():
				return false
			}
		}
	}
	for {
		select {
		case <-r.submissions:
		default:
			return ctx.Err() == nil
		}
	}
}
