package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Question is a single multiple-choice prompt with exactly one correct option.
type Question struct {
	ID      int      `json:"id" yaml:"id"`
	Text    string   `json:"text" yaml:"text"`
	Options []string `json:"options" yaml:"options"`
	Correct int      `json:"correctAnswer" yaml:"correct"`
}

// QuestionSet is a branded collection of questions.
type QuestionSet struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Validate reports whether the set can be played.
func (s QuestionSet) Validate() error {
	if len(s.Questions) == 0 {
		return &ConfigError{SetID: s.ID, Reason: "need at least one question", Err: ErrEmptyQuestionSet}
	}
	for i, q := range s.Questions {
		if len(q.Options) < 2 {
			return &ConfigError{SetID: s.ID, Reason: fmt.Sprintf("question %d needs at least two options", i)}
		}
		if q.Correct < 0 || q.Correct >= len(q.Options) {
			return &ConfigError{SetID: s.ID, Reason: fmt.Sprintf("correct answer of question %d is out of range", i)}
		}
	}
	return nil
}

// QuizResult is one completed attempt. Score is the roulette-modified score.
type QuizResult struct {
	Handle         string
	Score          int
	TotalQuestions int
	Timestamp      time.Time
}

type quizResultJSON struct {
	Handle         string `json:"instagramHandle"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	Timestamp      int64  `json:"timestamp"`
}

// MarshalJSON keeps the `scores` key readable by the exporter: timestamps are unix millis.
func (r QuizResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(quizResultJSON{
		Handle:         r.Handle,
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		Timestamp:      r.Timestamp.UnixMilli(),
	})
}

func (r *QuizResult) UnmarshalJSON(data []byte) error {
	var raw quizResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Handle = raw.Handle
	r.Score = raw.Score
	r.TotalQuestions = raw.TotalQuestions
	r.Timestamp = time.UnixMilli(raw.Timestamp).UTC()
	return nil
}

// Percentage returns the score as a share of the question count, in percent.
func (r QuizResult) Percentage() float64 {
	if r.TotalQuestions <= 0 {
		return 0
	}
	return float64(r.Score) / float64(r.TotalQuestions) * 100
}

// UserMetadata is captured at login.
type UserMetadata struct {
	Age      int       `json:"age"`
	Gender   string    `json:"gender"`
	PlayedAt time.Time `json:"playedAt"`
}

// RaffleRecord is one completed draw.
type RaffleRecord struct {
	ID           string    `json:"id,omitempty"`
	Date         time.Time `json:"date"`
	Participants []string  `json:"participants"`
	Winner       string    `json:"winner"`
}

// ModifierOutcome describes the roulette effect applied to a raw score.
type ModifierOutcome struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	RawScore    int    `json:"rawScore"`
	Score       int    `json:"score"`
}

// LeaderboardEntry is one ranked result.
type LeaderboardEntry struct {
	Rank           int       `json:"rank"`
	Handle         string    `json:"instagramHandle"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Percentage     float64   `json:"percentage"`
	Timestamp      time.Time `json:"timestamp"`
}

// FinalResult is what a player sees after the wheel stops.
type FinalResult struct {
	Result   QuizResult      `json:"result"`
	Modifier ModifierOutcome `json:"modifier"`
	Message  string          `json:"message"`
}
