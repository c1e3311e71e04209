package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuestionSet is returned when a question set has no questions.
	ErrEmptyQuestionSet = errors.New("question set is empty")
	// ErrQuestionSetNotFound indicates the question set could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrDuplicateAttempt is returned when a handle has already played.
	ErrDuplicateAttempt = errors.New("handle has already played")
	// ErrRaffleIneligible is returned when every candidate already won a previous raffle.
	ErrRaffleIneligible = errors.New("no eligible raffle participants")
	// ErrInvalidCandidateCount indicates a top-N request outside 1..len(leaderboard).
	ErrInvalidCandidateCount = errors.New("invalid number of raffle candidates")
	// ErrStoreIO marks persisted read/write failures; match it with errors.Is.
	ErrStoreIO = errors.New("store i/o failure")

	ErrInvalidHandle = errors.New("invalid handle")
	ErrInvalidAge    = errors.New("age must be between 18 and 100")
	ErrInvalidGender = errors.New("invalid gender")

	// ErrInvalidOption indicates an answer index outside the question's options.
	ErrInvalidOption = errors.New("option not found")
	// ErrAnswerLocked is returned when the current question no longer accepts input.
	ErrAnswerLocked = errors.New("question already answered")
	// ErrQuizCompleted is returned when acting on a finished quiz.
	ErrQuizCompleted = errors.New("quiz already completed")
)

// ConfigError reports a question set that cannot be played. It is fatal at startup.
type ConfigError struct {
	SetID  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.SetID == "" {
		return "invalid question set: " + e.Reason
	}
	return fmt.Sprintf("invalid question set %q: %s", e.SetID, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// StoreError wraps a failed read or write of one persisted key.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreIO }
