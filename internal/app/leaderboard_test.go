package app_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-quiz/internal/app"
	"promo-quiz/internal/domain"
)

func sampleResults() []domain.QuizResult {
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	return []domain.QuizResult{
		{Handle: "cy", Score: 2, TotalQuestions: 10, Timestamp: base},
		{Handle: "ana.m", Score: 9, TotalQuestions: 10, Timestamp: base.Add(time.Minute)},
		{Handle: "bo", Score: 4, TotalQuestions: 5, Timestamp: base.Add(2 * time.Minute)},
		{Handle: "dee", Score: 8, TotalQuestions: 10, Timestamp: base.Add(3 * time.Minute)},
		{Handle: "eli", Score: 0, TotalQuestions: 0, Timestamp: base.Add(4 * time.Minute)},
		{Handle: "fox", Score: 12, TotalQuestions: 10, Timestamp: base.Add(5 * time.Minute)},
	}
}

func TestRankOrdersByPercentage(t *testing.T) {
	entries := app.Rank(sampleResults())
	require.Len(t, entries, 6)

	handles := make([]string, len(entries))
	for i, e := range entries {
		handles[i] = e.Handle
		assert.Equal(t, i+1, e.Rank)
	}
	// bo (80%, earlier) ties with dee (80%, later)
	assert.Equal(t, []string{"fox", "ana.m", "bo", "dee", "cy", "eli"}, handles)
	assert.InDelta(t, 120.0, entries[0].Percentage, 0.001)
	assert.Equal(t, 0.0, entries[5].Percentage)

	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i-1].Percentage, entries[i].Percentage)
	}
}

func TestRankIsPermutationInvariant(t *testing.T) {
	want := app.Rank(sampleResults())
	rnd := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		shuffled := sampleResults()
		rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, app.Rank(shuffled))
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	in := sampleResults()
	_ = app.Rank(in)
	assert.Equal(t, sampleResults(), in)
	assert.Empty(t, app.Rank(nil))
}

func TestRankTiesOnTimestampFallBackToHandle(t *testing.T) {
	ts := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	entries := app.Rank([]domain.QuizResult{
		{Handle: "zed", Score: 1, TotalQuestions: 2, Timestamp: ts},
		{Handle: "amy", Score: 2, TotalQuestions: 4, Timestamp: ts},
	})
	assert.Equal(t, "amy", entries[0].Handle)
	assert.Equal(t, "zed", entries[1].Handle)
}

func TestTopHandlesBounds(t *testing.T) {
	entries := app.Rank(sampleResults())
	top, err := app.TopHandles(entries, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"fox", "ana.m", "bo"}, top)

	_, err = app.TopHandles(entries, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidCandidateCount)
	_, err = app.TopHandles(entries, 7)
	assert.ErrorIs(t, err, domain.ErrInvalidCandidateCount)
	_, err = app.TopHandles(nil, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidCandidateCount)
}
