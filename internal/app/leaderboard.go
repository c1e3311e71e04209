package app

import (
	"sort"

	"promo-quiz/internal/domain"
)

// Rank orders results by percentage correct, highest first. Equal percentages
// are ordered by earliest timestamp, then by handle, so the output does not
// depend on input order. The input slice is not modified.
func Rank(results []domain.QuizResult) []domain.LeaderboardEntry {
	sorted := make([]domain.QuizResult, len(results))
	copy(sorted, results)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if c := comparePercentage(a, b); c != 0 {
			return c > 0
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Handle < b.Handle
	})

	entries := make([]domain.LeaderboardEntry, 0, len(sorted))
	for i, r := range sorted {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:           i + 1,
			Handle:         r.Handle,
			Score:          r.Score,
			TotalQuestions: r.TotalQuestions,
			Percentage:     r.Percentage(),
			Timestamp:      r.Timestamp,
		})
	}
	return entries
}

// comparePercentage compares a.Score/a.Total with b.Score/b.Total without
// floating point. Results with no questions rank as 0%.
func comparePercentage(a, b domain.QuizResult) int {
	an, ad := fraction(a)
	bn, bd := fraction(b)
	l, r := an*bd, bn*ad
	switch {
	case l > r:
		return 1
	case l < r:
		return -1
	}
	return 0
}

func fraction(r domain.QuizResult) (int64, int64) {
	if r.TotalQuestions <= 0 {
		return 0, 1
	}
	return int64(r.Score), int64(r.TotalQuestions)
}

// TopHandles returns the handles of the first n entries.
func TopHandles(entries []domain.LeaderboardEntry, n int) ([]string, error) {
	if n < 1 || n > len(entries) {
		return nil, domain.ErrInvalidCandidateCount
	}
	handles := make([]string, 0, n)
	for _, e := range entries[:n] {
		handles = append(handles, e.Handle)
	}
	return handles, nil
}
