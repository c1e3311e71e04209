package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-quiz/internal/app"
	"promo-quiz/internal/domain"
	"promo-quiz/internal/infra/kv"
)

func newTestMux(t *testing.T) (*http.ServeMux, *kv.Repository) {
	t.Helper()
	service, repo := newTestService(t)
	questions := stubQuestions{set: sampleSet()}
	api := NewAPIHandler(service, app.NewExporter(repo, questions, "default"), 5)
	api.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	mux := http.NewServeMux()
	Register(mux, api, NewWSHandler(service, PlayOptions{}))
	return mux, repo
}

func seedResults(t *testing.T, repo *kv.Repository) {
	t.Helper()
	ts := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	for i, r := range []domain.QuizResult{
		{Handle: "ana.m", Score: 9, TotalQuestions: 10},
		{Handle: "bo", Score: 4, TotalQuestions: 5},
		{Handle: "cy", Score: 2, TotalQuestions: 10},
	} {
		r.Timestamp = ts.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.SaveResult(context.Background(), r))
	}
}

func TestLeaderboardEndpointRanksByPercentage(t *testing.T) {
	mux, repo := newTestMux(t)
	seedResults(t, repo)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []domain.LeaderboardEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "ana.m", entries[0].Handle)
	assert.Equal(t, "bo", entries[1].Handle)
	assert.Equal(t, 3, entries[2].Rank)
	assert.InDelta(t, 80.0, entries[1].Percentage, 0.001)
}

func TestRaffleEndpointExcludesPreviousWinners(t *testing.T) {
	mux, repo := newTestMux(t)
	seedResults(t, repo)
	require.NoError(t, repo.AppendRaffle(context.Background(), domain.RaffleRecord{
		Date: time.Now().UTC(), Participants: []string{"ana.m", "bo"}, Winner: "ana.m",
	}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/raffle", strings.NewReader(`{"top":2}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp raffleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bo", resp.Record.Winner)
	assert.Equal(t, []string{"ana.m", "bo"}, resp.Record.Participants)
	assert.Len(t, resp.Frames, 5)

	history, err := repo.RaffleHistory(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestRaffleEndpointErrors(t *testing.T) {
	mux, repo := newTestMux(t)
	seedResults(t, repo)
	require.NoError(t, repo.AppendRaffle(context.Background(), domain.RaffleRecord{
		Date: time.Now().UTC(), Participants: []string{"cy"}, Winner: "cy",
	}))

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{name: "malformed", body: `{`, status: http.StatusBadRequest},
		{name: "zero top", body: `{"top":0}`, status: http.StatusBadRequest},
		{name: "top beyond ranked", body: `{"top":4}`, status: http.StatusBadRequest},
		{name: "all previous winners", body: `{"candidates":["cy"]}`, status: http.StatusConflict},
		{name: "previous winner in other case", body: `{"candidates":["CY"," cy "]}`, status: http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/raffle", strings.NewReader(tc.body)))
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}

	history, err := repo.RaffleHistory(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestExportEndpoint(t *testing.T) {
	mux, repo := newTestMux(t)
	ctx := context.Background()
	require.NoError(t, repo.RegisterPlayer(ctx, "ana.m", domain.UserMetadata{Age: 24, Gender: "Female"}))
	require.NoError(t, repo.SaveResult(ctx, domain.QuizResult{Handle: "ana.m", Score: 2, TotalQuestions: 2, Timestamp: time.Now()}))
	require.NoError(t, repo.SaveAnswers(ctx, "ana.m", []int{1, 0}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "default-quiz-data-2026-03-01.json")

	var report app.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Participants, 1)
	require.Len(t, report.Questions, 2)
	assert.Equal(t, 1, report.Questions[0].Options[1].Votes)
}

func TestHealthz(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok", rec.Body.String())
}

type stubQuestions struct {
	set domain.QuestionSet
}

func (s stubQuestions) GetQuestionSet(_ context.Context, setID string) (domain.QuestionSet, error) {
	if setID != s.set.ID {
		return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
	}
	return s.set, nil
}
