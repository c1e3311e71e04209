package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-quiz/internal/app"
	"promo-quiz/internal/domain"
	"promo-quiz/internal/infra/kv"
	"promo-quiz/internal/infra/memory"
)

func seedPlayers(t *testing.T, service *app.GameService) {
	t.Helper()
	ctx := context.Background()
	players := []struct {
		req     app.LoginRequest
		answers []int
		score   int
	}{
		{req: app.LoginRequest{Handle: "ana.m", Age: 24, Gender: app.GenderFemale}, answers: []int{0, 1, 2}, score: 3},
		{req: app.LoginRequest{Handle: "bo", Age: 31, Gender: app.GenderMale}, answers: []int{0, 0, app.NoAnswer}, score: 1},
		{req: app.LoginRequest{Handle: "cy", Age: 29}},
	}
	for _, p := range players {
		_, err := service.Login(ctx, p.req)
		require.NoError(t, err)
		if p.answers == nil {
			continue
		}
		_, err = service.Finish(ctx, p.req.Handle, app.Completion{Score: p.score, TotalQuestions: 3, Answers: p.answers})
		require.NoError(t, err)
	}
}

func newExporter(repo *kv.Repository) *app.Exporter {
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(map[string]domain.QuestionSet{
		"default": threeQuestions(),
	}), 0)
	return app.NewExporter(repo, questions, "default")
}

func TestExportBuildsReport(t *testing.T) {
	service, repo := newTestService(t, app.Effect{Kind: app.EffectPrize, Label: "🎨", Description: "You won exclusive merch!"})
	seedPlayers(t, service)
	_, err := service.DrawRaffle(context.Background(), []string{"ana.m", "bo"})
	require.NoError(t, err)

	report, err := newExporter(repo).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Summary.TotalParticipants)
	assert.Equal(t, 3, report.Summary.TotalQuestions)
	assert.InDelta(t, (100.0+100.0/3)/3, report.Summary.AverageScore, 0.001)
	assert.Equal(t, map[string]int{"Female": 1, "Male": 1, "Not Specified": 1}, report.Summary.GenderDistribution)
	assert.Equal(t, map[string]int{"20-29": 2, "30-39": 1}, report.Summary.AgeGroups)

	require.Len(t, report.Participants, 3)
	assert.Equal(t, "ana.m", report.Participants[0].Handle)
	assert.Equal(t, "cy", report.Participants[2].Handle)
	assert.Equal(t, 0, report.Participants[2].Score)

	require.Len(t, report.Questions, 3)
	assert.Equal(t, 2, report.Questions[0].Options[0].Votes)
	assert.True(t, report.Questions[0].Options[0].IsCorrect)
	assert.Equal(t, 1, report.Questions[2].TotalVotes)

	require.Len(t, report.RaffleHistory, 1)
}

func TestAgeGroup(t *testing.T) {
	assert.Equal(t, "10-19", app.AgeGroup(18))
	assert.Equal(t, "20-29", app.AgeGroup(27))
	assert.Equal(t, "100-109", app.AgeGroup(100))
}

func TestEndGameClearsOnlyAfterWrite(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService(t)
	seedPlayers(t, service)
	exporter := newExporter(repo)

	err := exporter.EndGame(ctx, func(app.Report) error { return errors.New("disk full") })
	require.Error(t, err)
	results, err := repo.Results(ctx)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	var written app.Report
	require.NoError(t, exporter.EndGame(ctx, func(r app.Report) error {
		written = r
		return nil
	}))
	assert.Len(t, written.Participants, 3)

	results, err = repo.Results(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
	played, err := repo.HasPlayed(ctx, "ana.m")
	require.NoError(t, err)
	assert.False(t, played)
}
