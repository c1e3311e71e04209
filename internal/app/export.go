package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"promo-quiz/internal/domain"
)

// Report is the on-demand data export.
type Report struct {
	ExportDate    time.Time             `json:"exportDate"`
	Summary       ReportSummary         `json:"summary"`
	Participants  []ReportParticipant   `json:"participants"`
	Questions     []ReportQuestion      `json:"questions"`
	RaffleHistory []domain.RaffleRecord `json:"raffleHistory"`
}

type ReportSummary struct {
	TotalParticipants  int            `json:"totalParticipants"`
	TotalQuestions     int            `json:"totalQuestions"`
	AverageScore       float64        `json:"averageScore"`
	GenderDistribution map[string]int `json:"genderDistribution"`
	AgeGroups          map[string]int `json:"ageGroups"`
}

type ReportParticipant struct {
	Handle          string    `json:"instagramHandle"`
	Age             int       `json:"age"`
	Gender          string    `json:"gender"`
	Score           int       `json:"score"`
	ScorePercentage float64   `json:"scorePercentage"`
	PlayedAt        time.Time `json:"playedAt"`
}

type ReportQuestion struct {
	QuestionText string         `json:"questionText"`
	Options      []ReportOption `json:"options"`
	TotalVotes   int            `json:"totalVotes"`
}

type ReportOption struct {
	Text      string `json:"text"`
	Votes     int    `json:"votes"`
	IsCorrect bool   `json:"isCorrect"`
}

// Exporter builds reports from the persisted keys. It only reads.
type Exporter struct {
	store     Store
	questions QuestionRepository
	setID     string
	now       func() time.Time
}

func NewExporter(store Store, questions QuestionRepository, setID string) *Exporter {
	return &Exporter{store: store, questions: questions, setID: setID, now: time.Now}
}

// FileName is the suggested name for a report written on day t.
func (e *Exporter) FileName(t time.Time) string {
	return fmt.Sprintf("%s-quiz-data-%s.json", e.setID, t.UTC().Format("2006-01-02"))
}

// Build reads every key concurrently and assembles the report.
func (e *Exporter) Build(ctx context.Context) (Report, error) {
	var (
		set      domain.QuestionSet
		results  []domain.QuizResult
		metadata map[string]domain.UserMetadata
		answers  map[string][]int
		history  []domain.RaffleRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		set, err = e.questions.GetQuestionSet(gctx, e.setID)
		return err
	})
	g.Go(func() (err error) {
		results, err = e.store.Results(gctx)
		return err
	})
	g.Go(func() (err error) {
		metadata, err = e.store.UserMetadata(gctx)
		return err
	})
	g.Go(func() (err error) {
		answers, err = e.store.Answers(gctx)
		return err
	})
	g.Go(func() (err error) {
		history, err = e.store.RaffleHistory(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	participants := buildParticipants(metadata, results)
	if history == nil {
		history = []domain.RaffleRecord{}
	}

	return Report{
		ExportDate:    e.now().UTC(),
		Summary:       buildSummary(participants, metadata, len(set.Questions)),
		Participants:  participants,
		Questions:     buildQuestionStats(set, answers),
		RaffleHistory: history,
	}, nil
}

func buildParticipants(metadata map[string]domain.UserMetadata, results []domain.QuizResult) []ReportParticipant {
	byHandle := make(map[string]domain.QuizResult, len(results))
	for _, r := range results {
		if _, ok := byHandle[r.Handle]; !ok {
			byHandle[r.Handle] = r
		}
	}

	participants := make([]ReportParticipant, 0, len(metadata))
	for handle, meta := range metadata {
		p := ReportParticipant{
			Handle:   handle,
			Age:      meta.Age,
			Gender:   meta.Gender,
			PlayedAt: meta.PlayedAt,
		}
		if r, ok := byHandle[handle]; ok {
			p.Score = r.Score
			p.ScorePercentage = r.Percentage()
		}
		participants = append(participants, p)
	}
	sort.Slice(participants, func(i, j int) bool {
		if participants[i].ScorePercentage != participants[j].ScorePercentage {
			return participants[i].ScorePercentage > participants[j].ScorePercentage
		}
		return participants[i].Handle < participants[j].Handle
	})
	return participants
}

func buildSummary(participants []ReportParticipant, metadata map[string]domain.UserMetadata, totalQuestions int) ReportSummary {
	summary := ReportSummary{
		TotalParticipants:  len(participants),
		TotalQuestions:     totalQuestions,
		GenderDistribution: make(map[string]int),
		AgeGroups:          make(map[string]int),
	}
	if len(participants) > 0 {
		var sum float64
		for _, p := range participants {
			sum += p.ScorePercentage
		}
		summary.AverageScore = sum / float64(len(participants))
	}
	for _, meta := range metadata {
		summary.GenderDistribution[meta.Gender]++
		summary.AgeGroups[AgeGroup(meta.Age)]++
	}
	return summary
}

// AgeGroup buckets an age by decade, e.g. 27 -> "20-29".
func AgeGroup(age int) string {
	lo := age / 10 * 10
	return fmt.Sprintf("%d-%d", lo, lo+9)
}

func buildQuestionStats(set domain.QuestionSet, answers map[string][]int) []ReportQuestion {
	stats := make([]ReportQuestion, 0, len(set.Questions))
	for qi, q := range set.Questions {
		rq := ReportQuestion{QuestionText: q.Text, Options: make([]ReportOption, len(q.Options))}
		for oi, text := range q.Options {
			rq.Options[oi] = ReportOption{Text: text, IsCorrect: oi == q.Correct}
		}
		for _, picks := range answers {
			if qi >= len(picks) {
				continue
			}
			if oi := picks[qi]; oi >= 0 && oi < len(rq.Options) {
				rq.Options[oi].Votes++
				rq.TotalVotes++
			}
		}
		stats = append(stats, rq)
	}
	return stats
}

// EndGame exports the current data through write and then clears the store.
// Nothing is cleared if the export fails.
func (e *Exporter) EndGame(ctx context.Context, write func(Report) error) error {
	report, err := e.Build(ctx)
	if err != nil {
		return err
	}
	if err := write(report); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return e.store.Clear(ctx)
}
