package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"promo-quiz/internal/domain"
)

// Store is the typed repository over the persisted keys. Implementations must
// write each key whole so a failed write leaves the previous value intact.
type Store interface {
	RaffleStore

	Results(ctx context.Context) ([]domain.QuizResult, error)
	SaveResult(ctx context.Context, result domain.QuizResult) error

	HasPlayed(ctx context.Context, handle string) (bool, error)
	// RegisterPlayer returns domain.ErrDuplicateAttempt when handle already played.
	RegisterPlayer(ctx context.Context, handle string, meta domain.UserMetadata) error
	UserMetadata(ctx context.Context) (map[string]domain.UserMetadata, error)

	SaveAnswers(ctx context.Context, handle string, answers []int) error
	Answers(ctx context.Context) (map[string][]int, error)

	Clear(ctx context.Context) error
}

// QuestionRepository loads question sets (from cache/backing store).
type QuestionRepository interface {
	GetQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

const (
	GenderMale         = "Male"
	GenderFemale       = "Female"
	GenderNotSpecified = "Not Specified"
)

var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9._]+$`)

// LoginRequest is the player form.
type LoginRequest struct {
	Handle string `json:"handle" validate:"required,handle"`
	Age    int    `json:"age" validate:"gte=18,lte=100"`
	Gender string `json:"gender" validate:"oneof='Male' 'Female' 'Not Specified'"`
}

// Player is a logged-in participant.
type Player struct {
	Handle   string              `json:"handle"`
	Metadata domain.UserMetadata `json:"metadata"`
}

// Options tunes a GameService. Zero values fall back to defaults.
type Options struct {
	QuestionSetID string
	TimeBudget    int
	Wheel         *Wheel
	Raffle        *Raffle
	Now           func() time.Time
}

// GameService contains the quiz use cases from login to raffle.
type GameService struct {
	store     Store
	questions QuestionRepository
	setID     string
	budget    int
	wheel     *Wheel
	raffle    *Raffle
	now       func() time.Time
	validate  *validator.Validate
}

func NewGameService(store Store, questions QuestionRepository, opts Options) *GameService {
	if opts.QuestionSetID == "" {
		opts.QuestionSetID = "default"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Wheel == nil {
		opts.Wheel, _ = NewWheel(DefaultEffects(), nil)
	}
	if opts.Raffle == nil {
		opts.Raffle = NewRaffleWithClock(store, nil, opts.Now)
	}

	v := validator.New()
	if err := v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		return handlePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register handle validation: %v", err))
	}

	return &GameService{
		store:     store,
		questions: questions,
		setID:     opts.QuestionSetID,
		budget:    opts.TimeBudget,
		wheel:     opts.Wheel,
		raffle:    opts.Raffle,
		now:       opts.Now,
		validate:  v,
	}
}

// Wheel exposes the roulette for cosmetic frames.
func (s *GameService) Wheel() *Wheel { return s.wheel }

// Raffle exposes the draw for cosmetic frames and eligibility previews.
func (s *GameService) Raffle() *Raffle { return s.raffle }

// QuestionSetID is the active question set.
func (s *GameService) QuestionSetID() string { return s.setID }

// CanonicalHandle is the form used as the played-registry key.
func CanonicalHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// Preflight loads and validates the active question set. A failure here is
// fatal: the quiz flow must not be entered.
func (s *GameService) Preflight(ctx context.Context) (domain.QuestionSet, error) {
	set, err := s.questions.GetQuestionSet(ctx, s.setID)
	if err != nil {
		return domain.QuestionSet{}, err
	}
	if err := set.Validate(); err != nil {
		return domain.QuestionSet{}, err
	}
	return set, nil
}

// Login validates the form, rejects handles that already played and registers
// the player.
func (s *GameService) Login(ctx context.Context, req LoginRequest) (Player, error) {
	req.Handle = strings.TrimSpace(req.Handle)
	if req.Gender == "" {
		req.Gender = GenderNotSpecified
	}
	if err := s.validateLogin(req); err != nil {
		return Player{}, err
	}

	// RegisterPlayer claims the handle atomically and reports
	// domain.ErrDuplicateAttempt for a repeat.
	handle := CanonicalHandle(req.Handle)
	meta := domain.UserMetadata{Age: req.Age, Gender: req.Gender, PlayedAt: s.now().UTC()}
	if err := s.store.RegisterPlayer(ctx, handle, meta); err != nil {
		if errors.Is(err, domain.ErrDuplicateAttempt) {
			slog.Warn("repeat attempt rejected", "handle", handle)
		}
		return Player{}, err
	}
	slog.Info("player registered", "handle", handle, "age", req.Age, "gender", req.Gender)
	return Player{Handle: handle, Metadata: meta}, nil
}

func (s *GameService) validateLogin(req LoginRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].Field() {
	case "Handle":
		return domain.ErrInvalidHandle
	case "Age":
		return domain.ErrInvalidAge
	case "Gender":
		return domain.ErrInvalidGender
	}
	return err
}

// StartQuiz builds a fresh engine for a registered player.
func (s *GameService) StartQuiz(ctx context.Context) (*Engine, error) {
	set, err := s.questions.GetQuestionSet(ctx, s.setID)
	if err != nil {
		return nil, err
	}
	return NewEngine(set, s.budget)
}

// Finish spins the wheel once on the raw score and persists the transformed
// result together with the player's answers.
func (s *GameService) Finish(ctx context.Context, handle string, completion Completion) (domain.FinalResult, error) {
	if completion.TotalQuestions <= 0 || completion.Score < 0 || completion.Score > completion.TotalQuestions {
		return domain.FinalResult{}, fmt.Errorf("invalid completion %d/%d", completion.Score, completion.TotalQuestions)
	}
	outcome, _ := s.wheel.Spin(completion.Score)
	return s.persist(ctx, CanonicalHandle(handle), completion, outcome)
}

func (s *GameService) persist(ctx context.Context, handle string, completion Completion, outcome domain.ModifierOutcome) (domain.FinalResult, error) {
	result := domain.QuizResult{
		Handle:         handle,
		Score:          outcome.Score,
		TotalQuestions: completion.TotalQuestions,
		Timestamp:      s.now().UTC(),
	}
	if err := s.store.SaveResult(ctx, result); err != nil {
		slog.Error("failed to save score", "error", err, "handle", handle)
		return domain.FinalResult{}, err
	}
	if len(completion.Answers) > 0 {
		if err := s.store.SaveAnswers(ctx, handle, completion.Answers); err != nil {
			slog.Error("failed to save answers", "error", err, "handle", handle)
			return domain.FinalResult{}, err
		}
	}
	slog.Info("quiz finished", "handle", handle, "raw", outcome.RawScore, "score", outcome.Score, "effect", outcome.Description)

	return domain.FinalResult{
		Result:   result,
		Modifier: outcome,
		Message:  ResultMessage(result.Percentage()),
	}, nil
}

// Leaderboard ranks every persisted result.
func (s *GameService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	results, err := s.store.Results(ctx)
	if err != nil {
		return nil, err
	}
	return Rank(results), nil
}

// TopCandidates returns the top n handles of the leaderboard.
func (s *GameService) TopCandidates(ctx context.Context, n int) ([]string, error) {
	entries, err := s.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}
	return TopHandles(entries, n)
}

// DrawRaffle runs the authoritative draw over candidates.
func (s *GameService) DrawRaffle(ctx context.Context, candidates []string) (domain.RaffleRecord, error) {
	return s.raffle.Draw(ctx, candidates)
}

// ResultMessage is the congratulation line for a percentage.
func ResultMessage(percentage float64) string {
	switch {
	case percentage >= 100:
		return "Perfect Score! You're an expert! 🏆"
	case percentage >= 80:
		return "Amazing! You really know your stuff! 🌶️"
	case percentage >= 60:
		return "Good job! Keep learning! 📚"
	case percentage >= 40:
		return "Not bad! Study up for next time! 💪"
	}
	return "Keep practicing! You'll get better! 🎯"
}
