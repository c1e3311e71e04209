package kv

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"promo-quiz/internal/domain"
)

// Persisted keys. Their JSON shapes are read by the exporter and must stay stable.
const (
	KeyScores        = "scores"
	KeyPlayedUsers   = "playedUsers"
	KeyUserMetadata  = "userMetadata"
	KeyUserAnswers   = "userAnswers"
	KeyRaffleHistory = "raffleHistory"
)

// AllKeys lists every key the repository owns.
var AllKeys = []string{KeyScores, KeyPlayedUsers, KeyUserMetadata, KeyUserAnswers, KeyRaffleHistory}

// DefaultMaxScores caps the scores list at write time.
const DefaultMaxScores = 10

// ErrNotFound is returned by a Backend for a missing key.
var ErrNotFound = errors.New("key not found")

// Backend is a durable string -> bytes mapping. Set must replace the whole
// value atomically.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Repository implements app.Store over a Backend, one JSON value per key.
type Repository struct {
	backend   Backend
	maxScores int

	// serializes read-modify-write cycles within this process
	mu sync.Mutex
}

func NewRepository(backend Backend, maxScores int) *Repository {
	if maxScores <= 0 {
		maxScores = DefaultMaxScores
	}
	return &Repository{backend: backend, maxScores: maxScores}
}

func (r *Repository) Results(ctx context.Context) ([]domain.QuizResult, error) {
	var results []domain.QuizResult
	if err := r.load(ctx, KeyScores, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// SaveResult appends and keeps the best maxScores results by score.
func (r *Repository) SaveResult(ctx context.Context, result domain.QuizResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var results []domain.QuizResult
	if err := r.load(ctx, KeyScores, &results); err != nil {
		return err
	}
	results = append(results, result)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > r.maxScores {
		results = results[:r.maxScores]
	}
	return r.store(ctx, KeyScores, results)
}

func (r *Repository) HasPlayed(ctx context.Context, handle string) (bool, error) {
	played, err := r.playedUsers(ctx)
	if err != nil {
		return false, err
	}
	for _, h := range played {
		if h == handle {
			return true, nil
		}
	}
	return false, nil
}

// RegisterPlayer claims handle in the played registry. It returns
// domain.ErrDuplicateAttempt when the handle is already listed. Metadata is
// written before the played flag, so the registry never lists a handle
// without metadata.
func (r *Repository) RegisterPlayer(ctx context.Context, handle string, meta domain.UserMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	played, err := r.playedUsers(ctx)
	if err != nil {
		return err
	}
	for _, h := range played {
		if h == handle {
			return domain.ErrDuplicateAttempt
		}
	}

	metadata := map[string]domain.UserMetadata{}
	if err := r.load(ctx, KeyUserMetadata, &metadata); err != nil {
		return err
	}
	if metadata == nil {
		metadata = map[string]domain.UserMetadata{}
	}
	metadata[handle] = meta
	if err := r.store(ctx, KeyUserMetadata, metadata); err != nil {
		return err
	}
	return r.store(ctx, KeyPlayedUsers, append(played, handle))
}

func (r *Repository) UserMetadata(ctx context.Context) (map[string]domain.UserMetadata, error) {
	metadata := map[string]domain.UserMetadata{}
	if err := r.load(ctx, KeyUserMetadata, &metadata); err != nil {
		return nil, err
	}
	if metadata == nil {
		metadata = map[string]domain.UserMetadata{}
	}
	return metadata, nil
}

func (r *Repository) SaveAnswers(ctx context.Context, handle string, answers []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.Answers(ctx)
	if err != nil {
		return err
	}
	all[handle] = answers
	return r.store(ctx, KeyUserAnswers, all)
}

func (r *Repository) Answers(ctx context.Context) (map[string][]int, error) {
	answers := map[string][]int{}
	if err := r.load(ctx, KeyUserAnswers, &answers); err != nil {
		return nil, err
	}
	if answers == nil {
		answers = map[string][]int{}
	}
	return answers, nil
}

func (r *Repository) RaffleHistory(ctx context.Context) ([]domain.RaffleRecord, error) {
	var history []domain.RaffleRecord
	if err := r.load(ctx, KeyRaffleHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (r *Repository) AppendRaffle(ctx context.Context, record domain.RaffleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	history, err := r.RaffleHistory(ctx)
	if err != nil {
		return err
	}
	return r.store(ctx, KeyRaffleHistory, append(history, record))
}

// AppendRaffleIf runs pick over the current history and appends the record
// it returns, holding the write lock across both steps. A pick error is
// returned as is and nothing is written.
func (r *Repository) AppendRaffleIf(ctx context.Context, pick func(history []domain.RaffleRecord) (domain.RaffleRecord, error)) (domain.RaffleRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history, err := r.RaffleHistory(ctx)
	if err != nil {
		return domain.RaffleRecord{}, err
	}
	record, err := pick(history)
	if err != nil {
		return domain.RaffleRecord{}, err
	}
	if err := r.store(ctx, KeyRaffleHistory, append(history, record)); err != nil {
		return domain.RaffleRecord{}, err
	}
	return record, nil
}

// Clear removes every key owned by the repository.
func (r *Repository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.backend.Delete(ctx, AllKeys...); err != nil {
		return &domain.StoreError{Op: "clear", Key: "*", Err: err}
	}
	return nil
}

func (r *Repository) playedUsers(ctx context.Context) ([]string, error) {
	var played []string
	if err := r.load(ctx, KeyPlayedUsers, &played); err != nil {
		return nil, err
	}
	return played, nil
}

// load leaves dst untouched when the key does not exist.
func (r *Repository) load(ctx context.Context, key string, dst any) error {
	raw, err := r.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return &domain.StoreError{Op: "get", Key: key, Err: err}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &domain.StoreError{Op: "decode", Key: key, Err: err}
	}
	return nil
}

func (r *Repository) store(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return &domain.StoreError{Op: "encode", Key: key, Err: err}
	}
	if err := r.backend.Set(ctx, key, raw); err != nil {
		return &domain.StoreError{Op: "set", Key: key, Err: err}
	}
	return nil
}
