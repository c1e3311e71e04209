package app

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"promo-quiz/internal/domain"
)

// RaffleStore persists the append-only draw history.
type RaffleStore interface {
	RaffleHistory(ctx context.Context) ([]domain.RaffleRecord, error)
	AppendRaffle(ctx context.Context, record domain.RaffleRecord) error
	// AppendRaffleIf computes the record from the history it appends to,
	// with no other append in between.
	AppendRaffleIf(ctx context.Context, pick func(history []domain.RaffleRecord) (domain.RaffleRecord, error)) (domain.RaffleRecord, error)
}

// Raffle draws one winner per call from candidates that have never won.
type Raffle struct {
	store RaffleStore
	now   func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRaffle seeds from the clock when src is nil.
func NewRaffle(store RaffleStore, src rand.Source) *Raffle {
	return NewRaffleWithClock(store, src, time.Now)
}

// NewRaffleWithClock allows deterministic draw dates in tests.
func NewRaffleWithClock(store RaffleStore, src rand.Source, now func() time.Time) *Raffle {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Raffle{store: store, now: now, rnd: rand.New(src)}
}

// Eligible filters out every handle that won a previous draw, keeping order.
// Candidates are canonicalized and deduplicated first.
func (r *Raffle) Eligible(ctx context.Context, candidates []string) ([]string, error) {
	history, err := r.store.RaffleHistory(ctx)
	if err != nil {
		return nil, err
	}
	return eligibleCandidates(CanonicalCandidates(candidates), history), nil
}

// Draw picks the winner and appends the record. When nobody is eligible it
// returns domain.ErrRaffleIneligible and writes nothing. Eligibility is
// decided against the same history the record is appended to.
func (r *Raffle) Draw(ctx context.Context, candidates []string) (domain.RaffleRecord, error) {
	participants := CanonicalCandidates(candidates)
	var eligibleCount int

	record, err := r.store.AppendRaffleIf(ctx, func(history []domain.RaffleRecord) (domain.RaffleRecord, error) {
		eligible := eligibleCandidates(participants, history)
		if len(eligible) == 0 {
			return domain.RaffleRecord{}, domain.ErrRaffleIneligible
		}
		eligibleCount = len(eligible)

		r.mu.Lock()
		winner := eligible[r.rnd.Intn(len(eligible))]
		r.mu.Unlock()

		return domain.RaffleRecord{
			ID:           uuid.NewString(),
			Date:         r.now().UTC(),
			Participants: participants,
			Winner:       winner,
		}, nil
	})
	switch {
	case errors.Is(err, domain.ErrRaffleIneligible):
		slog.Warn("raffle has no eligible participants", "candidates", len(participants))
		return domain.RaffleRecord{}, err
	case err != nil:
		slog.Error("failed to save raffle result", "error", err)
		return domain.RaffleRecord{}, err
	}
	slog.Info("raffle drawn", "winner", record.Winner, "eligible", eligibleCount, "candidates", len(participants))
	return record, nil
}

// CanonicalCandidates canonicalizes every handle, dropping blanks and
// repeats while keeping first-seen order.
func CanonicalCandidates(candidates []string) []string {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		h := CanonicalHandle(c)
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// Frames returns n cosmetic names to flash before the winner is revealed.
func (r *Raffle) Frames(eligible []string, n int) []string {
	r.mu.Lock()
	idx := randomFrames(r.rnd, len(eligible), n)
	r.mu.Unlock()

	names := make([]string, len(idx))
	for i, j := range idx {
		names[i] = eligible[j]
	}
	return names
}

func eligibleCandidates(candidates []string, history []domain.RaffleRecord) []string {
	winners := make(map[string]struct{}, len(history))
	for _, rec := range history {
		winners[rec.Winner] = struct{}{}
	}
	eligible := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, won := winners[c]; !won {
			eligible = append(eligible, c)
		}
	}
	return eligible
}
