package app

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"promo-quiz/internal/domain"
)

// EffectKind selects how an Effect transforms a score.
type EffectKind string

const (
	EffectBonus   EffectKind = "bonus"   // score + Amount
	EffectPenalty EffectKind = "penalty" // floor(score * (100-Amount) / 100)
	EffectDouble  EffectKind = "double"  // score * 2
	EffectPrize   EffectKind = "prize"   // score unchanged, physical prize
)

// Effect is one slice of the roulette wheel.
type Effect struct {
	Kind        EffectKind `yaml:"kind" json:"kind"`
	Amount      int        `yaml:"amount" json:"amount,omitempty"`
	Label       string     `yaml:"label" json:"label"`
	Description string     `yaml:"description" json:"description"`
}

// DefaultEffects is the wheel used when the config does not override it.
func DefaultEffects() []Effect {
	return []Effect{
		{Kind: EffectBonus, Amount: 2, Label: "🎁", Description: "Score increased by 2!"},
		{Kind: EffectPenalty, Amount: 25, Label: "💀", Description: "Score decreased by 25%!"},
		{Kind: EffectDouble, Label: "🎯", Description: "Double your score!"},
		{Kind: EffectPrize, Label: "🎨", Description: "You won exclusive merch!"},
		{Kind: EffectPrize, Label: "🥃", Description: "You won a free shot!"},
	}
}

// Apply transforms a non-negative score. The result is never negative.
func (e Effect) Apply(score int) int {
	if score < 0 {
		score = 0
	}
	var out int
	switch e.Kind {
	case EffectBonus:
		out = score + e.Amount
	case EffectPenalty:
		out = score * (100 - e.Amount) / 100
	case EffectDouble:
		out = score * 2
	default:
		out = score
	}
	if out < 0 {
		return 0
	}
	return out
}

func (e Effect) validate() error {
	switch e.Kind {
	case EffectBonus, EffectDouble, EffectPrize:
	case EffectPenalty:
		if e.Amount < 0 || e.Amount > 100 {
			return fmt.Errorf("penalty percentage %d out of range 0..100", e.Amount)
		}
	default:
		return fmt.Errorf("unknown roulette effect %q", e.Kind)
	}
	if e.Description == "" {
		return fmt.Errorf("roulette effect %q needs a description", e.Kind)
	}
	return nil
}

// Wheel picks one effect uniformly at random per spin.
type Wheel struct {
	effects []Effect

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewWheel validates the menu. A nil src seeds from the clock.
func NewWheel(effects []Effect, src rand.Source) (*Wheel, error) {
	if len(effects) == 0 {
		effects = DefaultEffects()
	}
	for _, e := range effects {
		if err := e.validate(); err != nil {
			return nil, err
		}
	}
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	menu := make([]Effect, len(effects))
	copy(menu, effects)
	return &Wheel{effects: menu, rnd: rand.New(src)}, nil
}

// Effects returns a copy of the menu in wheel order.
func (w *Wheel) Effects() []Effect {
	out := make([]Effect, len(w.effects))
	copy(out, w.effects)
	return out
}

// Spin is the authoritative draw: it selects one effect and applies it once.
func (w *Wheel) Spin(raw int) (domain.ModifierOutcome, int) {
	w.mu.Lock()
	idx := w.rnd.Intn(len(w.effects))
	w.mu.Unlock()
	return w.ApplyAt(idx, raw), idx
}

// ApplyAt applies the effect at idx. It panics if idx is out of range.
func (w *Wheel) ApplyAt(idx, raw int) domain.ModifierOutcome {
	e := w.effects[idx]
	return domain.ModifierOutcome{
		Label:       e.Label,
		Description: e.Description,
		RawScore:    raw,
		Score:       e.Apply(raw),
	}
}

// Frames returns n cosmetic wheel positions for the spin animation. They do
// not influence Spin.
func (w *Wheel) Frames(n int) []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return randomFrames(w.rnd, len(w.effects), n)
}

func randomFrames(rnd *rand.Rand, size, n int) []int {
	if n <= 0 || size == 0 {
		return nil
	}
	frames := make([]int, n)
	for i := range frames {
		frames[i] = rnd.Intn(size)
	}
	return frames
}
