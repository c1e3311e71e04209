package memory

import (
	"context"
	"errors"
	"testing"

	"promo-quiz/internal/infra/kv"
)

func TestKVStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore()

	if _, err := store.Get(ctx, "scores"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	value := []byte(`[1,2,3]`)
	if err := store.Set(ctx, "scores", value); err != nil {
		t.Fatalf("set: %v", err)
	}
	value[0] = 'x'

	got, err := store.Get(ctx, "scores")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[1,2,3]` {
		t.Fatalf("expected stored copy, got %s", got)
	}

	if err := store.Delete(ctx, "scores", "missing"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d keys", store.Len())
	}
}
