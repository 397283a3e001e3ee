package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreLockRememberRecall(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencyStore(time.Minute)

	ok, err := s.TryLock(ctx, "kitchen", "k1")
	if err != nil || !ok {
		t.Fatalf("first lock: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.TryLock(ctx, "kitchen", "k1"); ok {
		t.Fatal("second lock on same key should fail")
	}
	if ok, _ := s.TryLock(ctx, "customer", "k1"); !ok {
		t.Fatal("different scope should lock independently")
	}

	if _, found, _ := s.Recall(ctx, "kitchen", "k1"); found {
		t.Fatal("nothing remembered yet")
	}
	_ = s.Remember(ctx, "kitchen", "k1", "job_1")
	if v, found, _ := s.Recall(ctx, "kitchen", "k1"); !found || v != "job_1" {
		t.Fatalf("recall = %q %v", v, found)
	}
}

func TestMemoryStoreReleaseAndExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryIdempotencyStore(time.Minute)
	s.now = func() time.Time { return now }

	_, _ = s.TryLock(ctx, "kitchen", "k")
	_ = s.Release(ctx, "kitchen", "k")
	if ok, _ := s.TryLock(ctx, "kitchen", "k"); !ok {
		t.Fatal("lock should be free after release")
	}

	_ = s.Remember(ctx, "kitchen", "k", "job_9")
	now = now.Add(2 * time.Minute)
	if _, found, _ := s.Recall(ctx, "kitchen", "k"); found {
		t.Error("entry should have expired")
	}
	if ok, _ := s.TryLock(ctx, "kitchen", "k"); !ok {
		t.Error("expired lock should be re-acquirable")
	}
}
