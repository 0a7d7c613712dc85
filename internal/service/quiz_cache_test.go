package service_test

import (
	"context"
	"testing"
	"time"

	"edubridge_backend/internal/attempt"
	"edubridge_backend/internal/service"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestCache(t *testing.T, ttl time.Duration) (*service.QuizCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return service.NewQuizCache(client, ttl), mr
}

func sampleDefinition() *attempt.QuizDefinition {
	return &attempt.QuizDefinition{
		QuizID:           3,
		Title:            "缓存测验",
		TimeLimitMinutes: 10,
		Questions: []attempt.Question{
			{Text: "q1", Options: []string{"a", "b", "c", "d"}},
		},
	}
}

func TestQuizCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	if got := cache.Get(ctx, 3); got != nil {
		t.Fatalf("expected miss on empty cache, got %+v", got)
	}

	cache.Set(ctx, sampleDefinition())

	got := cache.Get(ctx, 3)
	if got == nil {
		t.Fatal("expected cached definition")
	}
	if got.Title != "缓存测验" || len(got.Questions) != 1 || got.TimeLimitMinutes != 10 {
		t.Fatalf("cached definition mangled: %+v", got)
	}
}

func TestQuizCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, sampleDefinition())
	mr.FastForward(2 * time.Minute)

	if got := cache.Get(ctx, 3); got != nil {
		t.Fatalf("expected expired entry to miss, got %+v", got)
	}
}

func TestQuizCacheSetTTLAppliesToNewWrites(t *testing.T) {
	cache, mr := newTestCache(t, time.Hour)
	ctx := context.Background()

	cache.SetTTL(time.Second)
	cache.Set(ctx, sampleDefinition())
	mr.FastForward(2 * time.Second)

	if got := cache.Get(ctx, 3); got != nil {
		t.Fatal("expected reduced TTL to expire the entry")
	}
}

func TestQuizCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, sampleDefinition())
	cache.Invalidate(ctx, 3)

	if got := cache.Get(ctx, 3); got != nil {
		t.Fatalf("expected invalidated entry to miss, got %+v", got)
	}
}

func TestQuizCacheNilClient(t *testing.T) {
	cache := service.NewQuizCache(nil, time.Minute)
	ctx := context.Background()

	// 未配置 Redis 时缓存退化为直通，不允许 panic
	cache.Set(ctx, sampleDefinition())
	cache.Invalidate(ctx, 3)
	if got := cache.Get(ctx, 3); got != nil {
		t.Fatalf("expected nil-client cache to always miss, got %+v", got)
	}
}
