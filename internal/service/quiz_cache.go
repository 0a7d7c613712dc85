package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"edubridge_backend/internal/attempt"
	"edubridge_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// QuizCache keeps student-facing quiz definitions (correct answers already
// stripped) in Redis so repeated attempt starts skip the database.
type QuizCache struct {
	rdb *redis.Client

	mu  sync.RWMutex
	ttl time.Duration
}

func NewQuizCache(rdb *redis.Client, ttl time.Duration) *QuizCache {
	return &QuizCache{rdb: rdb, ttl: ttl}
}

func quizCacheKey(quizID uint) string {
	return fmt.Sprintf("quiz:def:%d", quizID)
}

// Get returns the cached definition, or nil on a miss. Cache errors are
// logged and treated as misses; the database stays authoritative.
func (c *QuizCache) Get(ctx context.Context, quizID uint) *attempt.QuizDefinition {
	if c.rdb == nil {
		return nil
	}

	data, err := c.rdb.Get(ctx, quizCacheKey(quizID)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		logger.Log.Warn("quiz cache read failed", zap.Uint("quizId", quizID), zap.Error(err))
		return nil
	}

	var def attempt.QuizDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		logger.Log.Warn("quiz cache decode failed", zap.Uint("quizId", quizID), zap.Error(err))
		return nil
	}
	return &def
}

func (c *QuizCache) Set(ctx context.Context, def *attempt.QuizDefinition) {
	if c.rdb == nil {
		return
	}

	data, err := json.Marshal(def)
	if err != nil {
		return
	}
	c.mu.RLock()
	ttl := c.ttl
	c.mu.RUnlock()
	if err := c.rdb.Set(ctx, quizCacheKey(def.QuizID), data, ttl).Err(); err != nil {
		logger.Log.Warn("quiz cache write failed", zap.Uint("quizId", def.QuizID), zap.Error(err))
	}
}

// SetTTL adjusts the cache expiry for subsequent writes (hot config reload).
func (c *QuizCache) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	c.ttl = ttl
	c.mu.Unlock()
}

func (c *QuizCache) Invalidate(ctx context.Context, quizID uint) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, quizCacheKey(quizID)).Err(); err != nil {
		logger.Log.Warn("quiz cache invalidate failed", zap.Uint("quizId", quizID), zap.Error(err))
	}
}
