package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/platform/cache"
)

// ErrBudgetExceeded is returned by Check when a user has spent the day's
// token allowance.
var ErrBudgetExceeded = errors.New("daily AI token budget exceeded")

// Budget checks and records token usage per user per UTC day.
type Budget interface {
	// Check returns ErrBudgetExceeded if userID has no tokens left today.
	Check(ctx context.Context, userID string) error
	// Record adds token usage for userID.
	Record(ctx context.Context, userID string, tokens int) error
	// Usage returns today's usage and the daily limit (0 = unlimited).
	Usage(ctx context.Context, userID string) (used, limit int64, err error)
}

func dayStamp(t time.Time) string {
	return t.UTC().Format("20060102")
}

// MemoryBudget is an in-process budget tracker for development and tests.
type MemoryBudget struct {
	mu    sync.Mutex
	limit int64
	usage map[string]int64 // user:day -> tokens used
	now   func() time.Time
}

// NewMemoryBudget creates a tracker with a daily per-user limit. A limit
// of zero or less means unlimited.
func NewMemoryBudget(limit int64) *MemoryBudget {
	return &MemoryBudget{
		limit: limit,
		usage: make(map[string]int64),
		now:   time.Now,
	}
}

// WithClock replaces the clock, for tests.
func (b *MemoryBudget) WithClock(now func() time.Time) *MemoryBudget {
	b.now = now
	return b
}

func (b *MemoryBudget) Check(_ context.Context, userID string) error {
	if b.limit <= 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.usage[b.key(userID)] >= b.limit {
		return ErrBudgetExceeded
	}
	return nil
}

func (b *MemoryBudget) Record(_ context.Context, userID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	today := dayStamp(b.now())
	for k := range b.usage {
		if !strings.HasSuffix(k, ":"+today) {
			delete(b.usage, k)
		}
	}
	b.usage[userID+":"+today] += int64(tokens)
	return nil
}

func (b *MemoryBudget) Usage(_ context.Context, userID string) (int64, int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.usage[b.key(userID)], max(b.limit, 0), nil
}

func (b *MemoryBudget) key(userID string) string {
	return userID + ":" + dayStamp(b.now())
}

// RedisBudget keeps counters in redis so every server instance shares one
// allowance. Counters expire a day after the UTC day ends.
type RedisBudget struct {
	client *redis.Client
	limit  int64
	now    func() time.Time
}

// NewRedisBudget creates a redis-backed tracker.
func NewRedisBudget(client *redis.Client, limit int64) (*RedisBudget, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisBudget{client: client, limit: limit, now: time.Now}, nil
}

func (b *RedisBudget) key(userID string) string {
	return cache.Key("budget", userID, dayStamp(b.now()))
}

func (b *RedisBudget) Check(ctx context.Context, userID string) error {
	if b.limit <= 0 {
		return nil
	}
	used, err := b.used(ctx, userID)
	if err != nil {
		return err
	}
	if used >= b.limit {
		return ErrBudgetExceeded
	}
	return nil
}

func (b *RedisBudget) Record(ctx context.Context, userID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	now := b.now().UTC()
	key := b.key(userID)
	endOfDay := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)

	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.IncrBy(ctx, key, int64(tokens))
		pipe.ExpireAt(ctx, key, endOfDay.Add(24*time.Hour))
		return nil
	})
	if err != nil {
		return fmt.Errorf("record token usage: %w", err)
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, userID string) (int64, int64, error) {
	used, err := b.used(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return used, max(b.limit, 0), nil
}

func (b *RedisBudget) used(ctx context.Context, userID string) (int64, error) {
	used, err := b.client.Get(ctx, b.key(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read token usage: %w", err)
	}
	return used, nil
}
