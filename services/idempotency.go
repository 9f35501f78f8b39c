package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/utils"
	"github.com/sahilchouksey/ai-course-generator/utils/cache"
	"gorm.io/gorm"
)

// DefaultLockTTL outlives a full retry cycle of a generation request
const DefaultLockTTL = 10 * time.Minute

// RequestLock serialises work on one idempotency token. TryLock returns
// ErrRequestInProgress when another holder has the key.
type RequestLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// MemoryLock is a process-local RequestLock
type MemoryLock struct {
	mu      sync.Mutex
	holders map[string]memoryHold
}

type memoryHold struct {
	owner   string
	expires time.Time
}

// NewMemoryLock creates an empty in-memory lock table
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{holders: make(map[string]memoryHold)}
}

func (m *MemoryLock) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if h, ok := m.holders[key]; ok && now.Before(h.expires) {
		return nil, ErrRequestInProgress
	}

	owner := uuid.NewString()
	m.holders[key] = memoryHold{owner: owner, expires: now.Add(ttl)}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if h, ok := m.holders[key]; ok && h.owner == owner {
			delete(m.holders, key)
		}
	}, nil
}

// PurgeExpired drops holds whose ttl passed and returns how many it removed
func (m *MemoryLock) PurgeExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, h := range m.holders {
		if !now.Before(h.expires) {
			delete(m.holders, key)
			removed++
		}
	}
	return removed
}

// RedisLock holds tokens in Redis with SET NX so every API replica sees
// them. When Redis cannot be reached it degrades to a process-local lock.
type RedisLock struct {
	rc       *cache.RedisCache
	fallback *MemoryLock
	log      *utils.Logger
}

// NewRedisLock creates a lock backed by rc. A nil rc uses only the fallback.
func NewRedisLock(rc *cache.RedisCache, log *utils.Logger) *RedisLock {
	if log == nil {
		log = utils.NopLogger()
	}
	return &RedisLock{rc: rc, fallback: NewMemoryLock(), log: log}
}

func (r *RedisLock) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if r.rc == nil {
		return r.fallback.TryLock(ctx, key, ttl)
	}

	redisKey := "lock:" + key
	owner := uuid.NewString()
	ok, err := r.rc.SetNX(ctx, redisKey, owner, ttl)
	if err != nil {
		r.log.Warn("redis lock unavailable, using local lock", "key", key, "error", err)
		return r.fallback.TryLock(ctx, key, ttl)
	}
	if !ok {
		return nil, ErrRequestInProgress
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := r.rc.DeleteIfValue(releaseCtx, redisKey, owner); err != nil {
			r.log.Warn("failed to release redis lock", "key", key, "error", err)
		}
	}, nil
}

// PurgeExpired sweeps the local fallback. Redis expires its own keys.
func (r *RedisLock) PurgeExpired(now time.Time) int {
	return r.fallback.PurgeExpired(now)
}

// Token columns on courses. Both carry a unique index.
const (
	layoutTokenColumn  = "layout_request_id"
	contentTokenColumn = "content_request_id"
)

// findCourseByToken returns nil, nil when no course carries token
func findCourseByToken(ctx context.Context, db *gorm.DB, column, token string) (*model.Course, error) {
	var course model.Course
	err := db.WithContext(ctx).Where(column+" = ?", token).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func layoutLockKey(token string) string  { return "course:layout:" + token }
func contentLockKey(token string) string { return "course:content:" + token }
