package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"braincraft/internal/app"
	"braincraft/internal/domain"
	"golang.org/x/sync/singleflight"
)

// AnswerKeyCache caches answer keys with TTL to avoid repeated DB hits.
type AnswerKeyCache struct {
	loader app.AnswerKeyLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[int64]cachedKey
	// gen is bumped by Invalidate; loads started under an older gen are not stored
	gen   map[int64]uint64
}

type cachedKey struct {
	key       domain.AnswerKey
	expiresAt time.Time
}

func NewAnswerKeyCache(loader app.AnswerKeyLoader, ttl time.Duration) *AnswerKeyCache {
	return &AnswerKeyCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedKey),
		gen:    make(map[int64]uint64),
	}
}

func (c *AnswerKeyCache) GetAnswerKey(ctx context.Context, quizID int64) (domain.AnswerKey, error) {
	if key, ok := c.lookup(quizID); ok {
		return key, nil
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		if key, ok := c.lookup(quizID); ok {
			return key, nil
		}

		c.mu.RLock()
		gen := c.gen[quizID]
		c.mu.RUnlock()

		key, err := c.loader.LoadAnswerKey(ctx, quizID)
		if err != nil {
			return domain.AnswerKey{}, err
		}

		c.mu.Lock()
		if c.gen[quizID] == gen {
			c.cache[quizID] = cachedKey{
				key:       key,
				expiresAt: c.clock().Add(c.ttlWithJitter()),
			}
		}
		c.mu.Unlock()
		return key, nil
	})
	if err != nil {
		return domain.AnswerKey{}, err
	}
	return result.(domain.AnswerKey), nil
}

func (c *AnswerKeyCache) Invalidate(_ context.Context, quizID int64) error {
	c.mu.Lock()
	delete(c.cache, quizID)
	c.gen[quizID]++
	c.mu.Unlock()
	// callers arriving after this point must not join a load that may predate the edit
	c.sf.Forget(strconv.FormatInt(quizID, 10))
	return nil
}

func (c *AnswerKeyCache) lookup(quizID int64) (domain.AnswerKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[quizID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.AnswerKey{}, false
	}
	return entry.key, true
}

// ttlWithJitter must be called with mu held; rand.Rand is not safe for concurrent use.
func (c *AnswerKeyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
