package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-share-service/internal/domain"
)

// QuizLoader fetches a quiz by shareable id from the backing store.
type QuizLoader interface {
	GetQuizByShareableID(ctx context.Context, shareableID string) (domain.Quiz, error)
}

// ViewCache caches quizzes by shareable id with TTL to avoid repeated store hits
// on the public take page.
type ViewCache struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuiz

	// gen counts invalidations; a load that overlaps one is served but not cached.
	gen uint64
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewViewCache(loader QuizLoader, ttl time.Duration) *ViewCache {
	return &ViewCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (c *ViewCache) GetQuiz(ctx context.Context, shareableID string) (domain.Quiz, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[shareableID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.quiz, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(shareableID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[shareableID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.quiz, nil
		}
		gen := c.gen
		c.mu.RUnlock()

		quiz, err := c.loader.GetQuizByShareableID(ctx, shareableID)
		if err != nil {
			return domain.Quiz{}, err
		}

		c.mu.Lock()
		if c.gen == gen {
			c.cache[shareableID] = cachedQuiz{
				quiz:      quiz,
				expiresAt: now.Add(c.ttlWithJitter()),
			}
		}
		c.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate drops the cached quiz so the next read reloads it. Loads already
// in flight are detached and will not refill the cache.
func (c *ViewCache) Invalidate(_ context.Context, shareableID string) error {
	c.mu.Lock()
	delete(c.cache, shareableID)
	c.gen++
	c.mu.Unlock()
	c.sf.Forget(shareableID)
	return nil
}

func (c *ViewCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
