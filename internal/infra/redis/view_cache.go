package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-share-service/internal/domain"
)

// QuizLoader fetches a quiz by shareable id from the backing store.
type QuizLoader interface {
	GetQuizByShareableID(ctx context.Context, shareableID string) (domain.Quiz, error)
}

// ViewCache caches quizzes in Redis and falls back to the loader on a miss.
// Quizzes are stored as JSON: SET quiz:view:{shareableID} {quiz} EX {ttl}
// Invalidate bumps quiz:view:gen:{shareableID}; a fill runs under WATCH on
// that counter and is dropped when an invalidation overlapped the load.
type ViewCache struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewViewCache(client *redis.Client, loader QuizLoader, ttl time.Duration) *ViewCache {
	return &ViewCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ViewCache) GetQuiz(ctx context.Context, shareableID string) (domain.Quiz, error) {
	if quiz, ok := c.cached(ctx, shareableID); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(shareableID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := c.cached(ctx, shareableID); ok {
			return quiz, nil
		}

		gen, genErr := c.generation(ctx, shareableID)
		quiz, err := c.loader.GetQuizByShareableID(ctx, shareableID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if genErr != nil {
			return quiz, nil
		}

		data, err := json.Marshal(quiz)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("marshal quiz: %w", err)
		}
		// best-effort fill; the loaded quiz is still served if Redis is unavailable
		_ = c.fill(ctx, shareableID, gen, data)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate removes the cached quiz and stops in-flight loads from refilling it.
func (c *ViewCache) Invalidate(ctx context.Context, shareableID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.key(shareableID))
		pipe.Incr(ctx, c.genKey(shareableID))
		pipe.Expire(ctx, c.genKey(shareableID), c.genTTL())
		return nil
	})
	c.sf.Forget(shareableID)
	return err
}

var errStaleLoad = errors.New("quiz view invalidated during load")

func (c *ViewCache) generation(ctx context.Context, shareableID string) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(shareableID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// fill stores data only while the generation still equals gen.
func (c *ViewCache) fill(ctx context.Context, shareableID string, gen int64, data []byte) error {
	genKey := c.genKey(shareableID)
	return c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if errors.Is(err, redis.Nil) {
			current, err = 0, nil
		}
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleLoad
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(shareableID), data, c.ttlWithJitter())
			return nil
		})
		return err
	}, genKey)
}

func (c *ViewCache) cached(ctx context.Context, shareableID string) (domain.Quiz, bool) {
	data, err := c.client.Get(ctx, c.key(shareableID)).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (c *ViewCache) key(shareableID string) string {
	return "quiz:view:" + shareableID
}

func (c *ViewCache) genKey(shareableID string) string {
	return "quiz:view:gen:" + shareableID
}

// genTTL outlives any cached entry so a counter never resets under a live one.
func (c *ViewCache) genTTL() time.Duration {
	if c.ttl < time.Minute {
		return 2 * time.Minute
	}
	return 2 * c.ttl
}

func (c *ViewCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
