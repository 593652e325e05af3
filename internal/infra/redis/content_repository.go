package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"kotoba-quiz-service/internal/domain"
)

// ContentLoader fetches content pools from a backing store (e.g., postgres).
type ContentLoader interface {
	LoadContentSet(ctx context.Context, setID string) (domain.ContentSet, error)
}

// ContentRepository caches content sets in Redis as JSON blobs
// (SET content:{setID} {json} EX ttl) and falls back to a loader on miss,
// so several server instances share one warm cache.
type ContentRepository struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewContentRepository(client *redis.Client, loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ContentRepository) GetContentSet(ctx context.Context, setID string) (domain.ContentSet, error) {
	key := r.key(setID)

	if set, ok := r.fromCache(ctx, key); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(setID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if set, ok := r.fromCache(ctx, key); ok {
			return set, nil
		}

		set, err := r.loader.LoadContentSet(ctx, setID)
		if err != nil {
			return domain.ContentSet{}, err
		}

		if data, err := json.Marshal(set); err == nil {
			// best-effort cache fill
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return set, nil
	})
	if err != nil {
		return domain.ContentSet{}, err
	}
	return result.(domain.ContentSet), nil
}

func (r *ContentRepository) fromCache(ctx context.Context, key string) (domain.ContentSet, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.ContentSet{}, false
	}
	var set domain.ContentSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.ContentSet{}, false
	}
	return set, true
}

func (r *ContentRepository) key(setID string) string {
	return "content:" + setID
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
