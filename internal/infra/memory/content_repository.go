package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"kotoba-quiz-service/internal/domain"
)

// ContentLoader fetches content pools from a backing store (e.g., the
// admin-side database).
type ContentLoader interface {
	LoadContentSet(ctx context.Context, setID string) (domain.ContentSet, error)
}

// ContentRepository caches content sets with TTL to avoid repeated DB hits.
type ContentRepository struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	set       domain.ContentSet
	expiresAt time.Time
}

func NewContentRepository(loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *ContentRepository) GetContentSet(ctx context.Context, setID string) (domain.ContentSet, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[setID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.set, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(setID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[setID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.set, nil
		}
		r.mu.RUnlock()

		set, err := r.loader.LoadContentSet(ctx, setID)
		if err != nil {
			return domain.ContentSet{}, err
		}

		r.mu.Lock()
		r.cache[setID] = cachedSet{
			set:       set,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.ContentSet{}, err
	}
	return result.(domain.ContentSet), nil
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticContentLoader serves content sets from an in-memory map, for demos
// and tests.
type StaticContentLoader struct {
	sets map[string]domain.ContentSet
}

func NewStaticContentLoader(sets map[string]domain.ContentSet) *StaticContentLoader {
	return &StaticContentLoader{sets: sets}
}

func (l *StaticContentLoader) LoadContentSet(_ context.Context, setID string) (domain.ContentSet, error) {
	if set, ok := l.sets[setID]; ok {
		return set, nil
	}
	return domain.ContentSet{}, domain.ErrContentSetNotFound
}
