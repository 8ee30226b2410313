package book

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-books/internal/obs"
	"github.com/noah-isme/backend-books/internal/resilience"
)

const (
	cacheHit    = "hit"
	cacheMiss   = "miss"
	cacheError  = "error"
	cacheBypass = "bypass"
)

const defaultInvalidationGuard = 5 * time.Second

// setUnlessInvalidated writes KEYS[1] only when no invalidation marker KEYS[2] exists,
// so a read that raced a write cannot repopulate the entry with the old row.
var setUnlessInvalidated = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

func isMiss(err error) bool { return errors.Is(err, redis.Nil) }

// Cache keeps book views in Redis as JSON. A nil Cache or client disables caching.
// Reads and writes go through an optional breaker so an unhealthy Redis is skipped
// instead of slowing every request.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	guard   time.Duration
	prefix  string
	metrics *obs.DomainMetrics
	breaker *resilience.Breaker
}

// CacheConfig configures the Cache.
type CacheConfig struct {
	Client *redis.Client
	TTL    time.Duration
	// InvalidationGuard is how long Set refuses to fill an entry after Invalidate.
	// It must exceed the slowest store read. Defaults to 5s.
	InvalidationGuard time.Duration
	Prefix            string
	Metrics           *obs.DomainMetrics
	Breaker           *resilience.Breaker
}

// NewCache constructs a cache helper.
func NewCache(cfg CacheConfig) *Cache {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "books:v1:"
	}
	guard := cfg.InvalidationGuard
	if guard <= 0 {
		guard = defaultInvalidationGuard
	}
	return &Cache{client: cfg.Client, ttl: cfg.TTL, guard: guard, prefix: prefix, metrics: cfg.Metrics, breaker: cfg.Breaker}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

func (c *Cache) key(id int64) string {
	return c.prefix + strconv.FormatInt(id, 10)
}

func (c *Cache) invalidatedKey(id int64) string {
	return c.key(id) + ":invalidated"
}

// Get returns the cached view for id. It reports whether the key existed.
func (c *Cache) Get(ctx context.Context, id int64) (View, bool, error) {
	if !c.enabled() {
		return View{}, false, nil
	}
	var data []byte
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		data, err = c.client.Get(ctx, c.key(id)).Bytes()
		return err
	}, isMiss)
	if err != nil {
		if errors.Is(err, resilience.ErrOpenCircuit) {
			c.metrics.ObserveBookCache(cacheBypass)
			return View{}, false, nil
		}
		if isMiss(err) {
			c.metrics.ObserveBookCache(cacheMiss)
			return View{}, false, nil
		}
		c.metrics.ObserveBookCache(cacheError)
		return View{}, false, err
	}
	var v View
	if err := json.Unmarshal(data, &v); err != nil {
		c.metrics.ObserveBookCache(cacheError)
		return View{}, false, err
	}
	c.metrics.ObserveBookCache(cacheHit)
	return v, true, nil
}

// Set stores v under id with the configured TTL. It is a no-op while the entry is
// inside the guard window of a recent Invalidate.
func (c *Cache) Set(ctx context.Context, id int64, v View) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	err = c.breaker.Do(ctx, func(ctx context.Context) error {
		keys := []string{c.key(id), c.invalidatedKey(id)}
		return setUnlessInvalidated.Run(ctx, c.client, keys, data, c.ttl.Milliseconds()).Err()
	}, nil)
	if errors.Is(err, resilience.ErrOpenCircuit) {
		return nil
	}
	return err
}

// Invalidate drops the cached view for id and blocks refills for the guard window.
// It bypasses the breaker so a stale entry is never kept on purpose.
func (c *Cache) Invalidate(ctx context.Context, id int64) error {
	if !c.enabled() {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.invalidatedKey(id), 1, c.guard)
		pipe.Del(ctx, c.key(id))
		return nil
	})
	return err
}
