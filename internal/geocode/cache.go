package geocode

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// LRU is an in-process cache with a capacity bound and per-entry TTL.
type LRU struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	lst   *list.List
	items map[string]*list.Element
	now   func() time.Time
}

type entry struct {
	key   string
	value string
	exp   time.Time
}

// NewLRU creates a cache. A zero ttl keeps entries until evicted.
func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU{
		cap:   capacity,
		ttl:   ttl,
		lst:   list.New(),
		items: make(map[string]*list.Element),
		now:   time.Now,
	}
}

// Get returns a live entry and marks it recently used.
func (c *LRU) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return "", false
	}
	it := e.Value.(entry)
	if c.ttl > 0 && !c.now().Before(it.exp) {
		c.lst.Remove(e)
		delete(c.items, key)
		return "", false
	}
	c.lst.MoveToFront(e)
	return it.value, true
}

// Set stores an entry, evicting the least recently used ones over capacity.
func (c *LRU) Set(_ context.Context, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it := entry{key: key, value: value, exp: c.now().Add(c.ttl)}
	if e, ok := c.items[key]; ok {
		e.Value = it
		c.lst.MoveToFront(e)
		return
	}

	c.items[key] = c.lst.PushFront(it)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.items, back.Value.(entry).key)
		c.lst.Remove(back)
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}

const redisPrefix = "geopro:place:"

// RedisCache shares resolved places between server instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps a go-redis client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get reads a place; redis errors are treated as misses.
func (r *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	s, err := r.client.Get(ctx, redisPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Debug().Err(err).Msg("Redis geocode cache read failed")
		}
		return "", false
	}
	return s, s != ""
}

// Set writes a place; errors are logged and dropped.
func (r *RedisCache) Set(ctx context.Context, key, value string) {
	if err := r.client.Set(ctx, redisPrefix+key, value, r.ttl).Err(); err != nil {
		log.Debug().Err(err).Msg("Redis geocode cache write failed")
	}
}
