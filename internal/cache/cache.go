// Package cache memoizes slow lookups, such as calls across the native
// bridge, for a short time.
package cache

import (
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/singleflight"
)

type entry[T any] struct {
	value     T
	fetchedAt time.Time
}

// TTL caches values per key. A stale value is still served while one
// background refresh replaces it; a missing value is fetched once no matter
// how many callers ask concurrently.
type TTL[T any] struct {
	ttl     time.Duration
	entries *xsync.Map[string, entry[T]]
	group   singleflight.Group
	now     func() time.Time
}

func NewTTL[T any](ttl time.Duration) *TTL[T] {
	return &TTL[T]{
		ttl:     ttl,
		entries: xsync.NewMap[string, entry[T]](),
		now:     time.Now,
	}
}

func (c *TTL[T]) Get(key string, fn func() (T, error)) (T, error) {
	if e, ok := c.entries.Load(key); ok {
		if c.now().Sub(e.fetchedAt) > c.ttl {
			go c.group.Do("refresh:"+key, func() (any, error) {
				if v, err := fn(); err == nil {
					c.entries.Store(key, entry[T]{value: v, fetchedAt: c.now()})
				}
				return nil, nil
			})
		}
		return e.value, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if e, ok := c.entries.Load(key); ok {
			return e, nil
		}
		res, err := fn()
		if err != nil {
			return nil, err
		}
		e := entry[T]{value: res, fetchedAt: c.now()}
		c.entries.Store(key, e)
		return e, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(entry[T]).value, nil
}

func (c *TTL[T]) Forget(key string) {
	c.entries.Delete(key)
}
