// Package cache stores reference data fetched from external services.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/woozymasta/ecoleta/internal/metrics"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Memory is an in-process LRU cache with TTL.
type Memory struct {
	lst  *list.List
	dict map[string]*list.Element
	now  func() time.Time
	cap  int
	mu   sync.Mutex
}

type entry struct {
	exp time.Time
	key string
	val []byte
}

// NewMemory creates an LRU holding at most capacity entries.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 1
	}

	return &Memory{
		cap:  capacity,
		lst:  list.New(),
		dict: make(map[string]*list.Element),
		now:  time.Now,
	}
}

// Get returns a copy of the cached value.
func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.dict[key]
	if !ok {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	}

	it := e.Value.(entry)
	if !c.now().Before(it.exp) {
		c.lst.Remove(e)
		delete(c.dict, key)
		metrics.CacheLookupsTotal.WithLabelValues("expired").Inc()
		return nil, false, nil
	}

	c.lst.MoveToFront(e)
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return append([]byte(nil), it.val...), true, nil
}

// Set stores a copy of val, evicting the least recently used entries over capacity.
func (c *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	it := entry{key: key, val: append([]byte(nil), val...), exp: c.now().Add(ttl)}
	if e, ok := c.dict[key]; ok {
		e.Value = it
		c.lst.MoveToFront(e)
		return nil
	}

	c.dict[key] = c.lst.PushFront(it)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.dict, back.Value.(entry).key)
		c.lst.Remove(back)
	}

	return nil
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
