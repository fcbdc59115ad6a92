// Package preload keeps the next few images of a session in memory.
//
// A Cache holds at most K images in insertion order. Prefetch fills it from
// background goroutines; Consume hands an image out exactly once. When an
// insert pushes occupancy above K, the oldest entry is dropped.
package preload

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/labelhub/internal/logger"
)

// DefaultCapacity is used when New is given a capacity of zero or less.
const DefaultCapacity = 2

// Fetcher loads image bytes by filename.
type Fetcher interface {
	FetchImage(ctx context.Context, name string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, name string) ([]byte, error)

// FetchImage implements Fetcher.
func (f FetcherFunc) FetchImage(ctx context.Context, name string) ([]byte, error) {
	return f(ctx, name)
}

// Metrics observes cache behaviour. A nil Metrics disables collection.
type Metrics interface {
	RecordHit()
	RecordMiss()
	RecordEviction()
	RecordPrefetch(duration time.Duration, err error)
	SetSize(n int)
}

type entry struct {
	name string
	data []byte
}

// Cache is a bounded FIFO of prefetched images. It is safe for concurrent
// use.
type Cache struct {
	fetcher  Fetcher
	capacity int
	metrics  Metrics

	mu       sync.Mutex
	entries  []entry
	inflight map[string]struct{}

	// gen counts Cancel calls. A fetch started under an older generation
	// leaves inflight and entries alone.
	gen uint64

	// ctx is the parent of every prefetch; Cancel replaces it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// New returns a Cache that loads through fetcher.
func New(fetcher Fetcher, capacity int, metrics Metrics) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		fetcher:  fetcher,
		capacity: capacity,
		metrics:  metrics,
		inflight: make(map[string]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Capacity returns K.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Prefetch starts loading name in the background and returns immediately.
// It does nothing when name is cached, already loading, or the cache is
// closed. The fetch stops when either ctx or the cache is cancelled.
func (c *Cache) Prefetch(ctx context.Context, name string) {
	c.mu.Lock()
	if c.closed || c.indexLocked(name) >= 0 {
		c.mu.Unlock()
		return
	}
	if _, busy := c.inflight[name]; busy {
		c.mu.Unlock()
		return
	}
	c.inflight[name] = struct{}{}
	parent, gen := c.ctx, c.gen
	c.wg.Add(1)
	c.mu.Unlock()

	go c.fetch(ctx, parent, gen, name)
}

func (c *Cache) fetch(ctx, parent context.Context, gen uint64, name string) {
	defer c.wg.Done()

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(parent, cancel)
	defer stop()

	start := time.Now()
	data, err := c.fetcher.FetchImage(fetchCtx, name)
	if c.metrics != nil {
		c.metrics.RecordPrefetch(time.Since(start), err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	delete(c.inflight, name)

	if err != nil {
		logger.Debug("Prefetch failed", logger.KeyImage, name, logger.KeyError, err)
		return
	}
	// A cancelled prefetch must not populate a cache that was reset.
	if ctx.Err() != nil || parent.Err() != nil || c.closed || c.indexLocked(name) >= 0 {
		return
	}

	c.entries = append(c.entries, entry{name: name, data: data})
	for len(c.entries) > c.capacity {
		evicted := c.entries[0]
		c.entries = c.entries[1:]
		logger.Debug("Preload cache eviction", logger.KeyImage, evicted.name)
		if c.metrics != nil {
			c.metrics.RecordEviction()
		}
	}
	if c.metrics != nil {
		c.metrics.SetSize(len(c.entries))
	}
}

// Consume returns the bytes for name. A cached entry is removed as it is
// returned; on a miss the image is fetched synchronously and not cached.
func (c *Cache) Consume(ctx context.Context, name string) ([]byte, error) {
	c.mu.Lock()
	if i := c.indexLocked(name); i >= 0 {
		data := c.entries[i].data
		c.entries = append(c.entries[:i], c.entries[i+1:]...)
		size := len(c.entries)
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.RecordHit()
			c.metrics.SetSize(size)
		}
		return data, nil
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordMiss()
	}
	return c.fetcher.FetchImage(ctx, name)
}

// Contains reports whether name is cached.
func (c *Cache) Contains(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexLocked(name) >= 0
}

// Len returns the number of cached images. It never exceeds Capacity.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cancel aborts every in-flight prefetch and empties the cache. The cache
// stays usable.
func (c *Cache) Cancel() {
	c.mu.Lock()
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.gen++
	c.entries = nil
	c.inflight = make(map[string]struct{})
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.SetSize(0)
	}
}

// Wait blocks until every in-flight prefetch has finished.
func (c *Cache) Wait() {
	c.wg.Wait()
}

// Close cancels all prefetches and waits for them to exit.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	c.entries = nil
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Cache) indexLocked(name string) int {
	for i, e := range c.entries {
		if e.name == name {
			return i
		}
	}
	return -1
}
