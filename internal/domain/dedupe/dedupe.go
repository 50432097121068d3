// Package dedupe tracks idempotency keys of match submissions so that a
// retried request does not score the same match twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 50_000

// Deduper records idempotency keys and the match each key produced.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so the submission can be retried. Used when a
	// recorded key's submission failed before anything was persisted.
	Unrecord(ctx context.Context, key string)

	// Bind associates a recorded key with the match it produced.
	Bind(ctx context.Context, key, matchID string)

	// Lookup returns the match bound to key. ok is false when the key is
	// unknown; matchID is empty while the submission is still in flight.
	Lookup(ctx context.Context, key string) (matchID string, ok bool)

	Size() int64
}

// inMemoryDeduper keeps keys in insertion order and evicts the oldest once
// maxSize is reached. maxSize <= 0 disables eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = newest
	maxSize int
}

type entry struct {
	key     string
	matchID string
}

// Option configures the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of remembered keys; maxSize <= 0 never evicts.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) { d.maxSize = maxSize }
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.entries[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.evictOldest()
	}
	d.entries[key] = d.order.PushFront(&entry{key: key})
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.entries[key]; ok {
		d.order.Remove(el)
		delete(d.entries, key)
	}
}

func (d *inMemoryDeduper) Bind(_ context.Context, key, matchID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.entries[key]; ok {
		el.Value.(*entry).matchID = matchID
	}
}

func (d *inMemoryDeduper) Lookup(_ context.Context, key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.entries[key]
	if !ok {
		return "", false
	}
	return el.Value.(*entry).matchID, true
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	el := d.order.Back()
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.entries, el.Value.(*entry).key)
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
